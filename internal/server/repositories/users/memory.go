package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. It backs the "memory"
// DSN and service tests; all methods are safe for concurrent use.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*models.User
	byName map[string]uuid.UUID
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[uuid.UUID]*models.User),
		byName: make(map[string]uuid.UUID),
		now:    time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[user.Name]; ok {
		return nil, common.ErrUserExists
	}
	if _, ok := r.byID[user.ID]; ok {
		return nil, common.ErrUserExists
	}

	user.Confirmed = false
	user.CreatedAt = r.now().UTC()

	stored := *user
	r.byID[user.ID] = &stored
	r.byName[user.Name] = user.ID

	return user, nil
}

func (r *MemoryRepository) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return r.find(ctx, name, false)
}

func (r *MemoryRepository) GetConfirmedByName(ctx context.Context, name string) (*models.User, error) {
	return r.find(ctx, name, true)
}

func (r *MemoryRepository) GetConfirmedByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok || !u.Confirmed {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) find(ctx context.Context, name string, confirmedOnly bool) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	u := r.byID[id]
	if confirmedOnly && !u.Confirmed {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryRepository) SetConfirmed(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.Confirmed = true
	return nil
}

func (r *MemoryRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

// Len reports the number of stored users.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
