package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered account. Name is unique and never changes after
// creation; Confirmed flips to true exactly once.
type User struct {
	ID           uuid.UUID `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Confirmed    bool      `db:"confirmed"`
	CreatedAt    time.Time `db:"created_at"`
}
