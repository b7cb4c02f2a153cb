package dbx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
)

// ErrNoSQL is returned by the SQL methods of MemoryConn.
var ErrNoSQL = errors.New("dbx: memory connection does not execute SQL")

// MemoryConn is a Conn for stores that keep their state in process memory.
// InTx runs transactions one at a time, which makes read-then-write
// sequences inside fn atomic. There is no rollback: writes made by fn
// before it fails stay applied.
type MemoryConn struct {
	mu sync.Mutex
}

func NewMemoryConn() *MemoryConn {
	return &MemoryConn{}
}

func (c *MemoryConn) InTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return fn(ctx, c)
}

func (c *MemoryConn) PingContext(ctx context.Context) error {
	return ctx.Err()
}

func (c *MemoryConn) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, ErrNoSQL
}

func (c *MemoryConn) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, ErrNoSQL
}

// QueryRowContext cannot build a *sql.Row carrying an error outside
// database/sql, so it returns nil. Memory repositories never call it.
func (c *MemoryConn) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}
