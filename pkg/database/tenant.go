package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantScope wraps a connection with department context and ensures cleanup.
// The connection has app.current_department_id set for RLS policy evaluation.
type TenantScope struct {
	Conn         *pgxpool.Conn
	DepartmentID uuid.UUID
}

// Close resets department context and releases connection to pool.
// This MUST be called to prevent department context from leaking to the next request.
func (s *TenantScope) Close() {
	if s.Conn == nil {
		return
	}
	_, _ = s.Conn.Exec(context.Background(), "RESET app.current_department_id")
	s.Conn.Release()
}

// WithTenant acquires a connection and sets the department context for RLS.
// The returned TenantScope MUST be closed with defer scope.Close().
func (db *DB) WithTenant(ctx context.Context, departmentID uuid.UUID) (*TenantScope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	_, err = conn.Exec(ctx, "SELECT set_config('app.current_department_id', $1, false)", departmentID.String())
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to set department context: %w", err)
	}

	return &TenantScope{Conn: conn, DepartmentID: departmentID}, nil
}
