package database

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// TenantScopeKey is the context key for storing the tenant-scoped database connection.
	TenantScopeKey contextKey = "tenantScope"
	// DepartmentIDKey is the context key for the department the request acts on.
	DepartmentIDKey contextKey = "departmentID"
)

// GetTenantScope retrieves the tenant-scoped database connection from context.
// Returns nil and false if not present.
func GetTenantScope(ctx context.Context) (*TenantScope, bool) {
	scope, ok := ctx.Value(TenantScopeKey).(*TenantScope)
	return scope, ok
}

// SetTenantScope stores the tenant-scoped database connection in context.
func SetTenantScope(ctx context.Context, scope *TenantScope) context.Context {
	return context.WithValue(ctx, TenantScopeKey, scope)
}

// GetDepartmentID returns the department set by WithDepartment.
func GetDepartmentID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(DepartmentIDKey).(uuid.UUID)
	return id, ok
}

// SetDepartmentID stores the department in context.
func SetDepartmentID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, DepartmentIDKey, id)
}
