//go:build integration

package testhelpers

import (
	"context"
	"testing"
)

func TestEngineDB_MigrationsApplied(t *testing.T) {
	engineDB := GetEngineDB(t)

	ctx := context.Background()

	var exists bool
	err := engineDB.Admin.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'formatter_datasets')").
		Scan(&exists)
	if err != nil {
		t.Fatalf("failed to query schema: %v", err)
	}
	if !exists {
		t.Error("expected formatter_datasets table to exist")
	}
}

func TestEngineDB_AppRoleIsSubjectToRLS(t *testing.T) {
	engineDB := GetEngineDB(t)

	var bypass bool
	err := engineDB.Pool().QueryRow(context.Background(),
		"SELECT rolbypassrls OR rolsuper FROM pg_roles WHERE rolname = current_user").
		Scan(&bypass)
	if err != nil {
		t.Fatalf("failed to query role: %v", err)
	}
	if bypass {
		t.Error("app role must not bypass row-level security")
	}
}
