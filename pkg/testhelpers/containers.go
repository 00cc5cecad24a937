// Package testhelpers provides utilities for testing firegrid-engine components.
package testhelpers

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/firegrid/firegrid-engine/pkg/database"
)

// PostgresImage is the PostgreSQL image used for integration tests.
const PostgresImage = "postgres:16-alpine"

const (
	adminUser   = "firegrid"
	appUser     = "firegrid_app"
	dbPassword  = "test_password"
	dbName      = "firegrid_test"
	readyLogMsg = "database system is ready to accept connections"
)

// EngineDB holds a migrated test database.
// DB connects as a non-superuser so row-level security is enforced; Admin bypasses it.
type EngineDB struct {
	Container testcontainers.Container
	DB        *database.DB
	Admin     *database.DB
	ConnStr   string
}

var (
	sharedEngineDB     *EngineDB
	sharedEngineDBOnce sync.Once
	sharedEngineDBErr  error
)

// GetEngineDB returns a shared PostgreSQL container with migrations applied.
// The container is created once and reused across all tests in the run.
func GetEngineDB(t *testing.T) *EngineDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedEngineDBOnce.Do(func() {
		sharedEngineDB, sharedEngineDBErr = setupEngineDB()
	})

	if sharedEngineDBErr != nil {
		t.Fatalf("Failed to setup engine database: %v", sharedEngineDBErr)
	}

	return sharedEngineDB
}

// MigrationsPath returns the absolute path of the repository's migrations directory.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func setupEngineDB() (*EngineDB, error) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        PostgresImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_DB":       dbName,
			"POSTGRES_USER":     adminUser,
			"POSTGRES_PASSWORD": dbPassword,
		},
		// The init process restarts the server once, so the ready line appears twice.
		WaitingFor: wait.ForLog(readyLogMsg).
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	connStr := func(user string) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, dbPassword, host, port.Port(), dbName)
	}

	admin, err := database.NewConnection(ctx, &database.Config{URL: connStr(adminUser), MaxConnections: 5})
	if err != nil {
		return nil, fmt.Errorf("failed to connect as admin: %w", err)
	}

	if err := database.RunMigrations(admin, MigrationsPath(), zap.NewNop()); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	grants := []string{
		fmt.Sprintf("CREATE ROLE %s LOGIN PASSWORD '%s' NOSUPERUSER NOBYPASSRLS", appUser, dbPassword),
		fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON formatter_datasets TO %s", appUser),
	}
	for _, stmt := range grants {
		if _, err := admin.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to prepare app role: %w", err)
		}
	}

	db, err := database.NewConnection(ctx, &database.Config{URL: connStr(appUser), MaxConnections: 5})
	if err != nil {
		return nil, fmt.Errorf("failed to connect as app role: %w", err)
	}

	return &EngineDB{
		Container: container,
		DB:        db,
		Admin:     admin,
		ConnStr:   connStr(appUser),
	}, nil
}

// TenantContext returns a context holding a department-scoped connection.
// The scope is released when the test finishes.
func (e *EngineDB) TenantContext(t *testing.T, departmentID uuid.UUID) context.Context {
	t.Helper()

	scope, err := e.DB.WithTenant(context.Background(), departmentID)
	if err != nil {
		t.Fatalf("failed to create tenant scope: %v", err)
	}
	t.Cleanup(scope.Close)

	ctx := database.SetDepartmentID(context.Background(), departmentID)
	return database.SetTenantScope(ctx, scope)
}

// Pool exposes the app-role pool for tests that need raw queries.
func (e *EngineDB) Pool() *pgxpool.Pool {
	return e.DB.Pool
}
