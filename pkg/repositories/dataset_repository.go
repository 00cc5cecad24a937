package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/database"
	"github.com/firegrid/firegrid-engine/pkg/models"
)

// DatasetRepository defines the interface for uploaded dataset metadata.
// All methods operate within the department of the tenant scope in ctx.
type DatasetRepository interface {
	Create(ctx context.Context, dataset *models.UploadedDataset) error
	Get(ctx context.Context, id uuid.UUID) (*models.UploadedDataset, error)
	List(ctx context.Context, limit int) ([]*models.UploadedDataset, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// datasetRepository implements DatasetRepository using PostgreSQL.
type datasetRepository struct{}

var _ DatasetRepository = (*datasetRepository)(nil)

// NewDatasetRepository creates a new dataset repository.
func NewDatasetRepository() DatasetRepository {
	return &datasetRepository{}
}

const datasetColumns = `id, department_id, filename, file_type, row_count, columns, system_type, storage_path, size_bytes, created_at`

// Create inserts dataset metadata. Datasets are immutable once created.
func (r *datasetRepository) Create(ctx context.Context, dataset *models.UploadedDataset) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	if dataset.ID == uuid.Nil {
		dataset.ID = uuid.New()
	}
	if dataset.DepartmentID == uuid.Nil {
		dataset.DepartmentID = scope.DepartmentID
	}
	if dataset.CreatedAt.IsZero() {
		dataset.CreatedAt = time.Now().UTC()
	}
	if dataset.SystemType == "" {
		dataset.SystemType = models.SystemUnknown
	}

	columns, err := json.Marshal(dataset.Columns)
	if err != nil {
		return fmt.Errorf("failed to marshal columns: %w", err)
	}

	query := `
		INSERT INTO formatter_datasets (` + datasetColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = scope.Conn.Exec(ctx, query,
		dataset.ID,
		dataset.DepartmentID,
		dataset.Filename,
		dataset.Format,
		dataset.RowCount,
		columns,
		dataset.SystemType,
		dataset.StoragePath,
		dataset.SizeBytes,
		dataset.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create dataset: %w", err)
	}

	return nil
}

// Get retrieves a dataset by ID. Datasets of other departments are invisible and
// yield apperrors.ErrNotFound.
func (r *datasetRepository) Get(ctx context.Context, id uuid.UUID) (*models.UploadedDataset, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}

	query := `SELECT ` + datasetColumns + ` FROM formatter_datasets WHERE id = $1`

	dataset, err := scanDataset(scope.Conn.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dataset: %w", err)
	}
	return dataset, nil
}

// List returns the department's datasets, newest first.
func (r *datasetRepository) List(ctx context.Context, limit int) ([]*models.UploadedDataset, error) {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no tenant scope in context")
	}
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + datasetColumns + ` FROM formatter_datasets ORDER BY created_at DESC, id LIMIT $1`

	rows, err := scope.Conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	defer rows.Close()

	datasets := make([]*models.UploadedDataset, 0)
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dataset: %w", err)
		}
		datasets = append(datasets, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate datasets: %w", err)
	}
	return datasets, nil
}

// Delete removes dataset metadata.
func (r *datasetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetTenantScope(ctx)
	if !ok {
		return fmt.Errorf("no tenant scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM formatter_datasets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func scanDataset(row pgx.Row) (*models.UploadedDataset, error) {
	var (
		d       models.UploadedDataset
		columns []byte
	)
	err := row.Scan(
		&d.ID,
		&d.DepartmentID,
		&d.Filename,
		&d.Format,
		&d.RowCount,
		&columns,
		&d.SystemType,
		&d.StoragePath,
		&d.SizeBytes,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(columns, &d.Columns); err != nil {
		return nil, fmt.Errorf("failed to unmarshal columns: %w", err)
	}
	return &d, nil
}
