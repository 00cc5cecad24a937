//go:build integration

package repositories

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/testhelpers"
)

func newDataset(filename string) *models.UploadedDataset {
	return &models.UploadedDataset{
		Filename:    filename,
		Format:      models.FormatCSV,
		RowCount:    2,
		Columns:     []string{"incident_number", "alarm_date"},
		SystemType:  models.SystemFireRMS,
		StoragePath: "/tmp/" + filename,
		SizeBytes:   64,
	}
}

func TestDatasetRepository_CreateGetList(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewDatasetRepository()

	departmentID := uuid.New()
	ctx := engineDB.TenantContext(t, departmentID)

	first := newDataset("first.csv")
	first.CreatedAt = time.Now().Add(-time.Minute).UTC()
	require.NoError(t, repo.Create(ctx, first))
	second := newDataset("second.csv")
	require.NoError(t, repo.Create(ctx, second))

	assert.Equal(t, departmentID, first.DepartmentID)

	got, err := repo.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "first.csv", got.Filename)
	assert.Equal(t, models.FormatCSV, got.Format)
	assert.Equal(t, []string{"incident_number", "alarm_date"}, got.Columns)
	assert.Equal(t, models.SystemFireRMS, got.SystemType)

	list, err := repo.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestDatasetRepository_DepartmentIsolation(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewDatasetRepository()

	owner := engineDB.TenantContext(t, uuid.New())
	other := engineDB.TenantContext(t, uuid.New())

	ds := newDataset("private.csv")
	require.NoError(t, repo.Create(owner, ds))

	_, err := repo.Get(other, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	list, err := repo.List(other, 10)
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.ErrorIs(t, repo.Delete(other, ds.ID), apperrors.ErrNotFound)
}

func TestDatasetRepository_Delete(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	repo := NewDatasetRepository()
	ctx := engineDB.TenantContext(t, uuid.New())

	ds := newDataset("gone.csv")
	require.NoError(t, repo.Create(ctx, ds))
	require.NoError(t, repo.Delete(ctx, ds.ID))

	_, err := repo.Get(ctx, ds.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, ds.ID), apperrors.ErrNotFound)
}
