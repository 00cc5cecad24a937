package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/firegrid/firegrid-engine/pkg/formatter"
	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/services"
)

// mockDataFormatterService is a configurable mock for data formatter handler tests.
// It records the last arguments it was called with.
type mockDataFormatterService struct {
	uploadResult *services.UploadResult
	suggestion   *formatter.MappingSuggestion
	transformed  *models.TransformedDataset
	download     *services.DownloadResult
	redirect     string
	datasets     []*models.UploadedDataset
	err          error

	lastSessionID string
	lastFilename  string
	lastUpload    []byte
	lastRequest   models.TransformRequest
	lastFormat    string
	lastTool      models.ToolID
}

var _ services.DataFormatterService = (*mockDataFormatterService)(nil)

func (m *mockDataFormatterService) Upload(ctx context.Context, sessionID, filename string, data []byte) (*services.UploadResult, error) {
	m.lastSessionID, m.lastFilename, m.lastUpload = sessionID, filename, data
	if m.err != nil {
		return nil, m.err
	}
	return m.uploadResult, nil
}

func (m *mockDataFormatterService) SuggestMapping(ctx context.Context, sessionID string, datasetID uuid.UUID, tool models.ToolID) (*formatter.MappingSuggestion, error) {
	m.lastSessionID, m.lastTool = sessionID, tool
	m.lastRequest.DatasetID = datasetID
	if m.err != nil {
		return nil, m.err
	}
	return m.suggestion, nil
}

func (m *mockDataFormatterService) Transform(ctx context.Context, sessionID string, req models.TransformRequest) (*models.TransformedDataset, error) {
	m.lastSessionID, m.lastRequest = sessionID, req
	if m.err != nil {
		return nil, m.err
	}
	return m.transformed, nil
}

func (m *mockDataFormatterService) Download(ctx context.Context, sessionID, format string, tool models.ToolID) (*services.DownloadResult, error) {
	m.lastSessionID, m.lastFormat, m.lastTool = sessionID, format, tool
	if m.err != nil {
		return nil, m.err
	}
	return m.download, nil
}

func (m *mockDataFormatterService) SendToTool(ctx context.Context, sessionID string, tool models.ToolID) (string, error) {
	m.lastSessionID, m.lastTool = sessionID, tool
	if m.err != nil {
		return "", m.err
	}
	return m.redirect, nil
}

func (m *mockDataFormatterService) ToolData(ctx context.Context, sessionID string, tool models.ToolID) (*models.TransformedDataset, error) {
	m.lastSessionID, m.lastTool = sessionID, tool
	if m.err != nil {
		return nil, m.err
	}
	return m.transformed, nil
}

func (m *mockDataFormatterService) ListDatasets(ctx context.Context) ([]*models.UploadedDataset, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.datasets, nil
}

func (m *mockDataFormatterService) Tools() []*formatter.Tool {
	return formatter.DefaultCatalog().Tools()
}
