package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/database"
	"github.com/firegrid/firegrid-engine/pkg/formatter"
	"github.com/firegrid/firegrid-engine/pkg/logging"
	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/repositories"
	"github.com/firegrid/firegrid-engine/pkg/storage"
	"github.com/firegrid/firegrid-engine/pkg/tabular"
)

// datasetListLimit caps ListDatasets.
const datasetListLimit = 100

// UploadResult is the analysis of a freshly uploaded file.
type UploadResult struct {
	Dataset         *models.UploadedDataset
	ColumnTypes     []models.Column
	Preview         []models.Row
	Capabilities    models.CapabilityFlags
	CompatibleTools []models.ToolCompatibility
}

// DownloadResult is a transformed dataset serialized for download.
type DownloadResult struct {
	Filename string
	Payload  *tabular.ExportPayload
}

// DataFormatterOptions configures the data formatter.
type DataFormatterOptions struct {
	AllowedFormats []models.FileFormat
	PreviewRows    int
}

// DataFormatterService turns uploaded CAD/RMS exports into tool-ready datasets.
// Session-scoped state (transform results, hand-offs) is keyed by the caller's session id.
type DataFormatterService interface {
	// Upload stores and analyzes a file. Unsupported extensions fail with
	// apperrors.ErrUnsupportedFormat before anything is stored.
	Upload(ctx context.Context, sessionID, filename string, data []byte) (*UploadResult, error)

	// SuggestMapping proposes source columns for each canonical field of the tool.
	SuggestMapping(ctx context.Context, sessionID string, datasetID uuid.UUID, tool models.ToolID) (*formatter.MappingSuggestion, error)

	// Transform runs the transformation engine and caches the result for the session.
	Transform(ctx context.Context, sessionID string, req models.TransformRequest) (*models.TransformedDataset, error)

	// Download serializes the session's transformed data for a tool. An empty tool
	// selects the most recently transformed one.
	Download(ctx context.Context, sessionID, format string, tool models.ToolID) (*DownloadResult, error)

	// SendToTool hands the session's transformed data to the tool and returns the
	// path the client should navigate to.
	SendToTool(ctx context.Context, sessionID string, tool models.ToolID) (string, error)

	// ToolData returns the data handed off to the tool in this session.
	ToolData(ctx context.Context, sessionID string, tool models.ToolID) (*models.TransformedDataset, error)

	// ListDatasets returns the department's uploads, newest first.
	ListDatasets(ctx context.Context) ([]*models.UploadedDataset, error)

	// Tools returns the tool catalog.
	Tools() []*formatter.Tool
}

type dataFormatterService struct {
	repo    repositories.DatasetRepository
	files   storage.FileStore
	cache   TransformCache
	catalog *formatter.Catalog
	opts    DataFormatterOptions
	locks   *keyedMutex
	loads   singleflight.Group
	logger  *zap.Logger
	now     func() time.Time
}

var _ DataFormatterService = (*dataFormatterService)(nil)

// NewDataFormatterService creates the data formatter service.
func NewDataFormatterService(
	repo repositories.DatasetRepository,
	files storage.FileStore,
	cache TransformCache,
	opts DataFormatterOptions,
	logger *zap.Logger,
) DataFormatterService {
	return &dataFormatterService{
		repo:    repo,
		files:   files,
		cache:   cache,
		catalog: formatter.DefaultCatalog(),
		opts:    opts,
		locks:   newKeyedMutex(),
		logger:  logger.Named("data-formatter"),
		now:     time.Now,
	}
}

func (s *dataFormatterService) Upload(ctx context.Context, sessionID, filename string, data []byte) (*UploadResult, error) {
	departmentID, ok := database.GetDepartmentID(ctx)
	if !ok {
		return nil, fmt.Errorf("no department in context")
	}

	format, err := tabular.DetectFormat(filename, tabular.ParseOptions{AllowedFormats: s.opts.AllowedFormats})
	if err != nil {
		return nil, err
	}

	table, err := tabular.ParseFormat(format, data)
	if err != nil {
		s.logger.Info("Rejected upload",
			zap.String("filename", logging.SanitizeFilename(filename)),
			zap.String("reason", logging.SanitizeError(err)))
		return nil, err
	}

	dataset := &models.UploadedDataset{
		ID:           uuid.New(),
		DepartmentID: departmentID,
		Filename:     logging.SanitizeFilename(filename),
		Format:       format,
		RowCount:     table.RowCount(),
		Columns:      table.Columns,
		SystemType:   formatter.ClassifySystem(table.Columns),
		SizeBytes:    int64(len(data)),
		CreatedAt:    s.now().UTC(),
	}

	path, err := s.files.Save(ctx, dataset.ID, format, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}
	dataset.StoragePath = path

	if err := s.repo.Create(ctx, dataset); err != nil {
		if delErr := s.files.Delete(ctx, dataset.ID); delErr != nil {
			s.logger.Warn("Failed to remove orphaned upload",
				zap.String("dataset_id", dataset.ID.String()),
				zap.String("error", logging.SanitizeError(delErr)))
		}
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	if err := s.cache.Set(ctx, sessionID, uploadKey(dataset.ID), dataset); err != nil {
		s.logger.Warn("Failed to cache upload metadata",
			zap.String("dataset_id", dataset.ID.String()),
			zap.String("error", logging.SanitizeError(err)))
	}

	flags := formatter.AnalyzeCapabilities(table.Columns)

	s.logger.Info("Dataset uploaded",
		zap.String("dataset_id", dataset.ID.String()),
		zap.String("department_id", departmentID.String()),
		zap.String("filename", dataset.Filename),
		zap.String("format", string(format)),
		zap.Int("rows", dataset.RowCount),
		zap.String("system_type", string(dataset.SystemType)))

	return &UploadResult{
		Dataset:         dataset,
		ColumnTypes:     tabular.InferColumns(table, tabular.DefaultInferenceSample),
		Preview:         table.Head(s.opts.PreviewRows),
		Capabilities:    flags,
		CompatibleTools: formatter.CompatibleTools(flags, dataset.SystemType, table),
	}, nil
}

func (s *dataFormatterService) SuggestMapping(ctx context.Context, sessionID string, datasetID uuid.UUID, toolID models.ToolID) (*formatter.MappingSuggestion, error) {
	tool, err := s.catalog.Tool(toolID)
	if err != nil {
		return nil, err
	}

	dataset, err := s.lookupDataset(ctx, sessionID, datasetID)
	if err != nil {
		return nil, err
	}

	suggestion := formatter.SuggestMapping(dataset.Columns, tool)
	return &suggestion, nil
}

func (s *dataFormatterService) Transform(ctx context.Context, sessionID string, req models.TransformRequest) (*models.TransformedDataset, error) {
	if _, err := s.catalog.Tool(req.Tool); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	dataset, err := s.lookupDataset(ctx, sessionID, req.DatasetID)
	if err != nil {
		return nil, err
	}
	if !dataset.Format.Transformable() {
		return nil, fmt.Errorf("%w: %s uploads", apperrors.ErrNotTransformable, dataset.Format)
	}

	table, err := s.loadTable(ctx, dataset)
	if err != nil {
		return nil, err
	}

	result, err := formatter.Run(table, req, dataset.SystemType)
	if err != nil {
		return nil, err
	}

	// Cache only the finished result so readers never observe a partial transform.
	if err := s.cache.Set(ctx, sessionID, transformKey(req.Tool), result); err != nil {
		return nil, fmt.Errorf("failed to cache transform: %w", err)
	}
	if err := s.cache.Set(ctx, sessionID, lastToolKey, req.Tool); err != nil {
		return nil, fmt.Errorf("failed to cache transform: %w", err)
	}

	s.logger.Debug("Dataset transformed",
		zap.String("dataset_id", req.DatasetID.String()),
		zap.String("tool", string(req.Tool)),
		zap.Int("mapped_fields", len(req.Mapping)),
		zap.Int("split_rules", len(req.SplitRules)),
		zap.Int("rows", len(result.Rows)))

	return result, nil
}

func (s *dataFormatterService) Download(ctx context.Context, sessionID, format string, tool models.ToolID) (*DownloadResult, error) {
	exportFormat, err := tabular.ParseExportFormat(format)
	if err != nil {
		return nil, err
	}

	if tool == "" {
		if err := s.cache.Get(ctx, sessionID, lastToolKey, &tool); err != nil {
			return nil, s.cacheMiss(err)
		}
	} else if _, err := s.catalog.Tool(tool); err != nil {
		return nil, err
	}

	var dataset models.TransformedDataset
	if err := s.cache.Get(ctx, sessionID, transformKey(tool), &dataset); err != nil {
		return nil, s.cacheMiss(err)
	}

	payload, err := tabular.Export(dataset.Table(), exportFormat)
	if err != nil {
		return nil, err
	}

	return &DownloadResult{
		Filename: fmt.Sprintf("%s-formatted.%s", tool, payload.Extension),
		Payload:  payload,
	}, nil
}

func (s *dataFormatterService) SendToTool(ctx context.Context, sessionID string, tool models.ToolID) (string, error) {
	if _, err := s.catalog.Tool(tool); err != nil {
		return "", err
	}

	var dataset models.TransformedDataset
	if err := s.cache.Get(ctx, sessionID, transformKey(tool), &dataset); err != nil {
		return "", s.cacheMiss(err)
	}
	if err := s.cache.Set(ctx, sessionID, toolDataKey(tool), &dataset); err != nil {
		return "", fmt.Errorf("failed to hand off data: %w", err)
	}

	return "/tools/" + string(tool), nil
}

func (s *dataFormatterService) ToolData(ctx context.Context, sessionID string, tool models.ToolID) (*models.TransformedDataset, error) {
	if _, err := s.catalog.Tool(tool); err != nil {
		return nil, err
	}

	var dataset models.TransformedDataset
	if err := s.cache.Get(ctx, sessionID, toolDataKey(tool), &dataset); err != nil {
		return nil, s.cacheMiss(err)
	}
	return &dataset, nil
}

func (s *dataFormatterService) ListDatasets(ctx context.Context) ([]*models.UploadedDataset, error) {
	datasets, err := s.repo.List(ctx, datasetListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}
	return datasets, nil
}

func (s *dataFormatterService) Tools() []*formatter.Tool {
	return s.catalog.Tools()
}

// lookupDataset finds upload metadata in the database, falling back to the copy kept
// in the session at upload time.
func (s *dataFormatterService) lookupDataset(ctx context.Context, sessionID string, id uuid.UUID) (*models.UploadedDataset, error) {
	dataset, err := s.repo.Get(ctx, id)
	if err == nil {
		return dataset, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	var cached models.UploadedDataset
	if err := s.cache.Get(ctx, sessionID, uploadKey(id), &cached); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load dataset: %w", err)
	}

	// The session copy is only trusted within the department that uploaded it.
	departmentID, ok := database.GetDepartmentID(ctx)
	if !ok || cached.DepartmentID != departmentID {
		return nil, apperrors.ErrNotFound
	}
	return &cached, nil
}

// loadTable reads and parses the stored file. Concurrent loads of one dataset share a read.
func (s *dataFormatterService) loadTable(ctx context.Context, dataset *models.UploadedDataset) (*models.Table, error) {
	key := dataset.DepartmentID.String() + ":" + dataset.ID.String()
	v, err, _ := s.loads.Do(key, func() (any, error) {
		data, err := s.files.Load(ctx, dataset.ID, dataset.Format)
		if err != nil {
			return nil, fmt.Errorf("failed to read upload: %w", err)
		}
		return tabular.ParseFormat(dataset.Format, data)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Table), nil
}

func (s *dataFormatterService) cacheMiss(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.ErrNoTransformedData
	}
	return fmt.Errorf("failed to read session data: %w", err)
}
