package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/firegrid/firegrid-engine/pkg/apperrors"
	"github.com/firegrid/firegrid-engine/pkg/formatter"
	"github.com/firegrid/firegrid-engine/pkg/jsonutil"
	"github.com/firegrid/firegrid-engine/pkg/logging"
	"github.com/firegrid/firegrid-engine/pkg/models"
	"github.com/firegrid/firegrid-engine/pkg/services"
	"github.com/firegrid/firegrid-engine/pkg/session"
	"github.com/firegrid/firegrid-engine/pkg/tabular"
)

// transformSampleRows is how many transformed rows the transform response echoes back.
const transformSampleRows = 10

// multipartMemory is the part of a multipart upload kept in memory before spilling to disk.
const multipartMemory = 8 << 20

// TenantMiddleware wraps a handler with department scoping.
type TenantMiddleware func(http.HandlerFunc) http.HandlerFunc

// ============================================================================
// Request/Response Types
// ============================================================================

// UploadResponse for POST /upload
type UploadResponse struct {
	FileID            string                     `json:"fileId"`
	Filename          string                     `json:"filename"`
	FileType          models.FileFormat          `json:"fileType"`
	Columns           []string                   `json:"columns"`
	ColumnTypes       []models.Column            `json:"column_types"`
	Rows              int                        `json:"rows"`
	Data              []models.Row               `json:"data"`
	SystemType        models.SystemType          `json:"system_type"`
	HasGeoCoordinates bool                       `json:"has_geo_coordinates"`
	HasTimestamps     bool                       `json:"has_timestamps"`
	CompatibleTools   []models.ToolCompatibility `json:"compatible_tools"`
}

// SuggestMappingRequest for POST /suggest-mapping
type SuggestMappingRequest struct {
	FileID     string `json:"fileId"`
	TargetTool string `json:"targetTool"`
}

// TransformRequest for POST /transform. Mapping values and split-rule indexes are
// accepted loosely since clients send numbers and strings interchangeably.
type TransformRequest struct {
	FileID             string             `json:"fileId"`
	Mappings           json.RawMessage    `json:"mappings"`
	TargetTool         string             `json:"targetTool"`
	ProcessingMetadata ProcessingMetadata `json:"processingMetadata"`
}

// ProcessingMetadata carries optional post-processing instructions.
type ProcessingMetadata struct {
	SplitRules []SplitRuleRequest `json:"_splitRules"`
}

// SplitRuleRequest is a split rule as sent by clients. PartIndex may be a number,
// a numeric string or "last".
type SplitRuleRequest struct {
	TargetField string          `json:"targetField"`
	SourceField string          `json:"sourceField"`
	Delimiter   string          `json:"delimiter"`
	PartIndex   json.RawMessage `json:"partIndex"`
}

// TransformResponse for POST /transform
type TransformResponse struct {
	Success         bool                 `json:"success"`
	TransformedData TransformedDataShape `json:"transformed_data"`
}

// TransformedDataShape summarizes a transform result.
type TransformedDataShape struct {
	Rows    int          `json:"rows"`
	Columns []string     `json:"columns"`
	Sample  []models.Row `json:"sample"`
}

// DownloadRequest for POST /download
type DownloadRequest struct {
	Format     string `json:"format"`
	TargetTool string `json:"targetTool,omitempty"`
}

// ExcelDownloadResponse is the inline form of a spreadsheet download.
type ExcelDownloadResponse struct {
	Filename string `json:"filename"`
	Data     string `json:"data"`
	Encoding string `json:"encoding"`
	MimeType string `json:"mime_type"`
}

// SendToToolRequest for POST /send-to-tool
type SendToToolRequest struct {
	Tool string `json:"tool"`
}

// SendToToolResponse for POST /send-to-tool
type SendToToolResponse struct {
	Success  bool   `json:"success"`
	Redirect string `json:"redirect"`
}

// ToolsResponse for GET /tools
type ToolsResponse struct {
	Tools []*formatter.Tool `json:"tools"`
}

// DatasetsResponse for GET /datasets
type DatasetsResponse struct {
	Datasets []*models.UploadedDataset `json:"datasets"`
	Total    int                       `json:"total"`
}

// ToolDataResponse for GET /tools/{tool}/data
type ToolDataResponse struct {
	Tool       models.ToolID     `json:"tool"`
	SystemType models.SystemType `json:"system_type"`
	Columns    []string          `json:"columns"`
	Rows       []models.Row      `json:"rows"`
}

// ============================================================================
// Handler
// ============================================================================

// DataFormatterHandler handles data formatter HTTP requests.
type DataFormatterHandler struct {
	formatterService services.DataFormatterService
	maxUploadBytes   int64
	logger           *zap.Logger
}

// NewDataFormatterHandler creates a new data formatter handler.
func NewDataFormatterHandler(
	formatterService services.DataFormatterService,
	maxUploadBytes int64,
	logger *zap.Logger,
) *DataFormatterHandler {
	return &DataFormatterHandler{
		formatterService: formatterService,
		maxUploadBytes:   maxUploadBytes,
		logger:           logger.Named("data-formatter-handler"),
	}
}

// RegisterRoutes registers the data formatter's routes on the given mux.
func (h *DataFormatterHandler) RegisterRoutes(mux *http.ServeMux, sessions *session.Manager, tenantMiddleware TenantMiddleware) {
	base := "/api/departments/{did}/data-formatter"
	route := func(next http.HandlerFunc) http.Handler {
		return sessions.Middleware(tenantMiddleware(next))
	}

	mux.Handle("POST "+base+"/upload", route(h.Upload))
	mux.Handle("POST "+base+"/suggest-mapping", route(h.SuggestMapping))
	mux.Handle("POST "+base+"/transform", route(h.Transform))
	mux.Handle("POST "+base+"/download", route(h.Download))
	mux.Handle("POST "+base+"/send-to-tool", route(h.SendToTool))
	mux.Handle("GET "+base+"/tools", route(h.Tools))
	mux.Handle("GET "+base+"/datasets", route(h.Datasets))
	mux.Handle("GET /api/departments/{did}/tools/{tool}/data", route(h.ToolData))
}

// Upload handles POST /api/departments/{did}/data-formatter/upload
func (h *DataFormatterHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", h.tooLargeMessage(), h.logger)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	file, header, err := h.formFile(r)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", h.tooLargeMessage(), h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "missing_file", "A file is required in the \"file\" field", h.logger)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "file_too_large", h.tooLargeMessage(), h.logger)
			return
		}
		writeError(w, http.StatusBadRequest, "read_failed", "Failed to read uploaded file", h.logger)
		return
	}

	result, err := h.formatterService.Upload(r.Context(), sessionID, header.Filename, data)
	if err != nil {
		h.handleServiceError(w, err, "upload", zap.String("filename", logging.SanitizeFilename(header.Filename)))
		return
	}

	response := UploadResponse{
		FileID:            result.Dataset.ID.String(),
		Filename:          result.Dataset.Filename,
		FileType:          result.Dataset.Format,
		Columns:           result.Dataset.Columns,
		ColumnTypes:       result.ColumnTypes,
		Rows:              result.Dataset.RowCount,
		Data:              result.Preview,
		SystemType:        result.Dataset.SystemType,
		HasGeoCoordinates: result.Capabilities.HasGeo,
		HasTimestamps:     result.Capabilities.HasTimestamps,
		CompatibleTools:   result.CompatibleTools,
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// formFile reads the "file" part of a multipart request.
func (h *DataFormatterHandler) formFile(r *http.Request) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, nil, err
	}
	return r.FormFile("file")
}

// SuggestMapping handles POST /api/departments/{did}/data-formatter/suggest-mapping
func (h *DataFormatterHandler) SuggestMapping(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SuggestMappingRequest
	if !h.decode(w, r, &req) {
		return
	}
	fileID, ok := parseFileID(w, req.FileID, h.logger)
	if !ok {
		return
	}
	tool, ok := parseTargetTool(w, req.TargetTool, h.logger)
	if !ok {
		return
	}

	suggestion, err := h.formatterService.SuggestMapping(r.Context(), sessionID, fileID, tool)
	if err != nil {
		h.handleServiceError(w, err, "suggest mapping", zap.String("file_id", req.FileID))
		return
	}

	if err := WriteJSON(w, http.StatusOK, suggestion); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Transform handles POST /api/departments/{did}/data-formatter/transform
func (h *DataFormatterHandler) Transform(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req TransformRequest
	if !h.decode(w, r, &req) {
		return
	}
	fileID, ok := parseFileID(w, req.FileID, h.logger)
	if !ok {
		return
	}
	tool, ok := parseTargetTool(w, req.TargetTool, h.logger)
	if !ok {
		return
	}
	if len(req.Mappings) == 0 || string(req.Mappings) == "null" {
		writeError(w, http.StatusBadRequest, "missing_mappings", "mappings is required", h.logger)
		return
	}
	mapping, err := jsonutil.FlexibleStringMap(req.Mappings)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_mappings", "mappings must be an object of field names to columns", h.logger)
		return
	}
	rules, err := parseSplitRules(req.ProcessingMetadata.SplitRules)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_split_rule", err.Error(), h.logger)
		return
	}

	result, err := h.formatterService.Transform(r.Context(), sessionID, models.TransformRequest{
		DatasetID:  fileID,
		Tool:       tool,
		Mapping:    models.FieldMapping(mapping),
		SplitRules: rules,
	})
	if err != nil {
		h.handleServiceError(w, err, "transform",
			zap.String("file_id", req.FileID),
			zap.String("tool", string(tool)))
		return
	}

	sample := result.Rows
	if len(sample) > transformSampleRows {
		sample = sample[:transformSampleRows]
	}
	response := TransformResponse{
		Success: true,
		TransformedData: TransformedDataShape{
			Rows:    len(result.Rows),
			Columns: result.Columns,
			Sample:  sample,
		},
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// parseSplitRules converts client split rules. Rules without a target or source are errors.
func parseSplitRules(in []SplitRuleRequest) ([]models.SplitRule, error) {
	rules := make([]models.SplitRule, 0, len(in))
	for i, rr := range in {
		if rr.TargetField == "" || rr.SourceField == "" {
			return nil, errors.New("split rule " + strconv.Itoa(i) + " needs targetField and sourceField")
		}
		index, err := jsonutil.FlexibleIndex(rr.PartIndex, models.LastPart)
		if err != nil {
			return nil, errors.New("split rule " + strconv.Itoa(i) + ": " + err.Error())
		}
		rules = append(rules, models.SplitRule{
			TargetField: rr.TargetField,
			SourceField: rr.SourceField,
			Delimiter:   rr.Delimiter,
			PartIndex:   index,
		})
	}
	return rules, nil
}

// Download handles POST /api/departments/{did}/data-formatter/download
// CSV and JSON are sent as attachments; spreadsheets are returned inline as base64.
func (h *DataFormatterHandler) Download(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req DownloadRequest
	if !h.decode(w, r, &req) {
		return
	}

	var tool models.ToolID
	if req.TargetTool != "" {
		if tool, ok = parseTargetTool(w, req.TargetTool, h.logger); !ok {
			return
		}
	}

	result, err := h.formatterService.Download(r.Context(), sessionID, req.Format, tool)
	if err != nil {
		h.handleServiceError(w, err, "download", zap.String("format", req.Format))
		return
	}

	if result.Payload.Format == tabular.ExportExcel {
		response := ExcelDownloadResponse{
			Filename: result.Filename,
			Data:     result.Payload.Base64(),
			Encoding: "base64",
			MimeType: result.Payload.MediaType,
		}
		if err := WriteJSON(w, http.StatusOK, response); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
		return
	}

	w.Header().Set("Content-Type", result.Payload.MediaType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Payload.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Payload.Data); err != nil {
		h.logger.Error("Failed to write download", zap.Error(err))
	}
}

// SendToTool handles POST /api/departments/{did}/data-formatter/send-to-tool
func (h *DataFormatterHandler) SendToTool(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	var req SendToToolRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "missing_tool", "tool is required", h.logger)
		return
	}
	tool, err := models.ParseToolID(req.Tool)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tool", unknownToolMessage(), h.logger)
		return
	}

	redirect, err := h.formatterService.SendToTool(r.Context(), sessionID, tool)
	if err != nil {
		h.handleServiceError(w, err, "send to tool", zap.String("tool", req.Tool))
		return
	}

	if err := WriteJSON(w, http.StatusOK, SendToToolResponse{Success: true, Redirect: redirect}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Tools handles GET /api/departments/{did}/data-formatter/tools
func (h *DataFormatterHandler) Tools(w http.ResponseWriter, r *http.Request) {
	if err := WriteJSON(w, http.StatusOK, ToolsResponse{Tools: h.formatterService.Tools()}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Datasets handles GET /api/departments/{did}/data-formatter/datasets
func (h *DataFormatterHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	datasets, err := h.formatterService.ListDatasets(r.Context())
	if err != nil {
		h.handleServiceError(w, err, "list datasets")
		return
	}
	if datasets == nil {
		datasets = []*models.UploadedDataset{}
	}

	if err := WriteJSON(w, http.StatusOK, DatasetsResponse{Datasets: datasets, Total: len(datasets)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ToolData handles GET /api/departments/{did}/tools/{tool}/data
func (h *DataFormatterHandler) ToolData(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	tool, ok := ParseToolID(w, r, h.logger)
	if !ok {
		return
	}

	data, err := h.formatterService.ToolData(r.Context(), sessionID, tool)
	if err != nil {
		h.handleServiceError(w, err, "tool data", zap.String("tool", string(tool)))
		return
	}

	response := ToolDataResponse{
		Tool:       data.Tool,
		SystemType: data.SystemType,
		Columns:    data.Columns,
		Rows:       data.Rows,
	}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func (h *DataFormatterHandler) tooLargeMessage() string {
	if mb := h.maxUploadBytes >> 20; mb > 0 {
		return "File exceeds the upload limit of " + strconv.FormatInt(mb, 10) + " MB"
	}
	return "File exceeds the upload limit"
}

func (h *DataFormatterHandler) sessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := session.IDFromContext(r.Context())
	if !ok {
		h.logger.Error("Request reached data formatter without a session")
		writeError(w, http.StatusInternalServerError, "session_error", "Session unavailable", h.logger)
		return "", false
	}
	return id, true
}

func (h *DataFormatterHandler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request body", h.logger)
		return false
	}
	return true
}

// handleServiceError maps service errors to responses. Unexpected errors are logged
// and reported without detail.
func (h *DataFormatterHandler) handleServiceError(w http.ResponseWriter, err error, op string, fields ...zap.Field) {
	switch {
	case errors.Is(err, apperrors.ErrUnsupportedFormat):
		writeError(w, http.StatusBadRequest, "file_type_not_allowed", "File type not allowed", h.logger)
	case errors.Is(err, apperrors.ErrEmptyDataset):
		writeError(w, http.StatusBadRequest, "empty_dataset", "The file has no data rows", h.logger)
	case errors.Is(err, apperrors.ErrNotFound):
		writeError(w, http.StatusNotFound, "dataset_not_found", "Dataset not found, please upload the file first", h.logger)
	case errors.Is(err, apperrors.ErrNoTransformedData):
		writeError(w, http.StatusNotFound, "no_transformed_data", "No transformed data, please run a transform first", h.logger)
	case errors.Is(err, apperrors.ErrUnknownTool):
		writeError(w, http.StatusBadRequest, "unknown_tool", unknownToolMessage(), h.logger)
	case errors.Is(err, apperrors.ErrUnsupportedExportFormat):
		writeError(w, http.StatusBadRequest, "unsupported_export_format", "Unsupported format, expected one of: csv, json, excel", h.logger)
	case errors.Is(err, apperrors.ErrNotTransformable):
		writeError(w, http.StatusBadRequest, "not_transformable", "This file type can be analyzed but not transformed", h.logger)
	default:
		h.logger.Error("Data formatter "+op+" failed",
			append(fields, zap.String("error", logging.SanitizeError(err)))...)
		writeError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred", h.logger)
	}
}
