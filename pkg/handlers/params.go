package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/firegrid/firegrid-engine/pkg/models"
)

// ParseToolID extracts and validates the tool ID from the request path.
// Returns the tool and true on success, or "" and false on error
// (after writing an error response).
// Expects path parameter: tool
func ParseToolID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (models.ToolID, bool) {
	tool, err := models.ParseToolID(r.PathValue("tool"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tool", unknownToolMessage(), logger)
		return "", false
	}
	return tool, true
}

// parseFileID validates a dataset id taken from a request body.
func parseFileID(w http.ResponseWriter, raw string, logger *zap.Logger) (uuid.UUID, bool) {
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "missing_file_id", "fileId is required", logger)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_file_id", "Invalid fileId format", logger)
		return uuid.Nil, false
	}
	return id, true
}

// parseTargetTool validates a tool id taken from a request body.
func parseTargetTool(w http.ResponseWriter, raw string, logger *zap.Logger) (models.ToolID, bool) {
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "missing_target_tool", "targetTool is required", logger)
		return "", false
	}
	tool, err := models.ParseToolID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_tool", unknownToolMessage(), logger)
		return "", false
	}
	return tool, true
}

func unknownToolMessage() string {
	ids := make([]string, len(models.AllTools))
	for i, t := range models.AllTools {
		ids[i] = string(t)
	}
	return "Unknown tool, expected one of: " + strings.Join(ids, ", ")
}

// writeError writes an error response, logging if the write itself fails.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string, logger *zap.Logger) {
	if err := ErrorResponse(w, statusCode, errorCode, message); err != nil {
		logger.Error("Failed to write error response", zap.Error(err))
	}
}
