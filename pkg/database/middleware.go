package database

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithDepartment creates middleware that reads the department id from the {did} path
// segment and stores it in the request context. When db is non-nil it also sets up a
// department-scoped DB connection, released after the handler returns.
// Verifying that the caller belongs to the department is the auth layer's job.
func WithDepartment(db *DB, logger *zap.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw := r.PathValue("did")
			departmentID, err := uuid.Parse(raw)
			if err != nil {
				logger.Debug("Invalid department ID in path", zap.String("department_id", raw))
				writeError(w, http.StatusBadRequest, "invalid_department_id", "Invalid department ID format")
				return
			}

			ctx := SetDepartmentID(r.Context(), departmentID)
			if db != nil {
				scope, err := db.WithTenant(ctx, departmentID)
				if err != nil {
					logger.Error("Failed to acquire tenant connection",
						zap.String("department_id", departmentID.String()),
						zap.Error(err))
					writeError(w, http.StatusInternalServerError, "database_error", "Database connection error")
					return
				}
				defer scope.Close()
				ctx = SetTenantScope(ctx, scope)
			}

			next(w, r.WithContext(ctx))
		}
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  errorCode,
	})
}
