package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/commonfund/escrowd/internal/errors"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Status    string                 `json:"status"`
	ErrorCode string                 `json:"error_code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler translates service errors into HTTP responses.
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleError writes an error response appropriate for err.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := r.Header.Get("X-Request-ID")

	if ee, ok := err.(*errors.EscrowError); ok {
		status := ee.HTTPStatus()
		if status >= http.StatusInternalServerError {
			h.logger.Error("request failed",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.Int("code", int(ee.Code)),
				zap.Error(err),
			)
		}
		h.writeError(w, status, ErrorResponse{
			Status:    "error",
			ErrorCode: ee.CodeString(),
			Message:   ee.Message,
			Details:   ee.Details,
			RequestID: requestID,
		})
		return
	}

	h.logger.Error("unhandled error",
		zap.String("request_id", requestID),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	h.writeError(w, http.StatusInternalServerError, ErrorResponse{
		Status:    "error",
		ErrorCode: "INTERNAL_ERROR",
		Message:   "internal server error",
		RequestID: requestID,
	})
}

// WriteErrorResponse writes an error response with an explicit status and code.
func (h *ErrorHandler) WriteErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message, requestID string) {
	h.writeError(w, statusCode, ErrorResponse{
		Status:    "error",
		ErrorCode: errorCode,
		Message:   message,
		RequestID: requestID,
	})
}

func (h *ErrorHandler) writeError(w http.ResponseWriter, statusCode int, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode error response", zap.Error(err))
	}
}
