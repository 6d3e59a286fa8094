package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"newschain/internal/apperr"
	"newschain/internal/news"
)

type errorBody struct {
	Status  any    `json:"status"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// failBody keeps "errors" in the output even when it is null.
type failBody struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Errors  any    `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status code and response body. Only validation
// failures are client errors; every other error, AppError included, is a 500
// carrying the raw message.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Info("request rejected", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, any) {
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		return vErr.StatusCode, failBody{Status: false, Message: vErr.Message, Errors: nullIfEmpty(vErr.Fields)}
	}

	if vErrs, ok := news.IsValidation(err); ok {
		return http.StatusBadRequest, failBody{Status: false, Message: "Validation failed", Errors: news.FieldErrors(vErrs)}
	}

	if fields, ok := news.DocumentValidationErrors(err); ok {
		return http.StatusBadRequest, failBody{Status: false, Message: "Validation failed", Errors: fields}
	}

	if isMongoError(err) {
		return http.StatusInternalServerError, errorBody{Status: "error", Message: "Database error occurred"}
	}

	return http.StatusInternalServerError, errorBody{Status: "error", Message: "Internal Server Error", Errors: err.Error()}
}

// isMongoError reports driver and server errors. CommandError, WriteException
// and BulkWriteException all satisfy mongo.ServerError.
func isMongoError(err error) bool {
	var (
		serverErr mongo.ServerError
		encErr    mongo.MarshalError
	)
	return errors.As(err, &serverErr) ||
		errors.As(err, &encErr) ||
		errors.Is(err, mongo.ErrClientDisconnected) ||
		errors.Is(err, mongo.ErrNoDocuments) ||
		mongo.IsNetworkError(err)
}

func nullIfEmpty(fields []apperr.FieldError) any {
	if len(fields) == 0 {
		return nil
	}
	return fields
}
