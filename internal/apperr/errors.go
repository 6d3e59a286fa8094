package apperr

import "net/http"

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// AppError is an error that already knows which HTTP status it maps to.
// Errors holds either []FieldError or a string detail, or nil.
type AppError struct {
	Message       string
	StatusCode    int
	Errors        any
	IsOperational bool
}

func (e *AppError) Error() string {
	return e.Message
}

func New(message string, status int) *AppError {
	return &AppError{Message: message, StatusCode: status, IsOperational: true}
}

// WithDetail returns an AppError carrying a free-form detail string.
func WithDetail(message string, status int, detail string) *AppError {
	return &AppError{Message: message, StatusCode: status, Errors: detail, IsOperational: true}
}

// ValidationError is a 400 AppError with per-field messages.
type ValidationError struct {
	AppError
	Fields []FieldError
}

func NewValidation(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{
		AppError: AppError{
			Message:       message,
			StatusCode:    http.StatusBadRequest,
			Errors:        fields,
			IsOperational: true,
		},
		Fields: fields,
	}
}

func (e *ValidationError) Error() string {
	return e.Message
}
