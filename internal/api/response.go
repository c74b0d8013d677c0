package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cloo-solutions/vsearch/internal/domain"
)

// SuccessResponse wraps successful API responses
type SuccessResponse struct {
	Data interface{} `json:"data"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Error string `json:"error"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("response encode failed: %v", err)
	}
}

// Success writes a successful JSON response
func Success(w http.ResponseWriter, status int, data interface{}) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:    http.StatusBadRequest,
	domain.ErrCodeNotFound:      http.StatusNotFound,
	domain.ErrCodeConflict:      http.StatusConflict,
	domain.ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	domain.ErrCodeUpstream:      http.StatusBadGateway,
	domain.ErrCodeUnavailable:   http.StatusServiceUnavailable,
	domain.ErrCodeInternalError: http.StatusInternalServerError,
}

// DomainErrorToHTTP maps domain errors to HTTP status codes. Anything
// that is not a DomainError is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}
	if status, ok := statusByCode[domainErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes the status for err. Domain messages go to the
// client; anything else is logged and answered with a generic message so
// database and backend details stay server side.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		log.Printf("unhandled error: %v", err)
		Error(w, status, "internal error")
		return
	}
	if domainErr.Err != nil {
		log.Printf("%s: %v", domainErr.Message, domainErr.Err)
	}
	Error(w, status, domainErr.Message)
}
