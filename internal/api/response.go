package api

import (
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/archivesearch/internal/domain"
)

// SuccessResponse is the envelope of every 2xx body
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the body of every failed request. Code is a
// domain error code, Domain the normalized search domain.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Domain string `json:"domain,omitempty"`
}

// JSON writes data with status. Search results are never cached.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

// Error writes a failure that has no domain error behind it
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

var statusByCode = map[string]int{
	domain.ErrCodeValidation:              http.StatusBadRequest,
	domain.ErrCodeNoResults:               http.StatusNotFound,
	domain.ErrCodeArchiveOffline:          http.StatusServiceUnavailable,
	domain.ErrCodeArchiveTimeout:          http.StatusGatewayTimeout,
	domain.ErrCodeArchiveUnexpectedStatus: http.StatusBadGateway,
	domain.ErrCodeArchiveNetwork:          http.StatusBadGateway,
	domain.ErrCodeParse:                   http.StatusBadGateway,
}

// DomainErrorToHTTP maps a search failure to its HTTP status. Anything
// without a known code is a 500.
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByCode[domain.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// HandleError writes the user-facing message of err with the mapped status.
// domainName is the normalized domain when normalization got that far.
func HandleError(w http.ResponseWriter, err error, domainName string) {
	JSON(w, DomainErrorToHTTP(err), ErrorResponse{
		Error:  domain.UserMessage(err),
		Code:   domain.CodeOf(err),
		Domain: domainName,
	})
}
