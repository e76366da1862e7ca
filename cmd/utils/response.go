package utils

import (
	"encoding/json"
	"net/http"
	"strconv"
)

const DefaultPageSize = 10

type envelope struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Details string      `json:"details,omitempty"`
}

// WriteSuccess writes the uniform success envelope.
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// WriteError writes the uniform error envelope. details is meant for short,
// client-safe context, never internal error text.
func WriteError(w http.ResponseWriter, statusCode int, message string, details ...string) {
	resp := envelope{
		Status:  "error",
		Message: message,
	}
	if len(details) > 0 {
		resp.Details = details[0]
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(resp)
}

// Pagination reads the shared 1-based page / per_page query parameters.
func Pagination(r *http.Request) (page, perPage int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 {
		perPage = DefaultPageSize
	}
	return page, perPage
}

// TotalPages computes the page count for a paginated listing.
func TotalPages(total int64, perPage int) int64 {
	return (total + int64(perPage) - 1) / int64(perPage)
}
