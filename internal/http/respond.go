package httpapi

import (
	"encoding/json"
	"net/http"
)

// Error codes carried in the response body so callers can tell failures
// apart without parsing messages.
const (
	CodeDuplicateSKU      = "duplicate_sku"
	CodeNotFound          = "not_found"
	CodeInvalidInput      = "invalid_input"
	CodeInsufficientStock = "insufficient_stock"
	CodeStoreFailure      = "store_failure"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
		"code":  code,
	})
}
