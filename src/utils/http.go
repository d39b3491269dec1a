package utils

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"github.com/username/datadissem/src/logger"
)

// Error codes returned alongside the message for errors a client can act on.
const (
	CodeDateRequired  = "DATE_REQUIRED"
	CodeChartRequired = "CHART_REQUIRED"
	CodeUnauthorized  = "UNAUTHORIZED"
)

// SendJSONError writes {"error": message} with the given status.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	SendJSONErrorCode(w, message, "", statusCode)
}

// SendJSONErrorCode is SendJSONError with a machine-readable code.
func SendJSONErrorCode(w http.ResponseWriter, message, code string, statusCode int) {
	body := map[string]string{"error": message}
	if code != "" {
		body["code"] = code
	}
	logger.L.Warn("Sending JSON error to client", "message", message, "code", code, "statusCode", statusCode)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// SendJSON writes v as a JSON body.
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Error encoding JSON response", "error", err)
	}
}

// GenerateETag returns a strong ETag over the JSON encoding of v.
func GenerateETag(v any) (string, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("etag: %w", err)
	}
	sum := blake2b.Sum256(payload)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}
