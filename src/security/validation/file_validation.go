package validation

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/username/datadissem/src/logger"
)

// Dataset file kinds accepted for upload.
const (
	KindCSV  = "csv"
	KindXLSX = "xlsx"
)

// xlsx files are zip containers.
var zipMagic = []byte("PK\x03\x04")

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"text/plain":               true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"application/octet-stream": true, // curl default for -F without type
}

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if !AllowedClientContentTypes[ct] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("%w: client-declared file type '%s' is not allowed for dataset upload", ErrValidationFailed, contentType)
	}
	return nil
}

// isBinaryContent checks if a buffer contains null bytes or invalid UTF-8.
func isBinaryContent(buf []byte) bool {
	return bytes.IndexByte(buf, 0) != -1 || !utf8.Valid(buf)
}

// DetectDatasetKind inspects the first bytes of an upload and decides whether it
// is an xlsx workbook or a text CSV. The reader is rewound before returning.
func DetectDatasetKind(file io.ReadSeeker, filename string) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: file is nil", ErrValidationFailed)
	}

	buffer := make([]byte, 1024)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, seekErr := file.Seek(0, io.SeekStart); seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}
	if n == 0 {
		return "", fmt.Errorf("%w: file is empty", ErrValidationFailed)
	}
	head := buffer[:n]

	if bytes.HasPrefix(head, zipMagic) {
		if ext := strings.ToLower(filepath.Ext(filename)); ext != "" && ext != ".xlsx" {
			logger.L.Warn("Zip content with unexpected extension", "filename", filename)
			return "", fmt.Errorf("%w: zip content is only accepted as .xlsx", ErrValidationFailed)
		}
		return KindXLSX, nil
	}

	if isBinaryContent(head) {
		logger.L.Warn("File rejected: Binary content detected in text upload", "filename", filename)
		return "", fmt.Errorf("%w: file appears to be binary, not CSV or xlsx", ErrValidationFailed)
	}

	detected := strings.ToLower(strings.Split(http.DetectContentType(head), ";")[0])
	switch detected {
	case "text/plain", "text/csv", "application/csv":
		return KindCSV, nil
	}
	logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
	return "", fmt.Errorf("%w: detected file content type '%s' is not allowed", ErrValidationFailed, detected)
}
