package validation

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/username/equitytracker/backend/src/logger"
)

// allowedClientContentTypes lists the client-declared MIME types accepted for
// CSV uploads. Browsers are inconsistent about how they label CSV files.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true, // older Excel labels CSVs this way
	"text/plain":               true,
	"application/octet-stream": true,
}

// ValidateClientContentType checks the Content-Type header declared by the client.
func ValidateClientContentType(contentType string) error {
	if !allowedClientContentTypes[strings.ToLower(contentType)] {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("file type '%s' is not allowed for CSV upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes sniffs the actual file content and rejects
// anything that is not text-shaped. The read pointer is reset afterwards so
// the parser sees the full file.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", err)
	}

	detected := http.DetectContentType(buffer[:n])
	detected = strings.ToLower(strings.Split(detected, ";")[0])

	allowedDetectedTypes := map[string]bool{
		"text/plain":               true,
		"text/csv":                 true,
		"application/csv":          true,
		"application/octet-stream": true, // strict CSV parsing catches the rest
	}
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("detected file content type '%s' is not consistent with a CSV file", detected)
	}
	return detected, nil
}
