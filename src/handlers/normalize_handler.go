package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/username/equitytracker/backend/src/config"
	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/parsers"
	"github.com/username/equitytracker/backend/src/security/validation"
	"github.com/username/equitytracker/backend/src/utils"
)

type NormalizeHandler struct {
	normalizer *parsers.ReportNormalizer
}

func NewNormalizeHandler(normalizer *parsers.ReportNormalizer) *NormalizeHandler {
	return &NormalizeHandler{normalizer: normalizer}
}

// HandleNormalize accepts a raw broker report upload and responds with the
// simplified 6-column CSV as text.
func (h *NormalizeHandler) HandleNormalize(w http.ResponseWriter, r *http.Request) {
	file, ok := readCSVUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	normalized, err := h.normalizer.Normalize(file)
	if err != nil {
		switch {
		case errors.Is(err, parsers.ErrNoTradeRows):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, parsers.ErrParseFailed):
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error normalizing report", "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(normalized)); err != nil {
		logger.L.Error("Error writing normalized CSV response", "error", err)
	}
}

// readCSVUpload parses the multipart form, pulls the "file" field and runs
// the upload validations. On failure it writes the error response and
// returns ok=false.
func readCSVUpload(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, false
	}

	upload, fileHeader, err := r.FormFile("file")
	if err != nil {
		logger.L.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return nil, false
	}

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		upload.Close()
		logger.L.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return nil, false
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		upload.Close()
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if _, err := validation.ValidateFileContentByMagicBytes(upload); err != nil {
		upload.Close()
		logger.L.Warn("File content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	logger.L.Debug("CSV upload accepted", "filename", fileHeader.Filename, "size", fileHeader.Size)
	return upload, true
}
