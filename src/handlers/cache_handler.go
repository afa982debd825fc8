package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/models"
	"github.com/username/equitytracker/backend/src/storage"
	"github.com/username/equitytracker/backend/src/utils"
)

type CacheHandler struct {
	store storage.PriceStore
}

func NewCacheHandler(store storage.PriceStore) *CacheHandler {
	return &CacheHandler{store: store}
}

// HandleGetCache returns the entire persisted price series. An empty or
// unreadable store responds with {} and status 200; absence is not an error.
func (h *CacheHandler) HandleGetCache(w http.ResponseWriter, r *http.Request) {
	series, err := h.store.FetchAll()
	if err != nil {
		logger.L.Warn("Price store read failed, returning empty series", "error", err)
		series = models.PriceSeries{}
	}
	if series == nil {
		series = models.PriceSeries{}
	}

	w.Header().Set("Cache-Control", "no-cache, private")
	if etag, err := utils.GenerateETag(series); err == nil && etag != "" {
		quotedETag := fmt.Sprintf("%q", etag)
		w.Header().Set("ETag", quotedETag)
		for _, clientETag := range strings.Split(r.Header.Get("If-None-Match"), ",") {
			if strings.TrimSpace(clientETag) == quotedETag {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, series)
}

// HandleUpdateCache merges the posted price series into the persisted one.
// Merge, not replace: a caller holding only part of the series must not wipe
// previously cached symbols.
func (h *CacheHandler) HandleUpdateCache(w http.ResponseWriter, r *http.Request) {
	var series models.PriceSeries
	if err := json.NewDecoder(r.Body).Decode(&series); err != nil {
		utils.SendJSONError(w, fmt.Sprintf("Invalid price series payload: %v", err), http.StatusBadRequest)
		return
	}

	if err := h.store.MergeAll(series); err != nil {
		logger.L.Error("Price store write failed", "error", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleClearCache wipes the persisted price series.
func (h *CacheHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.store.ReplaceAll(models.PriceSeries{}); err != nil {
		logger.L.Error("Price store clear failed", "error", err)
		utils.RespondWithJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": err.Error()})
		return
	}
	logger.L.Info("Price cache cleared")
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{"success": true})
}
