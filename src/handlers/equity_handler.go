package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/username/equitytracker/backend/src/logger"
	"github.com/username/equitytracker/backend/src/parsers"
	"github.com/username/equitytracker/backend/src/services"
	"github.com/username/equitytracker/backend/src/utils"
)

type EquityHandler struct {
	txParser      *parsers.TransactionParser
	equityService services.EquityService
}

func NewEquityHandler(txParser *parsers.TransactionParser, equityService services.EquityService) *EquityHandler {
	return &EquityHandler{
		txParser:      txParser,
		equityService: equityService,
	}
}

// HandleEquity accepts a normalized CSV upload and responds with the parsed
// transactions and the equity chart series.
func (h *EquityHandler) HandleEquity(w http.ResponseWriter, r *http.Request) {
	file, ok := readCSVUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	transactions, err := h.txParser.Parse(file)
	if err != nil {
		switch {
		case errors.Is(err, parsers.ErrMissingColumns):
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, parsers.ErrParseFailed):
			utils.SendJSONError(w, fmt.Sprintf("Error parsing CSV file: %v", err), http.StatusBadRequest)
		default:
			logger.L.Error("Internal error parsing transactions", "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the file. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	report, err := h.equityService.BuildReport(r.Context(), transactions)
	if err != nil {
		logger.L.Error("Error building equity report", "error", err)
		utils.SendJSONError(w, "An internal error occurred while building the equity report. Please try again later.", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, report)
}
