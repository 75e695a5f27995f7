package signals

import (
	"log/slog"
	"net/http"

	"github.com/quantboard/signal-admin/internal/api"
)

type SignalHandler struct {
	repo   SignalRepo
	logger *slog.Logger
}

func NewSignalHandler(repo SignalRepo, logger *slog.Logger) *SignalHandler {
	return &SignalHandler{
		repo:   repo,
		logger: logger,
	}
}

// List godoc
// @Summary List trade signals
// @Tags signals
// @Produce json
// @Success 200 {array} TradeSignal
// @Failure 500 {object} map[string]string
// @Router /trade-signals [get]
func (h *SignalHandler) List(w http.ResponseWriter, r *http.Request) {
	signals, err := h.repo.ListTradeSignals(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to get trade signals", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to get trade signals")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, signals)
}
