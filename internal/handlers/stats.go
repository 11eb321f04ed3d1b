package handlers

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/repository"
	"github.com/safesite/safesite-api/internal/stats"
)

type StatsHandler struct {
	service stats.Service
	logger  zerolog.Logger
}

func NewStatsHandler(service stats.Service, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{
		service: service,
		logger:  logger.With().Str("handler", "stats").Logger(),
	}
}

// Grouped returns alert counts bucketed by the requested dimension. The same
// filters as the alert search apply.
func (h *StatsHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	dim := repository.GroupBy(strings.TrimSpace(r.URL.Query().Get("group_by")))
	switch dim {
	case repository.GroupByType, repository.GroupByWeekday, repository.GroupByProject, repository.GroupByMonth:
	case "":
		dim = repository.GroupByType
	default:
		writeError(w, apperr.Validation("unsupported group_by dimension"))
		return
	}

	buckets, err := h.service.Grouped(r.Context(), filterFromQuery(r), dim)
	if err != nil {
		h.logger.Error().Err(err).Str("group_by", string(dim)).Msg("grouped stats failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"group_by": string(dim),
		"buckets":  buckets,
	})
}

// Dashboard accepts the same query filters as the alert search and applies
// them to every widget.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error().Err(err).Msg("dashboard build failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}
