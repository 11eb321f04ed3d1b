package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/alerts"
	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/repository"
)

type AlertHandler struct {
	service alerts.Service
	logger  zerolog.Logger
}

func NewAlertHandler(service alerts.Service, logger zerolog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger.With().Str("handler", "alert").Logger(),
	}
}

type createAlertRequest struct {
	ProjectID  int64   `json:"project_id"`
	CameraID   *int64  `json:"camera_id,omitempty"`
	Type       string  `json:"type"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	HappenedAt string  `json:"happened_at,omitempty"`
	ImageKey   *string `json:"image_key,omitempty"`
	ClipKey    *string `json:"clip_key,omitempty"`
	Metadata   *string `json:"metadata,omitempty"`
}

type reviewAlertRequest struct {
	Status string `json:"status"`
	Note   string `json:"note,omitempty"`
}

func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}

	var happenedAt time.Time
	if raw := strings.TrimSpace(req.HappenedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, apperr.Validation("happened_at must be RFC 3339"))
			return
		}
		happenedAt = parsed
	}

	alert, err := h.service.Create(r.Context(), alerts.CreateAlertParams{
		ProjectID:  req.ProjectID,
		CameraID:   req.CameraID,
		Type:       req.Type,
		Severity:   req.Severity,
		Confidence: req.Confidence,
		HappenedAt: happenedAt,
		ImageKey:   req.ImageKey,
		ClipKey:    req.ClipKey,
		Metadata:   req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}

func (h *AlertHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(mux.Vars(r)["alertID"])
	if err != nil {
		writeError(w, err)
		return
	}

	alert, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) GetByProject(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	projectID, err := pathID(vars["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}
	alertID, err := pathID(vars["alertID"])
	if err != nil {
		writeError(w, err)
		return
	}

	alert, err := h.service.GetByProject(r.Context(), alertID, projectID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

// Search lists alerts newest-first with every filter optional.
func (h *AlertHandler) Search(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	page := pageFromQuery(r)

	items, total, err := h.service.Search(r.Context(), filter, page)
	if err != nil {
		h.logger.Error().Err(err).Msg("alert search failed")
		writeError(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *AlertHandler) Review(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromRequest(r)
	if !ok {
		writeError(w, apperr.ErrUnauthenticated)
		return
	}

	id, err := pathID(mux.Vars(r)["alertID"])
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}

	alert, err := h.service.Review(r.Context(), identity, id, alerts.ReviewParams{
		Status: req.Status,
		Note:   req.Note,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, alert)
}

func (h *AlertHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(mux.Vars(r)["alertID"])
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func filterFromQuery(r *http.Request) repository.AlertFilter {
	return repository.AlertFilter{
		ProjectID:      int64Query(r, "project_id"),
		CameraID:       int64Query(r, "camera_id"),
		Type:           strings.TrimSpace(r.URL.Query().Get("type")),
		Severity:       strings.TrimSpace(r.URL.Query().Get("severity")),
		Status:         strings.TrimSpace(r.URL.Query().Get("status")),
		MinConfidence:  float64Query(r, "min_confidence"),
		MaxConfidence:  float64Query(r, "max_confidence"),
		HappenedAfter:  timeQuery(r, "happened_after"),
		HappenedBefore: timeQuery(r, "happened_before"),
	}
}
