package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/detection"
)

// DetectionHandler receives the automated camera feed. Unlike the manual
// alert endpoint it tolerates partial payloads: only the camera id is
// required.
type DetectionHandler struct {
	service detection.Service
	logger  zerolog.Logger
}

func NewDetectionHandler(service detection.Service, logger zerolog.Logger) *DetectionHandler {
	return &DetectionHandler{
		service: service,
		logger:  logger.With().Str("handler", "detection").Logger(),
	}
}

type detectionRequest struct {
	CameraID    int64    `json:"camera_id"`
	Codes       []string `json:"codes,omitempty"`
	Title       string   `json:"title,omitempty"`
	Timestamp   string   `json:"timestamp,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	ImageBase64 string   `json:"image_base64,omitempty"`
}

func (h *DetectionHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req detectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if req.CameraID <= 0 {
		writeError(w, apperr.Validation("camera_id is required"))
		return
	}

	alert, err := h.service.Ingest(r.Context(), detection.FeedEvent{
		CameraID:    req.CameraID,
		Codes:       req.Codes,
		Title:       req.Title,
		Timestamp:   req.Timestamp,
		Confidence:  req.Confidence,
		ImageBase64: req.ImageBase64,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, alert)
}
