package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/notification"
)

type NotificationHandler struct {
	service notification.Service
	logger  zerolog.Logger
}

func NewNotificationHandler(service notification.Service, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger.With().Str("handler", "notification").Logger(),
	}
}

type createNotificationRequest struct {
	UserID  string `json:"user_id"`
	AlertID *int64 `json:"alert_id,omitempty"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.Title) == "" {
		writeError(w, apperr.Validation("user_id and title are required"))
		return
	}

	notif, err := h.service.Create(r.Context(), req.UserID, req.AlertID, req.Title, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, notif)
}

func (h *NotificationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	page := pageFromQuery(r)
	items, total, err := h.service.ListAll(r.Context(), r.URL.Query().Get("username"), page)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list notifications")
		writeError(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromRequest(r)
	if !ok {
		writeError(w, apperr.ErrUnauthenticated)
		return
	}

	page := pageFromQuery(r)
	items, total, err := h.service.ListMine(r.Context(), identity, page)
	if err != nil {
		h.logger.Error().Err(err).Str("username", identity.Username).Msg("failed to list notifications")
		writeError(w, err)
		return
	}
	writePage(w, items, total, page)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromRequest(r)
	if !ok {
		writeError(w, apperr.ErrUnauthenticated)
		return
	}

	id, err := pathID(mux.Vars(r)["notificationID"])
	if err != nil {
		writeError(w, err)
		return
	}

	notif, err := h.service.MarkRead(r.Context(), identity, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := authz.IdentityFromRequest(r)
	if !ok {
		writeError(w, apperr.ErrUnauthenticated)
		return
	}

	affected, err := h.service.MarkAllRead(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": affected})
}
