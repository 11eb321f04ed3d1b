package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
)

type ProjectHandler struct {
	projects repository.ProjectRepository
	cameras  repository.CameraRepository
	logger   zerolog.Logger
}

func NewProjectHandler(projects repository.ProjectRepository, cameras repository.CameraRepository, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects: projects,
		cameras:  cameras,
		logger:   logger.With().Str("handler", "project").Logger(),
	}
}

type createProjectRequest struct {
	Name      string  `json:"name"`
	Location  string  `json:"location,omitempty"`
	ManagerID *string `json:"manager_id,omitempty"`
}

type createCameraRequest struct {
	Name      string `json:"name"`
	Location  string `json:"location,omitempty"`
	StreamURL string `json:"stream_url,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, apperr.Validation("project name is required"))
		return
	}

	project, err := h.projects.Create(r.Context(), models.Project{
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		ManagerID: req.ManagerID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}

	project, err := h.projects.GetByID(r.Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, apperr.ErrProjectNotFound)
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list projects")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": projects})
}

func (h *ProjectHandler) CreateCamera(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := h.projects.GetByID(r.Context(), projectID); err != nil {
		if err == sql.ErrNoRows {
			writeError(w, apperr.ErrProjectNotFound)
			return
		}
		writeError(w, err)
		return
	}

	var req createCameraRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.Validation("invalid request body"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, apperr.Validation("camera name is required"))
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	camera, err := h.cameras.Create(r.Context(), models.Camera{
		ProjectID: projectID,
		Name:      strings.TrimSpace(req.Name),
		Location:  strings.TrimSpace(req.Location),
		StreamURL: strings.TrimSpace(req.StreamURL),
		IsActive:  active,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, camera)
}

func (h *ProjectHandler) ListCameras(w http.ResponseWriter, r *http.Request) {
	projectID, err := pathID(mux.Vars(r)["projectID"])
	if err != nil {
		writeError(w, err)
		return
	}

	cameras, err := h.cameras.ListByProject(r.Context(), projectID)
	if err != nil {
		h.logger.Error().Err(err).Int64("project_id", projectID).Msg("failed to list cameras")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": cameras})
}
