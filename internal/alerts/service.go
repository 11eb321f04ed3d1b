package alerts

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/dedup"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/notification"
	"github.com/safesite/safesite-api/internal/repository"
)

// CreateAlertParams carries a manually reported alert before persistence.
type CreateAlertParams struct {
	ProjectID  int64
	CameraID   *int64
	Type       string
	Severity   string
	Confidence float64
	HappenedAt time.Time
	ImageKey   *string
	ClipKey    *string
	Metadata   *string
}

type ReviewParams struct {
	Status string
	Note   string
}

type Service interface {
	Create(ctx context.Context, params CreateAlertParams) (models.Alert, error)
	Get(ctx context.Context, id int64) (models.Alert, error)
	GetByProject(ctx context.Context, id, projectID int64) (models.Alert, error)
	Search(ctx context.Context, filter repository.AlertFilter, page repository.PageRequest) ([]models.Alert, int64, error)
	Review(ctx context.Context, identity authz.Identity, id int64, params ReviewParams) (models.Alert, error)
	Delete(ctx context.Context, id int64) error
	RunNotificationGate(ctx context.Context, alert models.Alert)
}

type service struct {
	alerts        repository.AlertRepository
	projects      repository.ProjectRepository
	cameras       repository.CameraRepository
	locker        *dedup.Locker
	notifications notification.Service
	lockTTL       time.Duration
	logger        zerolog.Logger
}

func NewService(
	alerts repository.AlertRepository,
	projects repository.ProjectRepository,
	cameras repository.CameraRepository,
	locker *dedup.Locker,
	notifications notification.Service,
	lockTTL time.Duration,
	logger zerolog.Logger,
) Service {
	return &service{
		alerts:        alerts,
		projects:      projects,
		cameras:       cameras,
		locker:        locker,
		notifications: notifications,
		lockTTL:       lockTTL,
		logger:        logger.With().Str("component", "alert_service").Logger(),
	}
}

// Create validates references, persists the alert as NEW and runs it through
// the notification gate.
func (s *service) Create(ctx context.Context, params CreateAlertParams) (models.Alert, error) {
	if strings.TrimSpace(params.Type) == "" {
		return models.Alert{}, apperr.Validation("alert type is required")
	}
	severity := models.AlertSeverity(strings.ToUpper(params.Severity))
	if !models.IsValidSeverity(severity) {
		return models.Alert{}, apperr.Validation("invalid severity")
	}

	if _, err := s.projects.GetByID(ctx, params.ProjectID); err != nil {
		if err == sql.ErrNoRows {
			return models.Alert{}, apperr.ErrProjectNotFound
		}
		return models.Alert{}, err
	}
	if params.CameraID != nil {
		if _, err := s.cameras.GetByID(ctx, *params.CameraID); err != nil {
			if err == sql.ErrNoRows {
				return models.Alert{}, apperr.ErrCameraNotFound
			}
			return models.Alert{}, err
		}
	}

	happenedAt := params.HappenedAt
	if happenedAt.IsZero() {
		happenedAt = time.Now()
	}

	alert := models.Alert{
		ProjectID:  params.ProjectID,
		CameraID:   params.CameraID,
		Type:       strings.TrimSpace(params.Type),
		Severity:   severity,
		Confidence: params.Confidence,
		Status:     models.StatusNew,
		HappenedAt: happenedAt,
		ImageKey:   params.ImageKey,
		ClipKey:    params.ClipKey,
		Metadata:   params.Metadata,
	}

	saved, err := s.alerts.Create(ctx, alert)
	if err != nil {
		return models.Alert{}, translateConstraintErr(err)
	}

	s.logger.Info().
		Int64("alert_id", saved.ID).
		Int64("project_id", saved.ProjectID).
		Str("type", saved.Type).
		Str("severity", string(saved.Severity)).
		Msg("alert created")

	s.RunNotificationGate(ctx, saved)
	return saved, nil
}

func (s *service) Get(ctx context.Context, id int64) (models.Alert, error) {
	alert, err := s.alerts.GetByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Alert{}, apperr.ErrAlertNotFound
		}
		return models.Alert{}, err
	}
	return alert, nil
}

func (s *service) GetByProject(ctx context.Context, id, projectID int64) (models.Alert, error) {
	alert, err := s.alerts.GetByIDAndProject(ctx, id, projectID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Alert{}, apperr.ErrAlertNotFound
		}
		return models.Alert{}, err
	}
	return alert, nil
}

func (s *service) Search(ctx context.Context, filter repository.AlertFilter, page repository.PageRequest) ([]models.Alert, int64, error) {
	return s.alerts.Search(ctx, filter, page)
}

// Review transitions an alert's status and stamps the acting reviewer.
func (s *service) Review(ctx context.Context, identity authz.Identity, id int64, params ReviewParams) (models.Alert, error) {
	status := models.AlertStatus(strings.ToUpper(params.Status))
	if !models.IsValidStatus(status) {
		return models.Alert{}, apperr.Validation("invalid alert status")
	}

	alert, err := s.Get(ctx, id)
	if err != nil {
		return models.Alert{}, err
	}

	alert.Status = status
	reviewer := identity.UserID
	alert.ReviewerID = &reviewer
	if note := strings.TrimSpace(params.Note); note != "" {
		alert.ReviewNote = &note
	}

	updated, err := s.alerts.Update(ctx, alert)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Alert{}, apperr.ErrAlertNotFound
		}
		return models.Alert{}, err
	}

	s.logger.Info().
		Int64("alert_id", updated.ID).
		Str("status", string(updated.Status)).
		Str("reviewer_id", reviewer).
		Msg("alert reviewed")
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.alerts.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return apperr.ErrAlertNotFound
		}
		return err
	}
	return nil
}

// RunNotificationGate decides whether a freshly stored alert reaches the
// dispatch fan-out. Only NEW alerts are eligible. The Redis lock debounces
// repeats of the same (project, camera, type) tuple for the lock TTL, and the
// open-alert count catches repeats that survived a lock expiry. Gate failures
// never fail the ingest that triggered them.
func (s *service) RunNotificationGate(ctx context.Context, alert models.Alert) {
	if alert.Status != models.StatusNew {
		s.logger.Debug().
			Int64("alert_id", alert.ID).
			Str("status", string(alert.Status)).
			Msg("alert not NEW, skipping notification gate")
		return
	}

	key := dedup.KeyFor(alert.ProjectID, alert.DedupCameraID(), alert.Type)

	held, err := s.locker.Exists(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("dedup lock unavailable, dispatching anyway")
	} else if held {
		s.logger.Info().
			Int64("alert_id", alert.ID).
			Str("key", key).
			Msg("duplicate alert within debounce window, notification suppressed")
		return
	}

	open, err := s.alerts.Count(ctx, repository.OpenAlerts(alert.ProjectID, alert.CameraID, alert.Type))
	if err != nil {
		s.logger.Error().Err(err).Int64("alert_id", alert.ID).Msg("open alert count failed, dispatching anyway")
	} else if open > 1 {
		s.logger.Info().
			Int64("alert_id", alert.ID).
			Int64("open_alerts", open).
			Msg("repeated open alerts for tuple, notification suppressed")
		return
	}

	// The key is only set on admit, so a count-suppressed alert does not
	// extend the debounce window. Acquire is atomic: losing it means a
	// concurrent ingest for the same tuple admitted first.
	acquired, err := s.locker.Acquire(ctx, key, s.lockTTL)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("dedup lock unavailable, dispatching anyway")
	} else if !acquired {
		s.logger.Info().
			Int64("alert_id", alert.ID).
			Str("key", key).
			Msg("lost dedup acquire to a concurrent alert, notification suppressed")
		return
	}

	if err := s.notifications.DispatchForAlert(ctx, alert); err != nil {
		s.logger.Error().Err(err).Int64("alert_id", alert.ID).Msg("notification dispatch failed")
	}
}

// translateConstraintErr converts integrity violations from Postgres into the
// shared error taxonomy so handlers answer 400 instead of 500.
func translateConstraintErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && strings.HasPrefix(string(pqErr.Code), "23") {
		return apperr.Validation("alert violates a data constraint")
	}
	return err
}
