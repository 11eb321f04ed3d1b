package notification

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/cache"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
	"github.com/safesite/safesite-api/internal/taskpool"
)

type Service interface {
	DispatchForAlert(ctx context.Context, alert models.Alert) error
	Create(ctx context.Context, userID string, alertID *int64, title, body string) (models.Notification, error)
	ListAll(ctx context.Context, username string, page repository.PageRequest) ([]models.Notification, int64, error)
	ListMine(ctx context.Context, identity authz.Identity, page repository.PageRequest) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, identity authz.Identity, notificationID int64) (models.Notification, error)
	MarkAllRead(ctx context.Context, identity authz.Identity) (int64, error)
}

type service struct {
	repo     repository.NotificationRepository
	users    repository.UserRepository
	alerts   repository.AlertRepository
	cache    *cache.Cache
	pool     *taskpool.Pool
	logger   zerolog.Logger
	realtime Notifier
	push     Notifier
}

// NewService builds the dispatch service. The cache, pool and either notifier
// are optional; without a pool push deliveries run synchronously on the
// caller.
func NewService(repo repository.NotificationRepository, users repository.UserRepository, alerts repository.AlertRepository, listCache *cache.Cache, pool *taskpool.Pool, logger zerolog.Logger, realtime, push Notifier) Service {
	return &service{
		repo:     repo,
		users:    users,
		alerts:   alerts,
		cache:    listCache,
		pool:     pool,
		logger:   logger.With().Str("component", "notification_service").Logger(),
		realtime: realtime,
		push:     push,
	}
}

// DispatchForAlert fans an alert out to every active admin: one persisted
// notification per recipient, then channel delivery. A recipient whose row
// fails to persist is skipped; the rest still get theirs.
func (s *service) DispatchForAlert(ctx context.Context, alert models.Alert) error {
	admins, err := s.users.ListUsersByRole(models.RoleAdmin)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s alert: %s", alert.Severity, alert.Type)
	body := fmt.Sprintf("Violation detected on project %d (camera %d)", alert.ProjectID, alert.DedupCameraID())

	for _, admin := range admins {
		notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
			UserID:  admin.ID,
			AlertID: &alert.ID,
			Title:   title,
			Body:    body,
		})
		if err != nil {
			s.logger.Error().Err(err).
				Str("user_id", admin.ID).
				Int64("alert_id", alert.ID).
				Msg("failed to persist notification")
			continue
		}
		s.deliver(ctx, notif, alert)
	}

	s.invalidateListCache(ctx)
	return nil
}

func (s *service) Create(ctx context.Context, userID string, alertID *int64, title, body string) (models.Notification, error) {
	if _, err := s.users.GetUserByID(userID); err != nil {
		if err == sql.ErrNoRows {
			return models.Notification{}, apperr.ErrUserNotFound
		}
		return models.Notification{}, err
	}
	if alertID != nil {
		if _, err := s.alerts.GetByID(ctx, *alertID); err != nil {
			if err == sql.ErrNoRows {
				return models.Notification{}, apperr.ErrAlertNotFound
			}
			return models.Notification{}, err
		}
	}

	notif, err := s.repo.Create(ctx, repository.CreateNotificationParams{
		UserID:  userID,
		AlertID: alertID,
		Title:   title,
		Body:    body,
	})
	if err != nil {
		return models.Notification{}, err
	}

	s.deliverWithoutAlert(ctx, notif)
	s.invalidateListCache(ctx)
	return notif, nil
}

// ListAll lists notifications across users, optionally narrowed to a single
// username.
func (s *service) ListAll(ctx context.Context, username string, page repository.PageRequest) ([]models.Notification, int64, error) {
	return s.repo.List(ctx, username, page)
}

type cachedPage struct {
	Items []models.Notification `json:"items"`
	Total int64                 `json:"total"`
}

func (s *service) ListMine(ctx context.Context, identity authz.Identity, page repository.PageRequest) ([]models.Notification, int64, error) {
	key := fmt.Sprintf("user:%s:page:%d:size:%d", identity.Username, page.Page, page.Size)

	if s.cache != nil {
		var cached cachedPage
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Msg("notification cache read failed")
		} else if hit {
			return cached.Items, cached.Total, nil
		}
	}

	items, total, err := s.repo.List(ctx, identity.Username, page)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedPage{Items: items, Total: total}); err != nil {
			s.logger.Warn().Err(err).Msg("notification cache write failed")
		}
	}
	return items, total, nil
}

func (s *service) MarkRead(ctx context.Context, identity authz.Identity, notificationID int64) (models.Notification, error) {
	notif, err := s.repo.GetByID(ctx, notificationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Notification{}, apperr.ErrNotificationNotFound
		}
		return models.Notification{}, err
	}
	if notif.UserID != identity.UserID {
		return models.Notification{}, apperr.ErrUnauthorized
	}

	updated, err := s.repo.MarkRead(ctx, notificationID)
	if err != nil {
		return models.Notification{}, err
	}
	s.invalidateListCache(ctx)
	return updated, nil
}

func (s *service) MarkAllRead(ctx context.Context, identity authz.Identity) (int64, error) {
	affected, err := s.repo.MarkAllRead(ctx, identity.UserID)
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		s.invalidateListCache(ctx)
	}
	return affected, nil
}

func (s *service) deliver(ctx context.Context, notif models.Notification, alert models.Alert) {
	s.runDelivery(ctx, notif, &alert)
}

func (s *service) deliverWithoutAlert(ctx context.Context, notif models.Notification) {
	s.runDelivery(ctx, notif, nil)
}

// runDelivery publishes the realtime update in-request and hands only the
// HTTP push to the worker pool, so a slow push endpoint or a saturated queue
// never costs the realtime channel.
func (s *service) runDelivery(ctx context.Context, notif models.Notification, alert *models.Alert) {
	if s.realtime != nil {
		if err := s.realtime.Notify(ctx, notif, alert); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(s.realtime), notif)
		}
	}

	if s.push == nil {
		return
	}
	task := func() {
		// The request that queued the push may be gone by the time a
		// worker picks it up.
		if err := s.push.Notify(context.Background(), notif, alert); err != nil {
			logNotifyError(s.logger, err, notifierChannelName(s.push), notif)
		}
	}

	if s.pool == nil {
		task()
		return
	}
	if !s.pool.Submit(task) {
		s.logger.Warn().
			Int64("notification_id", notif.ID).
			Msg("push queue full, notification persisted but not pushed")
	}
}

func (s *service) invalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate notification cache")
	}
}
