package alerts

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/dedup"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
)

type fakeAlertRepo struct {
	nextID  int64
	alerts  map[int64]models.Alert
	countFn func(filter repository.AlertFilter) (int64, error)
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{nextID: 1, alerts: map[int64]models.Alert{}}
}

func (f *fakeAlertRepo) Create(_ context.Context, alert models.Alert) (models.Alert, error) {
	alert.ID = f.nextID
	alert.CreatedAt = time.Now()
	f.nextID++
	f.alerts[alert.ID] = alert
	return alert, nil
}

func (f *fakeAlertRepo) GetByID(_ context.Context, id int64) (models.Alert, error) {
	alert, ok := f.alerts[id]
	if !ok {
		return models.Alert{}, sql.ErrNoRows
	}
	return alert, nil
}

func (f *fakeAlertRepo) GetByIDAndProject(ctx context.Context, id, projectID int64) (models.Alert, error) {
	alert, err := f.GetByID(ctx, id)
	if err != nil || alert.ProjectID != projectID {
		return models.Alert{}, sql.ErrNoRows
	}
	return alert, nil
}

func (f *fakeAlertRepo) Count(_ context.Context, filter repository.AlertFilter) (int64, error) {
	if f.countFn != nil {
		return f.countFn(filter)
	}
	var count int64
	for _, alert := range f.alerts {
		if filter.ProjectID != nil && alert.ProjectID != *filter.ProjectID {
			continue
		}
		if filter.Type != "" && alert.Type != filter.Type {
			continue
		}
		if filter.Status != "" && string(alert.Status) != filter.Status {
			continue
		}
		count++
	}
	return count, nil
}

func (f *fakeAlertRepo) Search(_ context.Context, _ repository.AlertFilter, _ repository.PageRequest) ([]models.Alert, int64, error) {
	return nil, 0, nil
}

func (f *fakeAlertRepo) Update(_ context.Context, alert models.Alert) (models.Alert, error) {
	if _, ok := f.alerts[alert.ID]; !ok {
		return models.Alert{}, sql.ErrNoRows
	}
	f.alerts[alert.ID] = alert
	return alert, nil
}

func (f *fakeAlertRepo) Delete(_ context.Context, id int64) error {
	if _, ok := f.alerts[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.alerts, id)
	return nil
}

func (f *fakeAlertRepo) CountGrouped(_ context.Context, _ repository.AlertFilter, _ repository.GroupBy) ([]models.StatBucket, error) {
	return nil, nil
}

type fakeProjectRepo struct {
	projects map[int64]models.Project
}

func (f *fakeProjectRepo) Create(_ context.Context, project models.Project) (models.Project, error) {
	return project, nil
}

func (f *fakeProjectRepo) GetByID(_ context.Context, id int64) (models.Project, error) {
	project, ok := f.projects[id]
	if !ok {
		return models.Project{}, sql.ErrNoRows
	}
	return project, nil
}

func (f *fakeProjectRepo) List(_ context.Context) ([]models.Project, error) { return nil, nil }

type fakeCameraRepo struct {
	cameras map[int64]models.Camera
}

func (f *fakeCameraRepo) Create(_ context.Context, camera models.Camera) (models.Camera, error) {
	return camera, nil
}

func (f *fakeCameraRepo) GetByID(_ context.Context, id int64) (models.Camera, error) {
	camera, ok := f.cameras[id]
	if !ok {
		return models.Camera{}, sql.ErrNoRows
	}
	return camera, nil
}

func (f *fakeCameraRepo) ListByProject(_ context.Context, _ int64) ([]models.Camera, error) {
	return nil, nil
}

type fakeDispatcher struct {
	dispatched []models.Alert
	err        error
}

func (f *fakeDispatcher) DispatchForAlert(_ context.Context, alert models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, alert)
	return nil
}

func (f *fakeDispatcher) Create(_ context.Context, _ string, _ *int64, _, _ string) (models.Notification, error) {
	return models.Notification{}, nil
}

func (f *fakeDispatcher) ListAll(_ context.Context, _ string, _ repository.PageRequest) ([]models.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeDispatcher) ListMine(_ context.Context, _ authz.Identity, _ repository.PageRequest) ([]models.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeDispatcher) MarkRead(_ context.Context, _ authz.Identity, _ int64) (models.Notification, error) {
	return models.Notification{}, nil
}

func (f *fakeDispatcher) MarkAllRead(_ context.Context, _ authz.Identity) (int64, error) {
	return 0, nil
}

type serviceFixture struct {
	repo       *fakeAlertRepo
	dispatcher *fakeDispatcher
	redis      *miniredis.Miniredis
	service    Service
}

func setupService(t *testing.T) *serviceFixture {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := newFakeAlertRepo()
	dispatcher := &fakeDispatcher{}
	projects := &fakeProjectRepo{projects: map[int64]models.Project{1: {ID: 1, Name: "Tower A"}}}
	cameras := &fakeCameraRepo{cameras: map[int64]models.Camera{2: {ID: 2, ProjectID: 1, Name: "Gate"}}}

	svc := NewService(repo, projects, cameras, dedup.NewLocker(client), dispatcher, 2*time.Minute, zerolog.Nop())
	return &serviceFixture{repo: repo, dispatcher: dispatcher, redis: srv, service: svc}
}

func validParams() CreateAlertParams {
	cameraID := int64(2)
	return CreateAlertParams{
		ProjectID:  1,
		CameraID:   &cameraID,
		Type:       "NO_HARD_HAT",
		Severity:   "high",
		Confidence: 0.9,
	}
}

func TestCreate_PersistsAndDispatches(t *testing.T) {
	fx := setupService(t)

	alert, err := fx.service.Create(context.Background(), validParams())

	require.NoError(t, err)
	assert.Equal(t, models.StatusNew, alert.Status)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.False(t, alert.HappenedAt.IsZero())
	require.Len(t, fx.dispatcher.dispatched, 1)
	assert.Equal(t, alert.ID, fx.dispatcher.dispatched[0].ID)
}

func TestCreate_UnknownProject(t *testing.T) {
	fx := setupService(t)

	params := validParams()
	params.ProjectID = 999
	_, err := fx.service.Create(context.Background(), params)

	assert.ErrorIs(t, err, apperr.ErrProjectNotFound)
	assert.Empty(t, fx.repo.alerts)
	assert.Empty(t, fx.dispatcher.dispatched)
}

func TestCreate_UnknownCamera(t *testing.T) {
	fx := setupService(t)

	cameraID := int64(777)
	params := validParams()
	params.CameraID = &cameraID
	_, err := fx.service.Create(context.Background(), params)

	assert.ErrorIs(t, err, apperr.ErrCameraNotFound)
}

func TestCreate_InvalidSeverity(t *testing.T) {
	fx := setupService(t)

	params := validParams()
	params.Severity = "EXTREME"
	_, err := fx.service.Create(context.Background(), params)

	appErr := apperr.From(err)
	assert.Equal(t, 1001, appErr.Code)
}

func TestCreate_DuplicateWithinWindowIsSuppressed(t *testing.T) {
	fx := setupService(t)
	ctx := context.Background()

	first, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)

	second, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)

	// Both alerts are stored; only the first reached the dispatcher.
	assert.Len(t, fx.repo.alerts, 2)
	require.Len(t, fx.dispatcher.dispatched, 1)
	assert.Equal(t, first.ID, fx.dispatcher.dispatched[0].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestCreate_DispatchResumesAfterLockExpiry(t *testing.T) {
	fx := setupService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)

	fx.redis.FastForward(3 * time.Minute)

	// The first alert is no longer open, so the count check passes too.
	fx.repo.countFn = func(repository.AlertFilter) (int64, error) { return 1, nil }

	_, err = fx.service.Create(ctx, validParams())
	require.NoError(t, err)
	assert.Len(t, fx.dispatcher.dispatched, 2)
}

func TestCreate_ManyOpenAlertsSuppressWithoutTakingLock(t *testing.T) {
	fx := setupService(t)
	fx.repo.countFn = func(repository.AlertFilter) (int64, error) { return 5, nil }

	_, err := fx.service.Create(context.Background(), validParams())

	require.NoError(t, err)
	assert.Empty(t, fx.dispatcher.dispatched)
	// The key is only set on admit; a count-suppressed alert must not
	// extend the debounce window.
	assert.False(t, fx.redis.Exists(dedup.KeyFor(1, 2, "NO_HARD_HAT")))
}

func TestCreate_AdmittedAgainAfterReview(t *testing.T) {
	fx := setupService(t)
	ctx := context.Background()
	identity := authz.Identity{UserID: "user-1", Username: "alice"}

	first, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)
	require.Len(t, fx.dispatcher.dispatched, 1)

	fx.redis.FastForward(3 * time.Minute)

	_, err = fx.service.Review(ctx, identity, first.ID, ReviewParams{Status: "RESOLVED"})
	require.NoError(t, err)

	_, err = fx.service.Create(ctx, validParams())
	require.NoError(t, err)
	assert.Len(t, fx.dispatcher.dispatched, 2)
}

func TestCreate_DifferentTuplesDispatchIndependently(t *testing.T) {
	fx := setupService(t)
	ctx := context.Background()

	_, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)

	params := validParams()
	params.Type = "NO_PROTECTIVE_GEAR"
	_, err = fx.service.Create(ctx, params)
	require.NoError(t, err)

	assert.Len(t, fx.dispatcher.dispatched, 2)
}

func TestRunNotificationGate_SkipsNonNewAlerts(t *testing.T) {
	fx := setupService(t)

	fx.service.RunNotificationGate(context.Background(), models.Alert{
		ID:        1,
		ProjectID: 1,
		Type:      "NO_HARD_HAT",
		Status:    models.StatusResolved,
	})

	assert.Empty(t, fx.dispatcher.dispatched)
	// No lock was taken either, so a later NEW alert still dispatches.
	assert.False(t, fx.redis.Exists(dedup.KeyFor(1, 0, "NO_HARD_HAT")))
}

func TestRunNotificationGate_DispatchFailureIsSwallowed(t *testing.T) {
	fx := setupService(t)
	fx.dispatcher.err = assert.AnError

	_, err := fx.service.Create(context.Background(), validParams())

	require.NoError(t, err)
	assert.Len(t, fx.repo.alerts, 1)
}

func TestReview(t *testing.T) {
	fx := setupService(t)
	ctx := context.Background()
	identity := authz.Identity{UserID: "user-1", Username: "alice"}

	created, err := fx.service.Create(ctx, validParams())
	require.NoError(t, err)

	reviewed, err := fx.service.Review(ctx, identity, created.ID, ReviewParams{
		Status: "resolved",
		Note:   "handled",
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, reviewed.Status)
	require.NotNil(t, reviewed.ReviewerID)
	assert.Equal(t, "user-1", *reviewed.ReviewerID)
	require.NotNil(t, reviewed.ReviewNote)
	assert.Equal(t, "handled", *reviewed.ReviewNote)
}

func TestReview_InvalidStatus(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.Review(context.Background(), authz.Identity{UserID: "u"}, 1, ReviewParams{Status: "BOGUS"})

	appErr := apperr.From(err)
	assert.Equal(t, 1001, appErr.Code)
}

func TestReview_UnknownAlert(t *testing.T) {
	fx := setupService(t)

	_, err := fx.service.Review(context.Background(), authz.Identity{UserID: "u"}, 404, ReviewParams{Status: "RESOLVED"})

	assert.ErrorIs(t, err, apperr.ErrAlertNotFound)
}

func TestDelete_UnknownAlert(t *testing.T) {
	fx := setupService(t)

	err := fx.service.Delete(context.Background(), 404)
	assert.ErrorIs(t, err, apperr.ErrAlertNotFound)
}

func TestTranslateConstraintErr(t *testing.T) {
	err := translateConstraintErr(&pq.Error{Code: "23503"})
	appErr := apperr.From(err)
	assert.Equal(t, 1001, appErr.Code)

	plain := assert.AnError
	assert.Equal(t, plain, translateConstraintErr(plain))
}
