package detection

import (
	"context"
	"database/sql"
	"encoding/base64"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesite/safesite-api/internal/alerts"
	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
)

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

type fakeAlertService struct {
	created []alerts.CreateAlertParams
}

func (f *fakeAlertService) Create(_ context.Context, params alerts.CreateAlertParams) (models.Alert, error) {
	f.created = append(f.created, params)
	return models.Alert{
		ID:         int64(len(f.created)),
		ProjectID:  params.ProjectID,
		CameraID:   params.CameraID,
		Type:       params.Type,
		Severity:   models.AlertSeverity(params.Severity),
		Status:     models.StatusNew,
		HappenedAt: params.HappenedAt,
		ImageKey:   params.ImageKey,
	}, nil
}

func (f *fakeAlertService) Get(_ context.Context, _ int64) (models.Alert, error) {
	return models.Alert{}, nil
}

func (f *fakeAlertService) GetByProject(_ context.Context, _, _ int64) (models.Alert, error) {
	return models.Alert{}, nil
}

func (f *fakeAlertService) Search(_ context.Context, _ repository.AlertFilter, _ repository.PageRequest) ([]models.Alert, int64, error) {
	return nil, 0, nil
}

func (f *fakeAlertService) Review(_ context.Context, _ authz.Identity, _ int64, _ alerts.ReviewParams) (models.Alert, error) {
	return models.Alert{}, nil
}

func (f *fakeAlertService) Delete(_ context.Context, _ int64) error { return nil }

func (f *fakeAlertService) RunNotificationGate(_ context.Context, _ models.Alert) {}

type fakeBlobStore struct {
	stored [][]byte
	err    error
}

func (f *fakeBlobStore) Store(data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.stored = append(f.stored, data)
	return "/images/alert_test.jpg", nil
}

func setupDetection(t *testing.T) (*fakeAlertService, *fakeBlobStore, Service) {
	t.Helper()
	alertSvc := &fakeAlertService{}
	blobs := &fakeBlobStore{}
	cameras := &fakeCameraRepo{cameras: map[int64]models.Camera{
		5: {ID: 5, ProjectID: 3, Name: "North Gate"},
	}}
	return alertSvc, blobs, NewService(cameras, alertSvc, blobs, zerolog.Nop())
}

func TestIngest_UnknownCamera(t *testing.T) {
	_, _, svc := setupDetection(t)

	_, err := svc.Ingest(context.Background(), FeedEvent{CameraID: 99})

	assert.ErrorIs(t, err, apperr.ErrCameraNotFound)
}

func TestIngest_BuildsHighSeverityAlert(t *testing.T) {
	alertSvc, blobs, svc := setupDetection(t)

	image := base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	alert, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:    5,
		Codes:       []string{"no_helmet"},
		Timestamp:   "2025-06-02 14:30:05",
		ImageBase64: image,
	})

	require.NoError(t, err)
	require.Len(t, alertSvc.created, 1)
	params := alertSvc.created[0]

	assert.Equal(t, int64(3), params.ProjectID)
	require.NotNil(t, params.CameraID)
	assert.Equal(t, int64(5), *params.CameraID)
	assert.Equal(t, "NO_HARD_HAT", params.Type)
	assert.Equal(t, "HIGH", params.Severity)
	assert.Zero(t, params.Confidence)
	require.NotNil(t, params.ImageKey)
	assert.Equal(t, "/images/alert_test.jpg", *params.ImageKey)
	require.Len(t, blobs.stored, 1)
	assert.Equal(t, []byte("jpeg-bytes"), blobs.stored[0])

	assert.Equal(t, models.StatusNew, alert.Status)
}

func TestIngest_CarriesReportedConfidence(t *testing.T) {
	alertSvc, _, svc := setupDetection(t)

	confidence := 0.94
	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:   5,
		Codes:      []string{"no_helmet"},
		Confidence: &confidence,
	})

	require.NoError(t, err)
	require.Len(t, alertSvc.created, 1)
	assert.Equal(t, 0.94, alertSvc.created[0].Confidence)
}

func TestIngest_ParsesSiteLocalTimestamp(t *testing.T) {
	alertSvc, _, svc := setupDetection(t)

	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:  5,
		Codes:     []string{"no_vest"},
		Timestamp: "2025-06-02 14:30:05.123456",
	})

	require.NoError(t, err)
	happened := alertSvc.created[0].HappenedAt
	assert.Equal(t, 2025, happened.Year())
	assert.Equal(t, 14, happened.Hour())
	assert.Equal(t, 123456000, happened.Nanosecond())
}

func TestIngest_BadTimestampFallsBackToNow(t *testing.T) {
	alertSvc, _, svc := setupDetection(t)

	before := time.Now()
	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:  5,
		Codes:     []string{"no_helmet"},
		Timestamp: "last tuesday",
	})

	require.NoError(t, err)
	happened := alertSvc.created[0].HappenedAt
	assert.False(t, happened.Before(before))
	assert.False(t, happened.After(time.Now()))
}

func TestIngest_BadImageKeepsAlert(t *testing.T) {
	alertSvc, _, svc := setupDetection(t)

	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:    5,
		Codes:       []string{"no_helmet"},
		ImageBase64: "%%%not-base64%%%",
	})

	require.NoError(t, err)
	require.Len(t, alertSvc.created, 1)
	assert.Nil(t, alertSvc.created[0].ImageKey)
}

func TestIngest_StoreFailureKeepsAlert(t *testing.T) {
	alertSvc, blobs, svc := setupDetection(t)
	blobs.err = assert.AnError

	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID:    5,
		Codes:       []string{"no_helmet"},
		ImageBase64: base64.StdEncoding.EncodeToString([]byte("data")),
	})

	require.NoError(t, err)
	require.Len(t, alertSvc.created, 1)
	assert.Nil(t, alertSvc.created[0].ImageKey)
}

func TestIngest_NoCodesDangerZoneTitle(t *testing.T) {
	alertSvc, _, svc := setupDetection(t)

	_, err := svc.Ingest(context.Background(), FeedEvent{
		CameraID: 5,
		Title:    "Human in Danger Zone",
	})

	require.NoError(t, err)
	assert.Equal(t, "RESTRICTED_AREA_ENTRY", alertSvc.created[0].Type)
}
