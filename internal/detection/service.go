package detection

import (
	"context"
	"database/sql"
	"encoding/base64"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/alerts"
	"github.com/safesite/safesite-api/internal/apperr"
	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/repository"
	"github.com/safesite/safesite-api/internal/storage"
)

// FeedEvent is one detection emitted by a camera analysis worker. Timestamps
// arrive as local wall-clock strings; the image is inline base64.
type FeedEvent struct {
	CameraID    int64
	Codes       []string
	Title       string
	Timestamp   string
	Confidence  *float64
	ImageBase64 string
}

type Service interface {
	Ingest(ctx context.Context, event FeedEvent) (models.Alert, error)
}

type service struct {
	cameras  repository.CameraRepository
	alerts   alerts.Service
	blobs    storage.BlobStore
	location *time.Location
	logger   zerolog.Logger
}

func NewService(cameras repository.CameraRepository, alertSvc alerts.Service, blobs storage.BlobStore, logger zerolog.Logger) Service {
	// Detection workers report wall-clock time at the site, not UTC.
	location, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		location = time.Local
	}
	return &service{
		cameras:  cameras,
		alerts:   alertSvc,
		blobs:    blobs,
		location: location,
		logger:   logger.With().Str("component", "detection_service").Logger(),
	}
}

// Ingest turns a raw detection into a persisted alert. The camera must exist;
// everything else degrades: unparseable timestamps fall back to now, a failed
// image store drops the attachment but keeps the alert.
func (s *service) Ingest(ctx context.Context, event FeedEvent) (models.Alert, error) {
	camera, err := s.cameras.GetByID(ctx, event.CameraID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.Alert{}, apperr.ErrCameraNotFound
		}
		return models.Alert{}, err
	}

	violation := alerts.Classify(event.Codes, event.Title)
	happenedAt := s.parseTimestamp(event.Timestamp)
	imageKey := s.storeImage(event.ImageBase64)

	confidence := 0.0
	if event.Confidence != nil {
		confidence = *event.Confidence
	}

	cameraID := camera.ID
	return s.alerts.Create(ctx, alerts.CreateAlertParams{
		ProjectID:  camera.ProjectID,
		CameraID:   &cameraID,
		Type:       string(violation),
		Severity:   string(models.SeverityHigh),
		Confidence: confidence,
		HappenedAt: happenedAt,
		ImageKey:   imageKey,
	})
}

// parseTimestamp accepts "2006-01-02 15:04:05" with an optional fractional
// second part, interpreted in the site's timezone.
func (s *service) parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Now()
	}
	for _, layout := range []string{"2006-01-02 15:04:05.999999", "2006-01-02 15:04:05"} {
		if ts, err := time.ParseInLocation(layout, raw, s.location); err == nil {
			return ts
		}
	}
	s.logger.Warn().Str("timestamp", raw).Msg("unparseable detection timestamp, using current time")
	return time.Now()
}

func (s *service) storeImage(encoded string) *string {
	if strings.TrimSpace(encoded) == "" {
		return nil
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid base64 evidence image, alert stored without attachment")
		return nil
	}
	key, err := s.blobs.Store(data)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to store evidence image, alert stored without attachment")
		return nil
	}
	return &key
}
