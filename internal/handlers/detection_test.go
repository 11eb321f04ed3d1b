package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safesite/safesite-api/internal/detection"
	"github.com/safesite/safesite-api/internal/models"
)

type capturingDetectionService struct {
	events []detection.FeedEvent
}

func (c *capturingDetectionService) Ingest(_ context.Context, event detection.FeedEvent) (models.Alert, error) {
	c.events = append(c.events, event)
	return models.Alert{ID: 1, Status: models.StatusNew}, nil
}

func postDetection(t *testing.T, handler *DetectionHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/detections", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Ingest(rec, req)
	return rec
}

func TestDetectionIngest_ForwardsConfidence(t *testing.T) {
	svc := &capturingDetectionService{}
	handler := NewDetectionHandler(svc, zerolog.Nop())

	rec := postDetection(t, handler, `{"camera_id":5,"codes":["no_helmet"],"confidence":0.94}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.events, 1)
	event := svc.events[0]
	assert.Equal(t, int64(5), event.CameraID)
	require.NotNil(t, event.Confidence)
	assert.Equal(t, 0.94, *event.Confidence)
}

func TestDetectionIngest_ConfidenceOptional(t *testing.T) {
	svc := &capturingDetectionService{}
	handler := NewDetectionHandler(svc, zerolog.Nop())

	rec := postDetection(t, handler, `{"camera_id":5,"codes":["no_vest"]}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, svc.events, 1)
	assert.Nil(t, svc.events[0].Confidence)
}

func TestDetectionIngest_RequiresCameraID(t *testing.T) {
	svc := &capturingDetectionService{}
	handler := NewDetectionHandler(svc, zerolog.Nop())

	rec := postDetection(t, handler, `{"codes":["no_helmet"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.events)
}
