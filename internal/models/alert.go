package models

import (
	"time"
)

type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

func IsValidSeverity(s AlertSeverity) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type AlertStatus string

const (
	StatusNew          AlertStatus = "NEW"
	StatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	StatusUnderReview  AlertStatus = "UNDER_REVIEW"
	StatusResolved     AlertStatus = "RESOLVED"
	StatusDismissed    AlertStatus = "DISMISSED"
)

func IsValidStatus(s AlertStatus) bool {
	switch s {
	case StatusNew, StatusAcknowledged, StatusUnderReview, StatusResolved, StatusDismissed:
		return true
	}
	return false
}

// Alert is a persisted record of a detected or reported safety violation.
type Alert struct {
	ID         int64         `json:"id" db:"id"`
	ProjectID  int64         `json:"project_id" db:"project_id"`
	CameraID   *int64        `json:"camera_id,omitempty" db:"camera_id"`
	Type       string        `json:"type" db:"type"`
	Severity   AlertSeverity `json:"severity" db:"severity"`
	Confidence float64       `json:"confidence" db:"confidence"`
	Status     AlertStatus   `json:"alert_status" db:"alert_status"`
	HappenedAt time.Time     `json:"happened_at" db:"happened_at"`
	ImageKey   *string       `json:"image_key,omitempty" db:"image_key"`
	ClipKey    *string       `json:"clip_key,omitempty" db:"clip_key"`
	Metadata   *string       `json:"metadata,omitempty" db:"metadata"`
	ReviewerID *string       `json:"reviewer_id,omitempty" db:"reviewer_id"`
	ReviewNote *string       `json:"review_note,omitempty" db:"review_note"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
}

// DedupCameraID returns the camera component of the alert's dedup key,
// with 0 standing in for camera-less alerts.
func (a *Alert) DedupCameraID() int64 {
	if a.CameraID == nil {
		return 0
	}
	return *a.CameraID
}
