package models

import (
	"time"
)

// Notification is a per-recipient record of an alert having occurred.
// AlertID is optional: some notifications are created without a backing alert.
type Notification struct {
	ID        int64     `json:"id" db:"id"`
	AlertID   *int64    `json:"alert_id,omitempty" db:"alert_id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Username  string    `json:"username" db:"username"`
	Title     string    `json:"title" db:"title"`
	Body      string    `json:"body" db:"body"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
