package notification

import (
	"context"

	"github.com/safesite/safesite-api/internal/models"
	"github.com/safesite/safesite-api/internal/realtime"
)

// RealtimeNotifier publishes each notification on the recipient's own
// subject so connected dashboard sessions see it immediately.
type RealtimeNotifier struct {
	publisher realtime.Publisher
}

func NewRealtimeNotifier(publisher realtime.Publisher) *RealtimeNotifier {
	return &RealtimeNotifier{publisher: publisher}
}

func (n *RealtimeNotifier) Notify(_ context.Context, notif models.Notification, _ *models.Alert) error {
	return n.publisher.Publish(realtime.SubjectFor(notif.Username), notif)
}

func (n *RealtimeNotifier) String() string {
	return "RealtimeNotifier"
}
