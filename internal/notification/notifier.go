package notification

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/models"
)

// Notifier delivers a persisted notification over one outbound channel. The
// alert is passed alongside so channels can attach evidence; it is nil for
// notifications created without one.
type Notifier interface {
	Notify(ctx context.Context, notif models.Notification, alert *models.Alert) error
}

func notifierChannelName(n Notifier) string {
	type named interface {
		String() string
	}
	if v, ok := n.(named); ok {
		return v.String()
	}
	return fmt.Sprintf("%T", n)
}

func logNotifyError(logger zerolog.Logger, err error, channel string, notif models.Notification) {
	if err == nil {
		return
	}
	logger.Warn().
		Err(err).
		Int64("notification_id", notif.ID).
		Str("username", notif.Username).
		Str("channel", channel).
		Msg("failed to deliver notification")
}
