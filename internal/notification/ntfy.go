package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/config"
	"github.com/safesite/safesite-api/internal/models"
)

// NtfyNotifier pushes to a per-recipient ntfy topic. The topic is the
// configured prefix plus the recipient's username, so each admin subscribes
// to their own feed on the ntfy app.
type NtfyNotifier struct {
	enabled bool
	baseURL string
	prefix  string
	client  *http.Client
	logger  zerolog.Logger
}

func NewNtfyNotifier(cfg config.PushConfig, logger zerolog.Logger) *NtfyNotifier {
	return &NtfyNotifier{
		enabled: cfg.Enabled && cfg.BaseURL != "",
		baseURL: cfg.BaseURL,
		prefix:  cfg.TopicPrefix,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("notifier", "ntfy").Logger(),
	}
}

func (n *NtfyNotifier) Notify(ctx context.Context, notif models.Notification, alert *models.Alert) error {
	if !n.enabled {
		return nil
	}

	url := n.baseURL + "/" + n.prefix + notif.Username
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBufferString(notif.Body))
	if err != nil {
		return errors.Wrap(err, "build ntfy request")
	}

	// ntfy rejects non-ASCII bodies without an explicit UTF-8 content type.
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	req.Header.Set("Title", notif.Title)
	req.Header.Set("Priority", "5")
	req.Header.Set("Tags", "warning,construction")
	if alert != nil && alert.ImageKey != nil {
		req.Header.Set("Attach", *alert.ImageKey)
		req.Header.Set("Click", *alert.ImageKey)
		req.Header.Set("Actions", "view, View evidence, "+*alert.ImageKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post to ntfy")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return errors.Errorf("ntfy returned status %d", resp.StatusCode)
	}

	n.logger.Debug().
		Int64("notification_id", notif.ID).
		Str("username", notif.Username).
		Msg("push notification sent")
	return nil
}

func (n *NtfyNotifier) String() string {
	if !n.enabled {
		return "NtfyNotifier(disabled)"
	}
	return fmt.Sprintf("NtfyNotifier(base=%s)", n.baseURL)
}
