package realtime

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/safesite/safesite-api/internal/config"
)

// Publisher pushes JSON payloads to a named subject. Delivery is one-way:
// a publish neither waits for nor requires a connected subscriber.
type Publisher interface {
	Publish(subject string, payload interface{}) error
}

// NatsPublisher is the production Publisher over a NATS connection. Each
// recipient has their own subject (notifications.<username>), so live
// dashboard sessions subscribe to exactly one subject.
type NatsPublisher struct {
	conn   *nats.Conn
	logger zerolog.Logger
}

func NewNatsPublisher(cfg config.NatsConfig, logger zerolog.Logger) (*NatsPublisher, error) {
	opts := []nats.Option{
		nats.Name("safesite-api"),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, err
	}

	logger.Info().Str("url", cfg.URL).Msg("NATS connection established")

	return &NatsPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "realtime").Logger(),
	}, nil
}

func (p *NatsPublisher) Publish(subject string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

// Close drains the connection, falling back to an immediate close.
func (p *NatsPublisher) Close() {
	if p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn().Err(err).Msg("failed to drain NATS connection, closing immediately")
		p.conn.Close()
	}
}

// SubjectFor returns the per-recipient subject for a username.
func SubjectFor(username string) string {
	return "notifications." + username
}
