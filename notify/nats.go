// Package notify publishes sync failure notices to NATS.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/nats-io/nats.go"

	"github.com/goliatone/go-integrations/core"
)

const DefaultSubject = "integrations.sync.failed"

// Publisher is the part of *nats.Conn the notifier uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type Option func(*NATSNotifier)

func WithSubject(subject string) Option {
	return func(n *NATSNotifier) {
		if trimmed := strings.TrimSpace(subject); trimmed != "" {
			n.subject = trimmed
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(n *NATSNotifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

type NATSNotifier struct {
	publisher Publisher
	subject   string
	logger    core.Logger
}

func NewNATSNotifier(publisher Publisher, opts ...Option) (*NATSNotifier, error) {
	if publisher == nil {
		return nil, core.ConfigurationError("notify: nats publisher is required", nil)
	}
	notifier := &NATSNotifier{publisher: publisher, subject: DefaultSubject, logger: glog.Nop()}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(notifier)
	}
	return notifier, nil
}

func (n *NATSNotifier) NotifySyncFailure(ctx context.Context, notice core.SyncFailureNotice) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if notice.OccurredAt.IsZero() {
		notice.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(notice)
	if err != nil {
		return core.ExecutionError(err, "notify: encode notice failed", nil)
	}
	if err := n.publisher.Publish(n.subject, payload); err != nil {
		return core.TransportError(err, "notify: publish failed", map[string]any{
			"subject":        n.subject,
			"integration_id": notice.IntegrationID,
		})
	}
	n.logger.Debug("notify: sync failure published", "subject", n.subject, "integration_id", notice.IntegrationID, "job_id", notice.JobID)
	return nil
}

// Connect dials NATS and logs reconnects and disconnects.
func Connect(url string, logger core.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = glog.Nop()
	}
	conn, err := nats.Connect(
		url,
		nats.Name("go-integrations"),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("notify: nats reconnected", "url", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("notify: nats disconnected", "error", err.Error())
			}
		}),
	)
	if err != nil {
		return nil, core.TransportError(err, "notify: nats connect failed", map[string]any{"url": url})
	}
	return conn, nil
}

var (
	_ core.FailureNotifier = (*NATSNotifier)(nil)
	_ Publisher            = (*nats.Conn)(nil)
)
