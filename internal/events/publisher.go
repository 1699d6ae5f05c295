package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/Digital-Mercenaries/zorp/internal/config"
)

// Submission lifecycle subjects
const (
	SubjectAttemptStarted  = "zorp.submission.started"
	SubjectCiphertextSaved = "zorp.submission.uploaded"
	SubjectWriteConfirmed  = "zorp.submission.written"
	SubjectAttemptFailed   = "zorp.submission.failed"
)

// Publisher emits submission lifecycle events to NATS. It is optional: when
// no NATS URL is configured every Publish is a no-op, so callers never guard.
type Publisher struct {
	nc     *nats.Conn
	logger *logrus.Logger
}

// NewPublisher connects to NATS when configured; otherwise returns a disabled
// publisher
func NewPublisher(cfg config.NATSConfig, logger *logrus.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		logger.Info("NATS not configured, event publishing disabled")
		return &Publisher{logger: logger}, nil
	}

	opts := []nats.Option{
		nats.Name("zorp-backend"),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(time.Duration(cfg.ReconnectWait)*time.Second))
	}
	if cfg.MaxReconnects > 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(time.Duration(cfg.Timeout)*time.Second))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.WithField("url", cfg.URL).Info("✅ NATS event publisher connected")
	return &Publisher{nc: nc, logger: logger}, nil
}

// Publish emits one event. Failures are logged, never propagated: event
// delivery is best-effort and must not fail the pipeline.
func (p *Publisher) Publish(subject string, payload interface{}) {
	if p == nil || p.nc == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to marshal event payload")
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Warn("failed to publish event")
	}
}

// Close drains the connection
func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	p.nc.Close()
}
