// Package events publishes ledger change records for external
// indexers. Every successful mutation emits exactly one record; the
// engine never reads them back.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commonfund/escrowd/internal/model"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher emits change records for external consumers
type Publisher interface {
	Publish(ctx context.Context, event *model.ChangeEvent) error
	Close()
}

// NATSPublisher publishes change records to NATS subjects of the form
// <prefix>.<event type>
type NATSPublisher struct {
	conn          *nats.Conn
	subjectPrefix string
	logger        *zap.Logger
}

// NewNATSPublisher connects to NATS and returns a publisher
func NewNATSPublisher(url, subjectPrefix string, logger *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("escrowd"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSPublisher{
		conn:          conn,
		subjectPrefix: subjectPrefix,
		logger:        logger,
	}, nil
}

// Publish emits a change record. Publish failures are surfaced to the
// caller but must not roll back the mutation that produced the event;
// the ledger is the source of truth, indexers catch up.
func (p *NATSPublisher) Publish(ctx context.Context, event *model.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.subjectPrefix, event.Type)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	p.logger.Debug("Published change event",
		zap.String("subject", subject),
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)))

	return nil
}

// Close drains and closes the NATS connection
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Failed to drain NATS connection", zap.Error(err))
	}
}

// NopPublisher discards all change records. Used when event publishing
// is disabled.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that discards events
func NewNopPublisher() *NopPublisher {
	return &NopPublisher{}
}

// Publish discards the event
func (p *NopPublisher) Publish(ctx context.Context, event *model.ChangeEvent) error {
	return nil
}

// Close is a no-op
func (p *NopPublisher) Close() {}
