package bus

import (
	"context"

	"github.com/gaugekit/gauge/internal/pkg/logger"
)

// JournaledBus records every published event in an EventLog before
// handing it to the wrapped bus.
type JournaledBus struct {
	inner   Bus
	journal *EventLog
	log     *logger.Logger
}

// NewJournaledBus wraps inner. log may be nil.
func NewJournaledBus(inner Bus, journal *EventLog, log *logger.Logger) *JournaledBus {
	if log == nil {
		log = logger.Discard()
	}
	return &JournaledBus{inner: inner, journal: journal, log: log}
}

// Journal returns the wrapped event log.
func (b *JournaledBus) Journal() *EventLog { return b.journal }

// Publish journals the event, then publishes it. A journal failure is
// logged and does not block delivery.
func (b *JournaledBus) Publish(ctx context.Context, topic string, event Event) error {
	if err := b.journal.Append(topic, event); err != nil {
		b.log.WithError(err).Warn("Failed to journal event", "topic", topic, "event_id", event.ID)
	}
	return b.inner.Publish(ctx, topic, event)
}

// Subscribe delegates to the inner bus.
func (b *JournaledBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the journal and the inner bus.
func (b *JournaledBus) Close() error {
	if err := b.journal.Close(); err != nil {
		b.log.WithError(err).Warn("Failed to close event journal")
	}
	return b.inner.Close()
}
