package bus

import (
	"context"
	"time"
)

// PublishRecorder receives publish timings. Implemented by the
// observability package so bus does not import it.
type PublishRecorder interface {
	RecordBusPublish(topic string, d time.Duration, err error)
}

// InstrumentedBus reports publish latency and outcome to a PublishRecorder.
type InstrumentedBus struct {
	inner    Bus
	recorder PublishRecorder
}

// NewInstrumentedBus wraps inner. A nil recorder disables recording.
func NewInstrumentedBus(inner Bus, recorder PublishRecorder) *InstrumentedBus {
	return &InstrumentedBus{inner: inner, recorder: recorder}
}

// Publish publishes and records the call.
func (b *InstrumentedBus) Publish(ctx context.Context, topic string, event Event) error {
	start := time.Now()
	err := b.inner.Publish(ctx, topic, event)
	if b.recorder != nil {
		b.recorder.RecordBusPublish(topic, time.Since(start), err)
	}
	return err
}

// Subscribe delegates to the inner bus.
func (b *InstrumentedBus) Subscribe(ctx context.Context, topic string, handler Handler) error {
	return b.inner.Subscribe(ctx, topic, handler)
}

// Close closes the inner bus.
func (b *InstrumentedBus) Close() error {
	return b.inner.Close()
}
