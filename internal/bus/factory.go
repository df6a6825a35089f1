package bus

import (
	"fmt"
	"strings"

	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/logger"
)

// ConsumerGroup is the Kafka consumer group used by gauge subscribers.
const ConsumerGroup = "gauge"

// NewBus builds the bus selected by cfg. When cfg.EventLog is set the bus
// is wrapped in a JournaledBus.
func NewBus(cfg config.BusConfig, log *logger.Logger) (Bus, error) {
	if log == nil {
		log = logger.Discard()
	}

	var b Bus
	switch strings.ToLower(cfg.Type) {
	case "memory", "":
		b = NewMemoryBus(log)

	case "kafka":
		brokers := ParseKafkaBrokers(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, errors.New(errors.CodeValidation, "kafka brokers not configured")
		}
		kb, err := NewKafkaBus(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: ConsumerGroup,
			ClientID:      "gauge",
			Topics:        kafkaTopics(cfg),
			Log:           log,
		})
		if err != nil {
			return nil, err
		}
		b = kb

	default:
		return nil, errors.New(errors.CodeValidation, fmt.Sprintf("unknown bus type: %s", cfg.Type))
	}

	if cfg.EventLog == "" {
		return b, nil
	}
	journal, err := OpenEventLog(cfg.EventLog)
	if err != nil {
		b.Close()
		return nil, err
	}
	return NewJournaledBus(b, journal, log), nil
}

// kafkaTopics routes run completions to the configured topic. Failures go
// to "<topic>.failed".
func kafkaTopics(cfg config.BusConfig) map[string]string {
	if cfg.KafkaTopic == "" {
		return nil
	}
	return map[string]string{
		TopicRunCompleted: cfg.KafkaTopic,
		TopicRunFailed:    cfg.KafkaTopic + ".failed",
	}
}
