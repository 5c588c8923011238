package memento

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// observationSink fans context observations out to an external consumer
// (analytics, a second anticipation engine, an audit trail) alongside the
// mandatory SQLite ledger. It is a pure side channel: failures here never
// block setContext or the pattern-formation sweep, mirroring the
// orchestrator's own fire-and-forget DLQ/reply publish calls.
type observationSink struct {
	writer *kafka.Writer
	topic  string
}

// newObservationSink returns nil when no brokers are configured, matching
// the rest of the codebase's nil-collaborator-means-disabled idiom
// (embedder, LLM provider, vector store).
func newObservationSink(brokers []string, topic string) *observationSink {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &observationSink{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.LeastBytes{},
		}),
		topic: topic,
	}
}

func (s *observationSink) publish(ctx context.Context, obs ContextObservation) {
	if s == nil {
		return
	}
	payload, err := json.Marshal(obs)
	if err != nil {
		logf("observationsink", "marshal failed: %v", err)
		return
	}
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.writer.WriteMessages(writeCtx, kafka.Message{
		Topic: s.topic,
		Key:   []byte(obs.User),
		Value: payload,
	}); err != nil {
		logf("observationsink", "publish failed for user %s: %v", obs.User, err)
	}
}

func (s *observationSink) close() error {
	if s == nil {
		return nil
	}
	return s.writer.Close()
}
