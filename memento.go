package memento

import (
	"context"
	"log"
)

// Memento is the salient-memory core. It wires the persistence gateway to
// the optional external providers and owns the background workers, the
// same shape as the teacher's Engram (engram.go): one struct holding every
// collaborator, Init()/Close() lifecycle, nothing else reaches into Store
// directly.
type Memento struct {
	store     *Store
	embedder  Embedder
	llm       LLMProvider
	vectors   VectorStore
	extractor EntityExtractor
	config    Config
	locks     *keyLock
	retry     *retryQueue
	obsSink   *observationSink

	cancelForget  context.CancelFunc
	cancelPattern context.CancelFunc
}

// Init creates a Memento instance, runs DB migrations, and starts the
// background workers. Providers left nil in cfg degrade gracefully: no
// embedder means memories are stored without vectors (pending_vector_sync
// stays false since there's nothing to retry); no LLMProvider means the
// heuristic extractor is used outright.
func Init(cfg Config) (*Memento, error) {
	cfg.ApplyDefaults()

	store, err := NewStore(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	extractor := cfg.EntityExtractor
	if extractor == nil {
		extractor = newHeuristicExtractor()
	}

	m := &Memento{
		store:     store,
		embedder:  cfg.EmbeddingProvider,
		llm:       cfg.LLMProvider,
		vectors:   cfg.VectorStore,
		extractor: extractor,
		config:    cfg,
		locks:     newKeyLock(),
		retry:     newRetryQueue(cfg.RedisAddr, msDuration(cfg.RetryBackoffInitialMs), msDuration(cfg.RetryBackoffCapMs)),
		obsSink:   newObservationSink(cfg.KafkaBrokers, cfg.KafkaTopic),
	}

	m.startForgetWorker(cfg.ForgetSweepInterval)
	m.startPatternWorker(cfg.PatternSweepInterval)

	log.Printf("[memento] initialized (db=%s, embedder=%v, llm=%v, vectors=%v)",
		cfg.DBPath, m.embedder != nil, m.llm != nil, m.vectors != nil)

	return m, nil
}

// Close shuts down background workers and the database.
func (m *Memento) Close() error {
	if m.cancelForget != nil {
		m.cancelForget()
	}
	if m.cancelPattern != nil {
		m.cancelPattern()
	}
	if err := m.obsSink.close(); err != nil {
		logf("memento", "observation sink close: %v", err)
	}
	return m.store.Close()
}
