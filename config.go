package memento

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds Memento initialization parameters (spec.md §6). Generalized
// from the teacher's Config in types.go, which only had storage/provider/
// scoring/decay knobs for a single-table memory store.
type Config struct {
	// Storage
	DBPath string // default ./data/memento.db

	// Identity defaults
	DefaultUserID string

	// Relationship / retrieval
	ColdThresholdDays    int     // default 30
	MinConfidenceSurface float64 // default 0.5

	// Anticipation
	PatternFormationDays int // default 21
	PatternMinCount      int // default 5

	// Behavioral identity
	IdentificationThreshold float64 // default 0.75
	FingerprintReadySamples int     // default 50

	// Provider deadlines
	LLMTimeoutMs      int // default 30000
	EmbedderTimeoutMs int // default 15000

	// Retry/backpressure
	RetryBackoffInitialMs int // default 100
	RetryBackoffCapMs     int // default 2000

	// Context frames
	MaxDevicesPerUser    int // default 16
	UnifiedFusionWindowMin int // default 30

	// Forget lifecycle
	HardDeleteAfterDays int // default 30

	// Providers (nil = use defaults / disabled)
	EmbeddingProvider Embedder
	LLMProvider       LLMProvider
	VectorStore       VectorStore
	EntityExtractor   EntityExtractor

	// Scoring (nil = use defaults)
	SalienceWeights *SalienceWeights

	// Background workers
	ForgetSweepInterval  time.Duration // default 1h; drives hard-delete + pending_vector_retry drain
	PatternSweepInterval time.Duration // default 1h; drives pattern formation pass

	// Optional domain-stack extras (nil = disabled)
	RedisAddr string // if set, failed vector upserts are also pushed onto a Redis list; retry state stays in-process
	KafkaBrokers []string // if set, observations also fan out to this Kafka topic
	KafkaTopic   string

	// resolved after ApplyDefaults
	resolved bool
}

// ApplyDefaults fills zero-valued fields with sensible defaults, mirroring
// the teacher's Config.ApplyDefaults in types.go.
func (c *Config) ApplyDefaults() {
	if c.resolved {
		return
	}
	if c.DBPath == "" {
		c.DBPath = "./data/memento.db"
	}
	if c.DefaultUserID == "" {
		c.DefaultUserID = "default"
	}
	if c.ColdThresholdDays == 0 {
		c.ColdThresholdDays = 30
	}
	if c.MinConfidenceSurface == 0 {
		c.MinConfidenceSurface = 0.5
	}
	if c.PatternFormationDays == 0 {
		c.PatternFormationDays = 21
	}
	if c.PatternMinCount == 0 {
		c.PatternMinCount = 5
	}
	if c.IdentificationThreshold == 0 {
		c.IdentificationThreshold = 0.75
	}
	if c.FingerprintReadySamples == 0 {
		c.FingerprintReadySamples = 50
	}
	if c.LLMTimeoutMs == 0 {
		c.LLMTimeoutMs = 30000
	}
	if c.EmbedderTimeoutMs == 0 {
		c.EmbedderTimeoutMs = 15000
	}
	if c.RetryBackoffInitialMs == 0 {
		c.RetryBackoffInitialMs = 100
	}
	if c.RetryBackoffCapMs == 0 {
		c.RetryBackoffCapMs = 2000
	}
	if c.MaxDevicesPerUser == 0 {
		c.MaxDevicesPerUser = 16
	}
	if c.UnifiedFusionWindowMin == 0 {
		c.UnifiedFusionWindowMin = 30
	}
	if c.HardDeleteAfterDays == 0 {
		c.HardDeleteAfterDays = 30
	}
	if c.ForgetSweepInterval == 0 {
		c.ForgetSweepInterval = time.Hour
	}
	if c.PatternSweepInterval == 0 {
		c.PatternSweepInterval = time.Hour
	}
	if c.SalienceWeights == nil {
		w := DefaultSalienceWeights()
		c.SalienceWeights = &w
	}
	c.resolved = true
}

func msDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// fileConfig is the on-disk YAML shape for LoadConfigFile. Only the plain
// scalar knobs are loadable from a file; providers are always wired in code.
type fileConfig struct {
	DBPath                  string `yaml:"db_path"`
	DefaultUserID           string `yaml:"default_user_id"`
	ColdThresholdDays       int    `yaml:"cold_threshold_days"`
	MinConfidenceSurface    float64 `yaml:"min_confidence_surface"`
	PatternFormationDays    int    `yaml:"pattern_formation_days"`
	PatternMinCount         int    `yaml:"pattern_min_count"`
	IdentificationThreshold float64 `yaml:"identification_threshold"`
	FingerprintReadySamples int    `yaml:"fingerprint_ready_samples"`
	LLMTimeoutMs            int    `yaml:"llm_timeout_ms"`
	EmbedderTimeoutMs       int    `yaml:"embedder_timeout_ms"`
	RetryBackoffInitialMs   int    `yaml:"retry_backoff_initial_ms"`
	RetryBackoffCapMs       int    `yaml:"retry_backoff_cap_ms"`
	MaxDevicesPerUser       int    `yaml:"max_devices_per_user"`
	UnifiedFusionWindowMin  int    `yaml:"unified_fusion_window_min"`
	HardDeleteAfterDays     int    `yaml:"hard_delete_after_days"`
	RedisAddr               string `yaml:"redis_addr"`
	KafkaBrokers            []string `yaml:"kafka_brokers"`
	KafkaTopic              string `yaml:"kafka_topic"`
}

// LoadConfigFile reads scalar configuration from a YAML file. Providers
// (LLM/Embedder/VectorStore) are never set from the file — callers wire
// those in code after loading. Missing keys keep their Config zero value,
// so ApplyDefaults still fills them in afterward.
func LoadConfigFile(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errInternal("config.LoadConfigFile", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, errInternal("config.LoadConfigFile", err)
	}
	cfg = Config{
		DBPath:                  fc.DBPath,
		DefaultUserID:           fc.DefaultUserID,
		ColdThresholdDays:       fc.ColdThresholdDays,
		MinConfidenceSurface:    fc.MinConfidenceSurface,
		PatternFormationDays:    fc.PatternFormationDays,
		PatternMinCount:         fc.PatternMinCount,
		IdentificationThreshold: fc.IdentificationThreshold,
		FingerprintReadySamples: fc.FingerprintReadySamples,
		LLMTimeoutMs:            fc.LLMTimeoutMs,
		EmbedderTimeoutMs:       fc.EmbedderTimeoutMs,
		RetryBackoffInitialMs:   fc.RetryBackoffInitialMs,
		RetryBackoffCapMs:       fc.RetryBackoffCapMs,
		MaxDevicesPerUser:       fc.MaxDevicesPerUser,
		UnifiedFusionWindowMin:  fc.UnifiedFusionWindowMin,
		HardDeleteAfterDays:     fc.HardDeleteAfterDays,
		RedisAddr:               fc.RedisAddr,
		KafkaBrokers:            fc.KafkaBrokers,
		KafkaTopic:              fc.KafkaTopic,
	}
	return cfg, nil
}
