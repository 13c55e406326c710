package pixdex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	driver   string // "valkey", "redis" or "postgres"
	addrs    []string
	password string
	dsn      string

	embedder  Embedder
	cacheSize int

	weights          *weights
	vectorDimensions int
	hnswM            int
	hnswEFConstruct  int
	keyPrefix        string

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

type weights struct {
	visual, text float64
}

// WithValkey connects to a Valkey instance with the valkey-search module.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis connects to a Redis 8+ instance (query engine enabled).
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithPostgres connects to Postgres with the pgvector extension.
func WithPostgres(dsn string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "postgres"
		c.dsn = dsn
	})
}

// WithEmbedder sets the query embedding provider. Required: it must embed
// text into the same space the stored images were embedded in.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingCacheSize bounds the in-process query embedding cache.
// Default: 1024 entries.
func WithEmbeddingCacheSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheSize = size
	})
}

// WithWeights sets the fusion weights. Defaults: visual 0.6, text 0.4.
func WithWeights(visual, text float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.weights = &weights{visual: visual, text: text}
	})
}

// WithVectorDimensions sets the embedding dimension used for new indexes.
// Defaults to 512 (CLIP ViT-B/32).
func WithVectorDimensions(dim int) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorDimensions = dim
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=64.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithKeyPrefix namespaces Redis/Valkey keys and index names.
// Default: "pixdex:". Ignored on Postgres.
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
