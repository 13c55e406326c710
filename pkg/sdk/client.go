package pixdex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/db"
	dbPostgres "github.com/kailas-cloud/pixdex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/pixdex/internal/db/redis"
	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
	itemrepo "github.com/kailas-cloud/pixdex/internal/repository/item"
	embeddinguc "github.com/kailas-cloud/pixdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
	retrievaluc "github.com/kailas-cloud/pixdex/internal/usecase/retrieval"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped in tests.
type retrievalUseCase interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Result, error)
}

type indexUseCase interface {
	EnsureIndexes() bool
	Wait(ctx context.Context) error
	State() indexing.State
	Close()
}

// Client is the pixdex SDK entry point.
type Client struct {
	store     db.Store
	retrieval retrievalUseCase
	indexes   indexUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the readiness check and schema setup.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		vectorDimensions: domain.DefaultVectorDimensions,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil {
		return nil, errors.New("pixdex: embedder required (use WithEmbedder)")
	}

	store, err := createStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("pixdex: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(ctx context.Context, cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		if len(cfg.addrs) == 0 {
			return nil, errors.New("pixdex: database address required")
		}
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:         cfg.addrs,
			Password:      cfg.password,
			KeyPrefix:     cfg.keyPrefix,
			LookupColumns: []string{domain.ColumnURL},
		})
		if err != nil {
			return nil, fmt.Errorf("pixdex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	case "postgres":
		s, err := dbPostgres.NewStore(ctx, dbPostgres.Config{DSN: cfg.dsn})
		if err != nil {
			return nil, fmt.Errorf("pixdex: create postgres store: %w", err)
		}
		return s, nil
	case "":
		return nil, errors.New("pixdex: database required (use WithValkey, WithRedis or WithPostgres)")
	default:
		return nil, fmt.Errorf("pixdex: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	indexPrefix := ""
	if cfg.driver != "postgres" {
		indexPrefix = cfg.keyPrefix
		if indexPrefix == "" {
			indexPrefix = dbRedis.DefaultKeyPrefix
		}
	}
	items := itemrepo.New(store, itemrepo.Config{
		Dimensions:  cfg.vectorDimensions,
		HNSW:        itemrepo.HNSWConfig{M: cfg.hnswM, EFConstruction: cfg.hnswEFConstruct},
		IndexPrefix: indexPrefix,
	})
	if err := items.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("pixdex: %w", err)
	}

	embedder, err := embeddinguc.NewLRUEmbedder(&embedderAdapter{inner: cfg.embedder}, cfg.cacheSize, nil)
	if err != nil {
		return nil, fmt.Errorf("pixdex: %w", err)
	}

	w := retrievaluc.DefaultWeights()
	if cfg.weights != nil {
		w = retrievaluc.Weights{Visual: cfg.weights.visual, Text: cfg.weights.text}
	}
	svc, err := retrievaluc.New(embedder, items, w, zap.NewNop())
	if err != nil {
		return nil, fmt.Errorf("pixdex: %w", err)
	}

	indexes := indexing.NewManager(items, zap.NewNop())
	return &Client{
		store:     store,
		retrieval: svc,
		indexes:   indexes,
		healthSvc: healthuc.New(store, nil, healthuc.WithIndexes(indexes)),
		obs:       obs,
	}, nil
}

// Close stops an in-flight index build and releases all resources.
func (c *Client) Close() {
	if c.indexes != nil {
		c.indexes.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Retrieve returns up to k images ranked for query. When the OCR text index
// is missing the ranking silently uses the visual modality only.
func (c *Client) Retrieve(ctx context.Context, query string, k int) (out []Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err, "k", k, "results", len(out)) }()

	rs, err := c.retrieval.Retrieve(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	out = make([]Result, 0, len(rs))
	for i := range rs {
		out = append(out, resultFromDomain(&rs[i]))
	}
	return out, nil
}

// EnsureIndexes schedules a background build of missing ANN indexes and
// returns immediately. It reports whether this call scheduled the build.
func (c *Client) EnsureIndexes() bool {
	start := time.Now()
	scheduled := c.indexes.EnsureIndexes()
	c.obs.observe("ensure_indexes", start, nil, "scheduled", scheduled)
	return scheduled
}

// WaitIndexes blocks until the scheduled index build finishes.
func (c *Client) WaitIndexes(ctx context.Context) error {
	if err := c.indexes.Wait(ctx); err != nil {
		return fmt.Errorf("wait indexes: %w", err)
	}
	return nil
}

// IndexState reports the current index build state.
func (c *Client) IndexState() IndexState {
	return IndexState(c.indexes.State().String())
}

func resultFromDomain(r *retrieval.Result) Result {
	it := r.Item()
	mods := r.Modalities()
	out := Result{
		Image: Image{
			ID: it.ID, URL: it.URL, Hash: it.Hash,
			Width: it.Width, Height: it.Height, Text: it.Text,
		},
		Score:        r.Score(),
		Modalities:   make([]Modality, 0, len(mods)),
		Distances:    make(map[Modality]float64, len(mods)),
		Similarities: make(map[Modality]float64, len(mods)),
	}
	for _, m := range mods {
		out.Modalities = append(out.Modalities, Modality(m))
	}
	for m, d := range r.Distances() {
		out.Distances[Modality(m)] = d
	}
	for m, s := range r.Similarities() {
		out.Similarities[Modality(m)] = s
	}
	return out
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
