package commands

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/config"
	"github.com/kailas-cloud/pixdex/internal/db"
	dbPostgres "github.com/kailas-cloud/pixdex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/pixdex/internal/db/redis"
	"github.com/kailas-cloud/pixdex/internal/domain"
	logpkg "github.com/kailas-cloud/pixdex/internal/logger"
	"github.com/kailas-cloud/pixdex/internal/metrics"
	"github.com/kailas-cloud/pixdex/internal/repository/embcache"
	itemrepo "github.com/kailas-cloud/pixdex/internal/repository/item"
	"github.com/kailas-cloud/pixdex/internal/storage/minio"
	openaiTransport "github.com/kailas-cloud/pixdex/internal/transport/openai"
	answeruc "github.com/kailas-cloud/pixdex/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/pixdex/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/pixdex/internal/usecase/health"
	"github.com/kailas-cloud/pixdex/internal/usecase/indexing"
	ingestuc "github.com/kailas-cloud/pixdex/internal/usecase/ingest"
	retrievaluc "github.com/kailas-cloud/pixdex/internal/usecase/retrieval"
)

// app is the composition root shared by every command.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	store   db.Store
	items   *itemrepo.Repo
	objects *minio.Store // nil when object storage is not configured

	textEmbedder *openaiTransport.Embedder
	retrieval    *retrievaluc.Service
	indexes      *indexing.Manager
	ingest       *ingestuc.Service // nil without object storage
	answer       *answeruc.Service
	health       *healthuc.Service
}

// newApp loads configuration and wires storage, embedders and use cases.
// The caller must call close.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(envName)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	logger, err := logpkg.NewLogger(envName, level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRetrievalMetrics()
	metrics.RegisterIndexingMetrics()

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create database store: %w", err)
	}
	a.store = store

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	a.logger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	indexPrefix := ""
	if cfg.Database.Driver != config.DriverPostgres {
		indexPrefix = cfg.Storage.KeyPrefix
	}
	a.items = itemrepo.New(store, itemrepo.Config{
		Dimensions:  cfg.Embedding.Image.Dimensions,
		HNSW:        itemrepo.HNSWConfig{M: cfg.Index.HNSWM, EFConstruction: cfg.Index.HNSWEFConstruct},
		IndexPrefix: indexPrefix,
	})
	if err := a.items.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	a.textEmbedder = buildBaseEmbedder(cfg, cfg.Embedding.Text, a.logger)
	queryEmbedder, err := buildQueryEmbedder(cfg, a.textEmbedder, store, a.logger)
	if err != nil {
		return fmt.Errorf("build query embedder: %w", err)
	}

	weights := retrievaluc.Weights{Visual: *cfg.Retrieval.VisualWeight, Text: *cfg.Retrieval.TextWeight}
	a.retrieval, err = retrievaluc.New(queryEmbedder, a.items, weights, a.logger.Named("retrieval"))
	if err != nil {
		return fmt.Errorf("create retrieval service: %w", err)
	}
	a.indexes = indexing.NewManager(a.items, a.logger.Named("indexing"))
	a.answer = answeruc.New(a.retrieval, buildCompleter(cfg))

	healthOpts := []healthuc.Option{healthuc.WithIndexes(a.indexes)}
	if cfg.Storage.MinIO.Endpoint != "" {
		a.objects, err = minio.New(minio.Config{
			Endpoint:      cfg.Storage.MinIO.Endpoint,
			AccessKey:     cfg.Storage.MinIO.AccessKey,
			SecretKey:     cfg.Storage.MinIO.SecretKey,
			Bucket:        cfg.Storage.MinIO.Bucket,
			Region:        cfg.Storage.MinIO.Region,
			Secure:        cfg.Storage.MinIO.Secure,
			PublicBaseURL: cfg.Storage.MinIO.PublicBaseURL,
			KeyPrefix:     cfg.Storage.MinIO.ObjectPrefix,
		})
		if err != nil {
			return fmt.Errorf("create object store: %w", err)
		}
		if err := a.objects.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}
		healthOpts = append(healthOpts, healthuc.WithStorage(a.objects))

		imageEmbedder := embeddinguc.NewInstrumentedImageEmbedder(
			buildBaseEmbedder(cfg, cfg.Embedding.Image, a.logger),
			cfg.Embedding.Image.Provider, cfg.Embedding.Image.Model, a.logger,
		)
		// Stored text is embedded without the query instruction.
		docEmbedder := embeddinguc.NewInstrumentedEmbedder(
			a.textEmbedder, cfg.Embedding.Text.Provider, cfg.Embedding.Text.Model, a.logger,
		)
		a.ingest = ingestuc.New(a.items, a.objects, imageEmbedder, docEmbedder, buildOCR(cfg, a.logger), a.logger)
	} else {
		a.logger.Warn("storage.minio.endpoint is empty, uploads and backfill are disabled")
	}

	a.health = healthuc.New(store, a.textEmbedder, healthOpts...)
	return nil
}

func (a *app) close() {
	if a.indexes != nil {
		a.indexes.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

func buildStore(ctx context.Context, cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverValkey, config.DriverRedis:
		// valkey-search and the Redis query engine speak the same FT.* dialect.
		return dbRedis.NewStore(dbRedis.Config{
			Addrs:         cfg.Database.Addrs,
			Username:      cfg.Database.Username,
			Password:      cfg.Database.Password,
			KeyPrefix:     cfg.Storage.KeyPrefix,
			LookupColumns: []string{domain.ColumnURL},
		})
	case config.DriverPostgres:
		return dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:      cfg.Database.DSN,
			MaxConns: cfg.Database.MaxConns,
		})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

func buildBaseEmbedder(cfg config.Config, vc config.VectorizerConfig, logger *zap.Logger) *openaiTransport.Embedder {
	prov := cfg.Provider(vc.Provider)
	return openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:      prov.APIKey,
		BaseURL:     prov.BaseURL,
		Model:       vc.Model,
		Dimensions:  vc.Dimensions,
		Provider:    vc.Provider,
		ImageFormat: openaiTransport.ImageInputFormat(vc.ImageFormat),
		Timeout:     time.Duration(prov.TimeoutSec) * time.Second,
		Logger:      logger,
	})
}

// buildQueryEmbedder assembles the decorator chain:
// OpenAI -> Cached (Redis/Valkey only) -> Instrumented -> LRU -> Instruction.
func buildQueryEmbedder(
	cfg config.Config, base domain.Embedder, store db.Store, logger *zap.Logger,
) (domain.Embedder, error) {
	var embedder domain.Embedder = base
	if kv, ok := store.(db.KVStore); ok {
		embedder = embcache.New(base, kv, cfg.Embedding.Text.Model,
			time.Duration(cfg.Embedding.CacheTTLHours)*time.Hour, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(
		embedder, cfg.Embedding.Text.Provider, cfg.Embedding.Text.Model, logger,
	)

	lru, err := embeddinguc.NewLRUEmbedder(embedder, cfg.Embedding.CacheSize, metrics.EmbeddingCacheTotal)
	if err != nil {
		return nil, err
	}
	embedder = lru

	// Instruction prefix (outermost, cache keys include it)
	if instr := cfg.Embedding.Text.QueryInstruction; instr != "" {
		embedder = domain.NewPrefixEmbedder(embedder, instr)
	}
	return embedder, nil
}

// buildOCR returns nil when OCR is disabled; ingest then stores images without text.
func buildOCR(cfg config.Config, logger *zap.Logger) domain.TextExtractor {
	if !cfg.OCR.Enabled {
		return nil
	}
	prov := cfg.Provider(cfg.OCR.Provider)
	return openaiTransport.NewTextExtractor(&openaiTransport.OCRConfig{
		APIKey:    prov.APIKey,
		BaseURL:   prov.BaseURL,
		Model:     cfg.OCR.Model,
		MaxTokens: cfg.OCR.MaxTokens,
		Timeout:   time.Duration(prov.TimeoutSec) * time.Second,
		Logger:    logger,
	})
}

// buildCompleter returns nil when completion is disabled.
func buildCompleter(cfg config.Config) domain.Completer {
	if !cfg.Completion.Enabled {
		return nil
	}
	prov := cfg.Provider(cfg.Completion.Provider)
	return openaiTransport.NewCompleter(&openaiTransport.CompletionConfig{
		APIKey:      prov.APIKey,
		BaseURL:     prov.BaseURL,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		Timeout:     time.Duration(prov.TimeoutSec) * time.Second,
	})
}
