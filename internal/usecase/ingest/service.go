// Package ingest turns uploaded images into searchable items: object
// storage upload, visual embedding, OCR and text embedding.
package ingest

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
	logpkg "github.com/kailas-cloud/pixdex/internal/logger"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

const (
	sourceUpload   = "upload"
	sourceBackfill = "backfill"
)

// Service runs the ingest pipeline.
type Service struct {
	repo    Repository
	objects ObjectStore
	images  domain.ImageEmbedder
	text    domain.Embedder
	ocr     domain.TextExtractor
	logger  *zap.Logger
}

// New creates an ingest service. ocr may be nil, which stores every image
// without text (visual modality only).
func New(
	repo Repository, objects ObjectStore,
	images domain.ImageEmbedder, text domain.Embedder, ocr domain.TextExtractor,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:    repo,
		objects: objects,
		images:  images,
		text:    text,
		ocr:     ocr,
		logger:  logger.Named("ingest"),
	}
}

// Ingest stores an uploaded image and returns the persisted item.
func (s *Service) Ingest(ctx context.Context, data []byte, filename, contentType string) (domain.Item, error) {
	it, err := s.ingest(ctx, data, filename, contentType)
	metrics.ItemsIngestedTotal.WithLabelValues(sourceUpload, resultLabel(err)).Inc()
	return it, err
}

func (s *Service) ingest(ctx context.Context, data []byte, filename, contentType string) (domain.Item, error) {
	if len(data) == 0 {
		return domain.Item{}, fmt.Errorf("%w: uploaded file is empty", domain.ErrInvalidInput)
	}
	width, height, err := dimensions(data)
	if err != nil {
		return domain.Item{}, err
	}

	name := objectName(filename)
	url, err := s.objects.Upload(ctx, name, data, contentType)
	if err != nil {
		return domain.Item{}, fmt.Errorf("upload image: %w", err)
	}

	it, err := s.analyze(ctx, data, contentType)
	if err != nil {
		s.discard(ctx, name)
		return domain.Item{}, err
	}
	it.URL, it.Width, it.Height = url, width, height

	stored, err := s.repo.Insert(ctx, &it)
	if err != nil {
		s.discard(ctx, name)
		return domain.Item{}, fmt.Errorf("store image: %w", err)
	}
	logpkg.FromContext(ctx, s.logger).Info("image ingested",
		zap.Int64("id", stored.ID), zap.String("url", url), zap.Bool("has_text", stored.HasText()))
	return stored.WithoutVectors(), nil
}

// discard removes an uploaded object whose item was never stored. Failure
// leaves an orphan that backfill will later pick up.
func (s *Service) discard(ctx context.Context, name string) {
	if err := s.objects.Delete(context.WithoutCancel(ctx), name); err != nil {
		logpkg.FromContext(ctx, s.logger).Warn("failed to remove orphaned object",
			zap.String("object", name), zap.Error(err))
	}
}

// analyze computes the hash, visual embedding, OCR text and text embedding.
func (s *Service) analyze(ctx context.Context, data []byte, contentType string) (domain.Item, error) {
	sum := sha256.Sum256(data)
	it := domain.Item{Hash: hex.EncodeToString(sum[:])}

	emb, err := s.images.EmbedImage(ctx, data, contentType)
	if err != nil {
		return domain.Item{}, fmt.Errorf("embed image: %w", err)
	}
	domain.UsageFromContext(ctx).AddImageTokens(emb.TotalTokens)
	it.Embedding = emb.Embedding

	it.Text, it.TextEmbedding, err = s.recognize(ctx, data, contentType)
	if err != nil {
		return domain.Item{}, err
	}
	return it, nil
}

// recognize runs OCR and embeds the text. No text is not an error.
func (s *Service) recognize(ctx context.Context, data []byte, contentType string) (string, []float32, error) {
	if s.ocr == nil {
		return "", nil, nil
	}
	text, ok := s.ocr.ExtractText(ctx, data, contentType)
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		return "", nil, nil
	}

	emb, err := s.text.Embed(ctx, text)
	if err != nil {
		return "", nil, fmt.Errorf("embed ocr text: %w", err)
	}
	domain.UsageFromContext(ctx).AddTextTokens(emb.TotalTokens)
	return text, emb.Embedding, nil
}

// dimensions reads the image header only.
func dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: unsupported or corrupt image: %w", domain.ErrInvalidInput, err)
	}
	return cfg.Width, cfg.Height, nil
}

// objectName prefixes the client file name with a random UUID so that
// uploads never collide.
func objectName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if base == "." || base == "/" || base == "" {
		base = "image"
	}
	return uuid.NewString() + "_" + base
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
