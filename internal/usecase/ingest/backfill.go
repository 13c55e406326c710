package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

// BackfillConfig bounds the load a backfill puts on the model endpoints.
type BackfillConfig struct {
	Concurrency int     // parallel objects; default 4
	RatePerSec  float64 // objects started per second; <= 0 means unlimited
	Burst       int     // default 1
}

func (c *BackfillConfig) applyDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
}

// BackfillReport counts per-object outcomes.
type BackfillReport struct {
	Updated  int
	Inserted int
	Failed   int
}

// Backfill walks every stored object and recomputes OCR text and text
// embeddings. Objects already known by URL are updated in place; unknown
// objects go through the full pipeline without being uploaded again.
// A failing object is logged and counted, and the walk continues.
func (s *Service) Backfill(ctx context.Context, cfg BackfillConfig) (BackfillReport, error) {
	cfg.applyDefaults()

	names, err := s.objects.List(ctx)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("list objects: %w", err)
	}
	s.logger.Info("backfill started", zap.Int("objects", len(names)), zap.Int("concurrency", cfg.Concurrency))

	limit := rate.Inf
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
	}
	limiter := rate.NewLimiter(limit, cfg.Burst)
	sem := semaphore.NewWeighted(int64(cfg.Concurrency))

	var (
		wg                        sync.WaitGroup
		updated, inserted, failed atomic.Int64
		stopErr                   error
	)
	for _, name := range names {
		if err := limiter.Wait(ctx); err != nil {
			stopErr = err
			break
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			stopErr = err
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			created, err := s.backfillObject(ctx, name)
			metrics.ItemsIngestedTotal.WithLabelValues(sourceBackfill, resultLabel(err)).Inc()
			switch {
			case err != nil:
				failed.Add(1)
				s.logger.Warn("backfill object failed", zap.String("object", name), zap.Error(err))
			case created:
				inserted.Add(1)
			default:
				updated.Add(1)
			}
		}()
	}
	wg.Wait()

	report := BackfillReport{
		Updated:  int(updated.Load()),
		Inserted: int(inserted.Load()),
		Failed:   int(failed.Load()),
	}
	s.logger.Info("backfill finished",
		zap.Int("updated", report.Updated), zap.Int("inserted", report.Inserted), zap.Int("failed", report.Failed))
	if stopErr != nil {
		return report, fmt.Errorf("backfill interrupted: %w", stopErr)
	}
	return report, nil
}

// backfillObject reports whether a new item was created.
func (s *Service) backfillObject(ctx context.Context, name string) (bool, error) {
	data, contentType, err := s.objects.Get(ctx, name)
	if err != nil {
		return false, fmt.Errorf("get object: %w", err)
	}
	url := s.objects.URL(name)

	id, err := s.repo.FindIDByURL(ctx, url)
	switch {
	case err == nil:
		text, textEmb, err := s.recognize(ctx, data, contentType)
		if err != nil {
			return false, err
		}
		if err := s.repo.UpdateText(ctx, id, text, textEmb); err != nil {
			return false, fmt.Errorf("update item %d: %w", id, err)
		}
		return false, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, fmt.Errorf("lookup %s: %w", url, err)
	}

	width, height, err := dimensions(data)
	if err != nil {
		return false, err
	}
	it, err := s.analyze(ctx, data, contentType)
	if err != nil {
		return false, err
	}
	it.URL, it.Width, it.Height = url, width, height
	if _, err := s.repo.Insert(ctx, &it); err != nil {
		return false, fmt.Errorf("store image: %w", err)
	}
	return true, nil
}
