package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/pixdex/internal/domain"
)

func TestBackfill_UpdatesKnownAndInsertsUnknown(t *testing.T) {
	f := newFixture("OPEN 24H")
	img := pngBytes(t, 4, 4)

	f.objects.objects["known.png"] = img
	f.objects.objects["new.png"] = img
	known, _ := f.repo.Insert(context.Background(), &domain.Item{URL: f.objects.URL("known.png")})

	report, err := f.svc.Backfill(context.Background(), BackfillConfig{Concurrency: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.Updated != 1 || report.Inserted != 1 || report.Failed != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if f.repo.updates[known.ID] != "OPEN 24H" {
		t.Errorf("expected known item text update, got %q", f.repo.updates[known.ID])
	}
	newID, err := f.repo.FindIDByURL(context.Background(), f.objects.URL("new.png"))
	if err != nil {
		t.Fatalf("new object not inserted: %v", err)
	}
	if it := f.repo.items[newID]; it.Width != 4 || len(it.Embedding) == 0 {
		t.Errorf("unexpected inserted item %+v", it)
	}
	if len(f.objects.objects) != 2 {
		t.Error("backfill must not upload objects again")
	}
}

func TestBackfill_ClearsTextWhenNoneRecognized(t *testing.T) {
	f := newFixture("")
	f.objects.objects["a.png"] = pngBytes(t, 1, 1)
	it, _ := f.repo.Insert(context.Background(), &domain.Item{URL: f.objects.URL("a.png"), Text: "stale"})

	if _, err := f.svc.Backfill(context.Background(), BackfillConfig{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text, ok := f.repo.updates[it.ID]; !ok || text != "" {
		t.Errorf("expected text cleared, got %q (%v)", text, ok)
	}
}

func TestBackfill_ContinuesPastFailures(t *testing.T) {
	f := newFixture("X")
	f.objects.objects["bad.png"] = []byte("garbage")
	f.objects.objects["gone.png"] = nil
	f.objects.getErr["gone.png"] = domain.ErrStorageUnavailable
	f.objects.objects["good.png"] = pngBytes(t, 2, 2)

	report, err := f.svc.Backfill(context.Background(), BackfillConfig{Concurrency: 1, RatePerSec: 1000, Burst: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Failed != 2 || report.Inserted != 1 {
		t.Errorf("unexpected report %+v", report)
	}
}

func TestBackfill_CancelledContext(t *testing.T) {
	f := newFixture("")
	f.objects.objects["a.png"] = pngBytes(t, 1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Backfill(ctx, BackfillConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
