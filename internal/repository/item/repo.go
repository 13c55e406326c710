// Package item maps domain items onto backend rows and ANN indexes.
package item

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/pixdex/internal/db"
	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/domain/retrieval"
)

// store is the consumer interface for item persistence (ISP).
type store interface {
	db.RowStore
	db.IndexManager
	db.Searcher
}

// scalarFields are returned by KNN queries to resolve items without a second round-trip.
var scalarFields = []string{
	domain.ColumnURL, domain.ColumnHash, domain.ColumnWidth, domain.ColumnHeight, domain.ColumnText,
}

// Repo implements the item repository used by retrieval, indexing and ingest.
type Repo struct {
	store store
	cfg   Config
}

// New creates an item repository.
func New(s store, cfg Config) *Repo {
	cfg.applyDefaults()
	return &Repo{store: s, cfg: cfg}
}

// EnsureSchema creates the images table on backends with a relational schema
// and adds the OCR columns when an older table lacks them. Other backends are
// schemaless and this is a no-op.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	sm, ok := r.store.(db.SchemaManager)
	if !ok {
		return nil
	}
	if err := sm.EnsureTable(ctx, imagesTable(r.cfg.Dimensions)); err != nil {
		return fmt.Errorf("ensure schema %s: %w", domain.ImagesTable, err)
	}
	return nil
}

// Insert persists a new item and returns it with the allocated id.
func (r *Repo) Insert(ctx context.Context, it *domain.Item) (domain.Item, error) {
	if len(it.Embedding) == 0 {
		return domain.Item{}, fmt.Errorf("%w: visual embedding is required", domain.ErrInvalidInput)
	}
	row := toRow(it)
	id, err := r.store.InsertRow(ctx, domain.ImagesTable, row)
	if err != nil {
		return domain.Item{}, fmt.Errorf("insert item: %w", err)
	}
	out := *it
	out.ID = id
	return out, nil
}

// UpdateText replaces an item's OCR text and text embedding. An empty text
// clears both, which removes the item from the text modality.
func (r *Repo) UpdateText(ctx context.Context, id int64, text string, textEmbedding []float32) error {
	if text == "" {
		textEmbedding = nil
	}
	row := &db.Row{
		ID:      id,
		Values:  map[string]any{domain.ColumnText: text},
		Vectors: map[string][]float32{domain.ColumnTextEmbedding: textEmbedding},
	}
	if err := r.store.UpdateRow(ctx, domain.ImagesTable, row); err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("update item %d: %w", id, err)
	}
	return nil
}

// Get returns an item without its vectors.
func (r *Repo) Get(ctx context.Context, id int64) (domain.Item, error) {
	fields, err := r.store.GetRow(ctx, domain.ImagesTable, id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domain.Item{}, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
		}
		return domain.Item{}, fmt.Errorf("get item %d: %w", id, err)
	}
	return fromFields(id, fields), nil
}

// FindIDByURL resolves the id of the item stored under url.
func (r *Repo) FindIDByURL(ctx context.Context, url string) (int64, error) {
	id, err := r.store.FindRowID(ctx, domain.ImagesTable, domain.ColumnURL, url)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, fmt.Errorf("item with url %q: %w", url, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("find item by url: %w", err)
	}
	return id, nil
}

// SearchByDistance returns up to limit items nearest to vector in the
// modality's embedding column, ascending by (distance, id). Items whose
// column is null are never returned. A missing index surfaces as domain.ErrIndexMissing.
func (r *Repo) SearchByDistance(
	ctx context.Context, m domain.Modality, vector []float32, limit int,
) ([]retrieval.Candidate, error) {
	spec, ok := domain.IndexSpecFor(r.cfg.Specs, m)
	if !ok {
		return nil, fmt.Errorf("no index spec for modality %q", m)
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.indexName(spec),
		Table:        spec.Table,
		VectorField:  spec.Column,
		Vector:       vector,
		K:            limit,
		ReturnFields: scalarFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("search %s: %w", m, domain.ErrIndexMissing)
		}
		return nil, fmt.Errorf("search %s: %w", m, err)
	}

	out := make([]retrieval.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		out = append(out, retrieval.Candidate{
			Item:     fromFields(e.ID, e.Fields),
			Distance: e.Distance,
		})
	}
	retrieval.SortCandidates(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func toRow(it *domain.Item) *db.Row {
	values := map[string]any{
		domain.ColumnURL:    it.URL,
		domain.ColumnHash:   it.Hash,
		domain.ColumnWidth:  it.Width,
		domain.ColumnHeight: it.Height,
	}
	vectors := map[string][]float32{
		domain.ColumnEmbedding: it.Embedding,
	}
	if it.Text != "" && len(it.TextEmbedding) > 0 {
		values[domain.ColumnText] = it.Text
		vectors[domain.ColumnTextEmbedding] = it.TextEmbedding
	}
	return &db.Row{ID: it.ID, Values: values, Vectors: vectors}
}

// fromFields builds an item from string-rendered columns. Unparseable
// dimensions are left zero.
func fromFields(id int64, f map[string]string) domain.Item {
	it := domain.Item{
		ID:   id,
		URL:  f[domain.ColumnURL],
		Hash: f[domain.ColumnHash],
		Text: f[domain.ColumnText],
	}
	it.Width, _ = strconv.Atoi(f[domain.ColumnWidth])
	it.Height, _ = strconv.Atoi(f[domain.ColumnHeight])
	return it
}
