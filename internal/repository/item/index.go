package item

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/pixdex/internal/db"
	"github.com/kailas-cloud/pixdex/internal/domain"
)

// HNSWConfig holds HNSW index build parameters.
type HNSWConfig struct {
	M              int // max edges per node
	EFConstruction int // build-time candidate list size
}

// Config controls how items map onto the backend.
type Config struct {
	Dimensions int
	HNSW       HNSWConfig
	Specs      []domain.IndexSpec
	// IndexPrefix namespaces index names and row keys on Redis/Valkey.
	// Empty on Postgres, where index names are SQL identifiers.
	IndexPrefix string
}

func (c *Config) applyDefaults() {
	if c.Dimensions <= 0 {
		c.Dimensions = domain.DefaultVectorDimensions
	}
	if c.HNSW.M <= 0 {
		c.HNSW.M = 16
	}
	if c.HNSW.EFConstruction <= 0 {
		c.HNSW.EFConstruction = 64
	}
	if len(c.Specs) == 0 {
		c.Specs = domain.DefaultIndexSpecs()
	}
}

// Specs returns the index specs this repository manages.
func (r *Repo) Specs() []domain.IndexSpec {
	return r.cfg.Specs
}

// IndexExists reports whether the ANN index for spec is present and usable.
func (r *Repo) IndexExists(ctx context.Context, spec domain.IndexSpec) (bool, error) {
	ok, err := r.store.IndexExists(ctx, r.indexName(spec))
	if err != nil {
		return false, fmt.Errorf("index exists %s: %w", spec.Name, err)
	}
	return ok, nil
}

// CreateIndex builds the ANN index for spec without blocking writes.
// It returns domain.ErrIndexExists when another creator got there first.
func (r *Repo) CreateIndex(ctx context.Context, spec domain.IndexSpec) error {
	def, err := r.buildIndex(spec)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return fmt.Errorf("create index %s: %w", spec.Name, domain.ErrIndexExists)
		}
		return fmt.Errorf("create index %s: %w", spec.Name, err)
	}
	return nil
}

func (r *Repo) indexName(spec domain.IndexSpec) string {
	return r.cfg.IndexPrefix + spec.Name
}

// buildIndex creates an IndexDefinition for one IndexSpec: a single HNSW
// vector field, plus the numeric dimensions for Redis/Valkey filtering.
func (r *Repo) buildIndex(spec domain.IndexSpec) (*db.IndexDefinition, error) {
	if spec.Distance != domain.DistanceCosine {
		return nil, fmt.Errorf("unsupported distance family %q", spec.Distance)
	}

	b := db.NewIndex(r.indexName(spec)).OnTable(spec.Table)
	if r.cfg.IndexPrefix != "" {
		b = b.Prefix(r.cfg.IndexPrefix+spec.Table+":").
			Numeric(domain.ColumnWidth).
			Numeric(domain.ColumnHeight)
	}
	def, err := b.VectorHNSW(spec.Column, r.cfg.Dimensions, db.DistanceCosine,
		r.cfg.HNSW.M, r.cfg.HNSW.EFConstruction).Build()
	if err != nil {
		return nil, fmt.Errorf("build index %s: %w", spec.Name, err)
	}
	return def, nil
}

func imagesTable(dim int) *db.TableDefinition {
	return &db.TableDefinition{
		Name: domain.ImagesTable,
		Columns: []db.ColumnDefinition{
			{Name: domain.ColumnURL, Type: db.ColumnText, Unique: true},
			{Name: domain.ColumnHash, Type: db.ColumnText},
			{Name: domain.ColumnWidth, Type: db.ColumnInt},
			{Name: domain.ColumnHeight, Type: db.ColumnInt},
			{Name: domain.ColumnEmbedding, Type: db.ColumnVector, Dim: dim},
			{Name: domain.ColumnText, Type: db.ColumnText},
			{Name: domain.ColumnTextEmbedding, Type: db.ColumnVector, Dim: dim},
		},
	}
}
