// Package indexing schedules ANN index builds in the background so that
// ingestion stays available while indexes over existing rows are built.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/pixdex/internal/domain"
	"github.com/kailas-cloud/pixdex/internal/metrics"
)

type build struct {
	done chan struct{}
	err  error
}

// Manager owns the index build state machine. Instances are independent.
type Manager struct {
	catalog Catalog
	logger  *zap.Logger

	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex // guards current, closed and wg.Add
	current *build
	closed  bool
}

// NewManager creates an index lifecycle manager. Builds run until Close.
func NewManager(catalog Catalog, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		catalog: catalog,
		logger:  logger.Named("indexing"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// EnsureIndexes schedules a background build and returns immediately.
// It reports true only for the call that scheduled; calls made while a
// build is scheduled, running or done are no-ops.
func (m *Manager) EnsureIndexes() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false
	}
	if !m.state.CompareAndSwap(int32(NotScheduled), int32(Scheduled)) {
		return false
	}
	metrics.IndexState.Set(float64(Scheduled))

	b := &build{done: make(chan struct{})}
	m.current = b
	// Add under mu so that Close never observes a zero counter while a build
	// is being spawned.
	m.wg.Add(1)
	go m.run(b)
	return true
}

// Wait blocks until the most recently scheduled build finishes and returns
// its error. It returns nil when nothing was ever scheduled.
func (m *Manager) Wait(ctx context.Context) error {
	m.mu.Lock()
	b := m.current
	m.mu.Unlock()
	if b == nil {
		return nil
	}

	select {
	case <-b.done:
		return b.err
	case <-ctx.Done():
		return fmt.Errorf("wait for index build: %w", ctx.Err())
	}
}

// Close cancels an in-flight build and waits for it to stop. No build is
// scheduled after Close returns.
// An interrupted build is retried by the next process.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
}

func (m *Manager) run(b *build) {
	defer m.wg.Done()
	defer close(b.done)

	m.transition(Scheduled, Building)
	start := time.Now()

	err := m.buildAll(m.ctx)
	b.err = err
	if err != nil {
		m.logger.Error("index build failed, will retry on next ensure",
			zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		m.transition(Building, Failed)
		m.transition(Failed, NotScheduled)
		return
	}

	m.logger.Info("indexes ready", zap.Duration("elapsed", time.Since(start)))
	m.transition(Building, Built)
}

func (m *Manager) transition(from, to State) {
	if m.state.CompareAndSwap(int32(from), int32(to)) {
		metrics.IndexState.Set(float64(to))
	}
}

// buildAll visits every spec; one failing index does not stop the others.
func (m *Manager) buildAll(ctx context.Context) error {
	var errs []error
	for _, spec := range m.catalog.Specs() {
		if err := m.ensureIndex(ctx, spec); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrIndexBuildFailed, errors.Join(errs...))
	}
	return nil
}

func (m *Manager) ensureIndex(ctx context.Context, spec domain.IndexSpec) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("index %s: %w", spec.Name, err)
	}
	log := m.logger.With(zap.String("index", spec.Name), zap.String("column", spec.Column))

	exists, err := m.catalog.IndexExists(ctx, spec)
	if err != nil {
		metrics.IndexBuildsTotal.WithLabelValues(spec.Name, "error").Inc()
		return fmt.Errorf("check index %s: %w", spec.Name, err)
	}
	if exists {
		log.Debug("index exists, skipping")
		metrics.IndexBuildsTotal.WithLabelValues(spec.Name, "exists").Inc()
		return nil
	}

	log.Info("building index")
	start := time.Now()
	err = m.catalog.CreateIndex(ctx, spec)
	elapsed := time.Since(start)
	metrics.IndexBuildDuration.WithLabelValues(spec.Name).Observe(elapsed.Seconds())

	switch {
	case errors.Is(err, domain.ErrIndexExists):
		log.Info("index created concurrently by another process")
		metrics.IndexBuildsTotal.WithLabelValues(spec.Name, "exists").Inc()
		return nil
	case err != nil:
		metrics.IndexBuildsTotal.WithLabelValues(spec.Name, "error").Inc()
		return fmt.Errorf("create index %s: %w", spec.Name, err)
	}

	log.Info("index built", zap.Duration("elapsed", elapsed))
	metrics.IndexBuildsTotal.WithLabelValues(spec.Name, "created").Inc()
	return nil
}
