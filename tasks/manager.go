// Package tasks runs the two long-running cooperative loops that keep the
// catalog current: a refresh loop that re-discovers models from providers,
// and an enrichment loop that drains the store's queue through the brain.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/nimbus-labs/model-aggregator/catalog"
	"github.com/nimbus-labs/model-aggregator/enrich"
	"github.com/nimbus-labs/model-aggregator/fetch"
	"github.com/nimbus-labs/model-aggregator/internal/logging"
	"github.com/nimbus-labs/model-aggregator/internal/metrics"
	"github.com/nimbus-labs/model-aggregator/internal/statsring"
)

const sleepStep = 500 * time.Millisecond

// Manager owns the refresh and enrichment goroutines and the single stop
// signal they share. Start/Stop/Restart are idempotent and safe to call
// from one goroutine at a time (the server entry point), matching the
// lifespan-hook usage the source was written for.
type Manager struct {
	Store           *catalog.Store
	Aggregator      *fetch.Aggregator
	Enricher        *enrich.Enricher
	Stats           *statsring.Ring
	FetchInterval   time.Duration
	EnrichIdleSleep time.Duration
	EnrichBatchSize int

	mu     sync.Mutex
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Start launches both loops. Calling Start while already running is a
// no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopCh != nil {
		return
	}
	m.stopCh = make(chan struct{})
	stopCh := m.stopCh

	m.wg.Add(2)
	go m.runRefreshLoop(ctx, stopCh)
	go m.runEnrichLoop(ctx, stopCh)
}

// Stop signals both loops to exit and waits for them. Calling Stop when
// not running is a no-op.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopCh == nil {
		m.mu.Unlock()
		return
	}
	close(m.stopCh)
	m.stopCh = nil
	m.mu.Unlock()

	m.wg.Wait()
}

// Restart stops both loops, clears the store, and starts again. Used by
// the /api/clear endpoint.
func (m *Manager) Restart(ctx context.Context) {
	m.Stop()
	m.Store.Clear()
	m.Start(ctx)
}

func (m *Manager) runRefreshLoop(ctx context.Context, stopCh chan struct{}) {
	defer m.wg.Done()
	log := logging.FromContext(ctx)
	log.Info("background refresh loop started", "interval", m.FetchInterval)
	defer log.Info("background refresh loop stopped")

	if !sleepInterruptible(stopCh, 100*time.Millisecond) {
		return
	}

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		start := time.Now()
		models := m.Aggregator.GatherModels(ctx)
		m.Store.UpdateModels(models)
		took := time.Since(start)
		metrics.RefreshDuration.Observe(took.Seconds())
		metrics.CatalogSize.Set(float64(m.Store.Len()))
		metrics.QueueLength.Set(float64(m.Store.QueueLen()))
		for provider, state := range m.Aggregator.CircuitStates() {
			metrics.ProviderCircuitState.WithLabelValues(provider).Set(float64(state))
		}
		m.sample(took)

		if !sleepInterruptible(stopCh, m.FetchInterval) {
			return
		}
	}
}

func (m *Manager) runEnrichLoop(ctx context.Context, stopCh chan struct{}) {
	defer m.wg.Done()
	log := logging.FromContext(ctx)
	log.Info("background enrichment loop started")
	defer log.Info("background enrichment loop stopped")

	for {
		select {
		case <-stopCh:
			return
		default:
		}

		batch := m.Store.NextBatch(m.EnrichBatchSize)
		if len(batch) == 0 {
			if !sleepInterruptible(stopCh, m.EnrichIdleSleep) {
				return
			}
			continue
		}

		enriched, failed := m.Enricher.EnrichBatch(ctx, batch)
		if len(enriched) > 0 {
			m.Store.ApplyEnrichment(enriched)
		}
		if len(failed) > 0 {
			m.Store.Requeue(failed)
		}
		metrics.QueueLength.Set(float64(m.Store.QueueLen()))
		m.sample(0)
	}
}

// sample records the current catalog/queue/circuit state into the stats
// ring, if one is configured. refreshTook is zero when called from the
// enrichment loop, which doesn't measure a refresh duration of its own.
func (m *Manager) sample(refreshTook time.Duration) {
	if m.Stats == nil {
		return
	}
	states := make(map[string]string)
	if m.Aggregator != nil {
		for provider, state := range m.Aggregator.CircuitStates() {
			states[provider] = state.String()
		}
	}
	m.Stats.Add(statsring.Entry{
		Timestamp:       time.Now(),
		CatalogSize:     m.Store.Len(),
		QueueLength:     m.Store.QueueLen(),
		ProviderStates:  states,
		LastRefreshTook: refreshTook,
	})
}

// sleepInterruptible sleeps up to d in small steps so a close of stopCh is
// noticed promptly. Returns false if stopCh closed before d elapsed.
func sleepInterruptible(stopCh chan struct{}, d time.Duration) bool {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return true
		}
		step := sleepStep
		if remaining < step {
			step = remaining
		}
		select {
		case <-stopCh:
			return false
		case <-time.After(step):
		}
	}
}
