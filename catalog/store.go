package catalog

import (
	"sync"
	"time"
)

// Store is the in-memory authoritative model catalog plus its deduplicating
// enrichment queue. A single mutex guards every field; all public methods
// are short, non-suspending critical sections per spec.md §5.
//
// Grounded on original_source's model_aggregator/services/model_store.py,
// generalized with the provider-meta-change re-enqueue rule spec.md §4.C
// requires but the Python source didn't implement.
type Store struct {
	mu sync.Mutex

	models       map[ModelKey]Model
	queue        []ModelKey
	queuedKeys   map[ModelKey]struct{}
	lastUpdateTS time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		models:     make(map[ModelKey]Model),
		queuedKeys: make(map[ModelKey]struct{}),
	}
}

// UpdateModels atomically replaces the known model set with newModels,
// implementing the set-difference semantics of spec.md §4.C:
//
//   - keys present in the store but absent from newModels are removed,
//     along with any pending enrichment queue membership for them;
//   - keys new to the store are inserted and enqueued exactly once;
//   - keys present in both, whose provider-sourced fields are unchanged,
//     are left untouched (enrichment survives);
//   - keys present in both, whose provider-sourced fields changed, are
//     replaced (discarding accumulated enrichment) and re-enqueued.
func (s *Store) UpdateModels(newModels []Model) {
	s.mu.Lock()
	defer s.mu.Unlock()

	newByKey := make(map[ModelKey]Model, len(newModels))
	for _, m := range newModels {
		newByKey[m.Key] = m
	}

	var removed []ModelKey
	for k := range s.models {
		if _, ok := newByKey[k]; !ok {
			removed = append(removed, k)
		}
	}
	if len(removed) > 0 {
		removedSet := make(map[ModelKey]struct{}, len(removed))
		for _, k := range removed {
			delete(s.models, k)
			delete(s.queuedKeys, k)
			removedSet[k] = struct{}{}
		}
		s.queue = filterOutKeys(s.queue, removedSet)
	}

	for key, incoming := range newByKey {
		existing, exists := s.models[key]
		switch {
		case !exists:
			s.models[key] = incoming
			s.enqueueLocked(key)
		case !providerMetaEquivalent(existing.Raw, incoming.Raw):
			s.models[key] = incoming
			s.enqueueLocked(key)
		default:
			// Unchanged: keep existing entry (and any accumulated enrichment).
		}
	}

	s.lastUpdateTS = time.Now()
}

// NextBatch pops up to maxN pending models off the enrichment queue.
// Non-blocking: returns fewer than maxN (possibly zero) if the queue
// empties first. A key whose model vanished since it was queued (should
// not normally happen — UpdateModels scrubs the queue on removal — but is
// tolerated defensively) is silently skipped.
func (s *Store) NextBatch(maxN int) []Model {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxN <= 0 || len(s.queue) == 0 {
		return nil
	}
	n := maxN
	if n > len(s.queue) {
		n = len(s.queue)
	}
	popped := s.queue[:n]
	s.queue = s.queue[n:]

	batch := make([]Model, 0, n)
	for _, k := range popped {
		delete(s.queuedKeys, k)
		if m, ok := s.models[k]; ok {
			batch = append(batch, m)
		}
	}
	return batch
}

// ApplyEnrichment merges successfully enriched models back into the store.
// Keys no longer present (the model vanished mid-flight) are silently
// ignored — the at-most-once guarantee named in spec.md §4.C. A key that is
// still present is overwritten with the enriched model, even if a refresh
// replaced it after it was dequeued; that refresh has already re-enqueued it.
func (s *Store) ApplyEnrichment(models []Model) {
	if len(models) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range models {
		if _, ok := s.models[m.Key]; ok {
			s.models[m.Key] = m
		}
	}
}

// Requeue re-enqueues models after a failed enrichment attempt. Only
// models still known to the store are re-queued; vanished ones are
// dropped. Dedup is the same enqueue-if-absent rule as initial enqueue.
func (s *Store) Requeue(models []Model) {
	if len(models) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range models {
		if _, ok := s.models[m.Key]; ok {
			s.enqueueLocked(m.Key)
		}
	}
}

// Clear drains the entire store: models, queue, and queued-key set, and
// resets LastUpdateTS to zero. Used by tasks.Manager.Restart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models = make(map[ModelKey]Model)
	s.queuedKeys = make(map[ModelKey]struct{})
	s.queue = nil
	s.lastUpdateTS = time.Time{}
}

// LastUpdateTS returns the timestamp of the most recent UpdateModels call,
// or the zero time if the store has never been updated (or was just
// cleared).
func (s *Store) LastUpdateTS() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUpdateTS
}

// Len returns the number of models currently known, for metrics.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.models)
}

// QueueLen returns the number of models currently pending enrichment, for
// metrics.
func (s *Store) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// enqueueLocked inserts key into the queue unless already queued. Caller
// must hold s.mu.
func (s *Store) enqueueLocked(key ModelKey) {
	if _, ok := s.queuedKeys[key]; ok {
		return
	}
	s.queue = append(s.queue, key)
	s.queuedKeys[key] = struct{}{}
}

func filterOutKeys(queue []ModelKey, drop map[ModelKey]struct{}) []ModelKey {
	if len(drop) == 0 {
		return queue
	}
	out := queue[:0]
	for _, k := range queue {
		if _, skip := drop[k]; !skip {
			out = append(out, k)
		}
	}
	return out
}
