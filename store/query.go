package store

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
)

// SortDescriptor compares two records. It returns a negative number when left sorts first,
// a positive number when right sorts first and zero when they are equivalent.
// Equivalent records keep their creation order.
type SortDescriptor func(left, right *Record) int

// QueryOpts describes a live query.
type QueryOpts struct {
	// Schema of the records to select.
	Schema *schema.Schema
	// Source scope of the records to select.
	Source string
	// SortDescriptor orders the results. Creation order if nil.
	SortDescriptor SortDescriptor
}

// Query is a live query. Its results are re-evaluated after every write to its source scope
// and a notification is delivered on Updates().
type Query struct {
	store  *Store
	schema *schema.Schema
	opts   QueryOpts

	// refreshMu serializes evaluations so a stale evaluation never overwrites a newer one.
	refreshMu sync.Mutex

	mu      sync.RWMutex
	results []*Record
	closed  bool
	updates chan struct{}
}

// Query opens a live query. It must be closed by the caller.
func (s *Store) Query(opts QueryOpts) (*Query, error) {
	sch, err := s.schemaFor(opts.Schema)
	if err != nil {
		return nil, err
	}
	if opts.Source == "" {
		return nil, errors.New("source cannot be empty")
	}
	q := &Query{
		store:   s,
		schema:  sch,
		opts:    opts,
		updates: make(chan struct{}, 1),
	}
	s.queriesMu.Lock()
	s.queries[q] = struct{}{}
	s.queriesMu.Unlock()
	q.evaluate()
	return q, nil
}

// Count of records currently matching the query.
func (q *Query) Count() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.results)
}

// Results returns the current, ordered snapshot of the query.
func (q *Query) Results() []*Record {
	q.mu.RLock()
	defer q.mu.RUnlock()
	results := make([]*Record, len(q.results))
	copy(results, q.results)
	return results
}

// Updates delivers a notification whenever the results may have changed.
// Notifications coalesce: a consumer that falls behind receives a single pending one.
func (q *Query) Updates() <-chan struct{} {
	return q.updates
}

// Close the query. It stops receiving updates.
func (q *Query) Close() {
	q.store.queriesMu.Lock()
	delete(q.store.queries, q)
	q.store.queriesMu.Unlock()
	q.markClosed()
}

func (q *Query) markClosed() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

func (q *Query) matches(scope, namespace string) bool {
	return q.opts.Source == scope && q.schema.Namespace == namespace
}

func (q *Query) refresh() {
	q.evaluate()
	q.mu.RLock()
	closed := q.closed
	q.mu.RUnlock()
	if closed {
		return
	}
	select {
	case q.updates <- struct{}{}:
	default:
	}
}

func (q *Query) evaluate() {
	q.refreshMu.Lock()
	defer q.refreshMu.Unlock()

	records := q.store.scan(q.opts.Source, q.schema)
	if q.opts.SortDescriptor != nil {
		sort.SliceStable(records, func(i, j int) bool {
			return q.opts.SortDescriptor(records[i], records[j]) < 0
		})
	}
	q.mu.Lock()
	q.results = records
	q.mu.Unlock()
}

// scan returns the records of a scope and namespace in creation order.
func (s *Store) scan(scope string, sch *schema.Schema) []*Record {
	s.mu.RLock()
	entries := make([]*entry, 0)
	for _, e := range s.entries {
		if e.scope == scope && e.namespace == sch.Namespace {
			entries = append(entries, e)
		}
	}
	s.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	records := make([]*Record, 0, len(entries))
	for _, e := range entries {
		records = append(records, s.newRecord(e, sch))
	}
	return records
}
