package store

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/goatplatform/edge-chat/internal/schema"
)

const (
	// DriverSQLite persists records to a SQLite database file.
	DriverSQLite = "sqlite"
	// DriverPostgres persists records to a Postgres database.
	DriverPostgres = "postgres"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when creating a record at an occupied path.
	ErrAlreadyExists = errors.New("record already exists")
)

// Opts for a store.
type Opts struct {
	// Driver is one of DriverSQLite (default) or DriverPostgres.
	Driver string
	// DSN of the database. A file path for sqlite.
	DSN string
	// Registry holding the schemas of the records. Required.
	Registry *schema.Registry
	// Now is the clock used for default values and timestamps. Defaults to time.Now.
	Now func() time.Time
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// entry is the in-memory state of a record.
type entry struct {
	path              string
	scope             string
	key               string
	namespace         string
	version           int
	fields            map[string]any
	seq               int64
	creationTimestamp int64
	updateTimestamp   int64
}

func (e *entry) clone() *entry {
	c := *e
	c.fields = make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		c.fields[k] = v
	}
	return &c
}

// Store holds records in memory and writes them through to a database.
// Live queries are notified after every successful write.
type Store struct {
	db       database
	registry *schema.Registry
	now      func() time.Time
	log      *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	seq     int64

	queriesMu sync.Mutex
	queries   map[*Query]struct{}
}

// New store. Existing records are loaded from the database.
func New(ctx context.Context, opts *Opts) (*Store, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	var db database
	var err error
	switch opts.Driver {
	case "", DriverSQLite:
		db, err = openSQLite(opts.DSN)
	case DriverPostgres:
		db, err = openPostgres(ctx, opts.DSN)
	default:
		return nil, errors.Errorf("unknown driver (%s)", opts.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	s, err := newStore(ctx, db, opts)
	if err != nil {
		db.close()
		return nil, err
	}
	return s, nil
}

func newStore(ctx context.Context, db database, opts *Opts) (*Store, error) {
	s := &Store{
		db:       db,
		registry: opts.Registry,
		now:      opts.Now,
		log:      opts.Logger,
		entries:  map[string]*entry{},
		queries:  map[*Query]struct{}{},
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if err := db.migrate(ctx); err != nil {
		return nil, errors.Wrap(err, "migrating database")
	}
	if err := s.load(ctx); err != nil {
		return nil, errors.Wrap(err, "loading records")
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.load(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		sch, ok := s.registry.Get(row.Namespace)
		if !ok || sch.Version != row.Version {
			s.log.Warn("skipping record with unregistered schema", "path", row.Path, "namespace", row.Namespace, "version", row.Version)
			continue
		}
		e, err := decodeRow(sch, row)
		if err != nil {
			return errors.Wrapf(err, "decoding record %s", row.Path)
		}
		s.entries[e.path] = e
		if e.seq > s.seq {
			s.seq = e.seq
		}
	}
	s.log.Debug("loaded records", "count", len(s.entries))
	return nil
}

// Now returns the current time according to the store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Close the database connection. Open queries stop receiving updates.
func (s *Store) Close() error {
	s.queriesMu.Lock()
	for q := range s.queries {
		q.markClosed()
		delete(s.queries, q)
	}
	s.queriesMu.Unlock()
	return s.db.close()
}

// schemaFor resolves the registered schema matching the given one.
func (s *Store) schemaFor(sch *schema.Schema) (*schema.Schema, error) {
	if sch == nil {
		return nil, errors.New("schema cannot be nil")
	}
	registered, ok := s.registry.Get(sch.Namespace)
	if !ok {
		return nil, errors.Errorf("schema %s is not registered", sch.Namespace)
	}
	if registered.Version != sch.Version {
		return nil, errors.Wrapf(schema.ErrIncompatibleVersion, "%s: v%d registered, got v%d", sch.Namespace, registered.Version, sch.Version)
	}
	return registered, nil
}

// notify every live query observing the given scope and namespace.
func (s *Store) notify(scope, namespace string) {
	s.queriesMu.Lock()
	queries := make([]*Query, 0, len(s.queries))
	for q := range s.queries {
		if q.matches(scope, namespace) {
			queries = append(queries, q)
		}
	}
	s.queriesMu.Unlock()
	for _, q := range queries {
		q.refresh()
	}
}
