package tablestate

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danthegoodman1/icetable/gologger"
	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/table"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// LoadTimeout bounds the reads of a table's durable state on first access.
var LoadTimeout = 5 * time.Second

type (
	// Listener is called after a field of a table changes. It runs on the goroutine that made
	// the change and must not block.
	Listener func(tableID string, field Field)

	// Store holds the state of every table instance in one session. Durable fields are loaded
	// lazily from the kv store and written through on every change; ephemeral fields never
	// leave memory.
	Store struct {
		kv              kvstore.KVStore
		persister       *persister
		logger          zerolog.Logger
		defaultPageSize int

		mu     sync.Mutex
		tables map[string]*tableEntry
		loads  singleflight.Group

		subMu   sync.RWMutex
		subs    map[subKey]map[uint64]Listener
		nextSub uint64
	}

	tableEntry struct {
		mu    sync.RWMutex
		state TableState
	}

	subKey struct {
		tableID string
		field   Field
	}

	options struct {
		defaultPageSize int
		logger          *zerolog.Logger
	}

	// Option configures a Store.
	Option func(*options)
)

// WithDefaultPageSize overrides the page size used when none is stored. Non-positive values are ignored.
func WithDefaultPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.defaultPageSize = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// NewStore creates a Store backed by kv. Close it to flush pending durable writes.
func NewStore(kv kvstore.KVStore, opts ...Option) *Store {
	o := options{defaultPageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	logger := gologger.NewLogger()
	if o.logger != nil {
		logger = *o.logger
	}

	return &Store{
		kv:              kv,
		persister:       newPersister(kv, logger),
		logger:          logger,
		defaultPageSize: o.defaultPageSize,
		tables:          make(map[string]*tableEntry),
		subs:            make(map[subKey]map[uint64]Listener),
	}
}

// DefaultPageSize is the page size a table gets when nothing is stored for it.
func (s *Store) DefaultPageSize() int {
	return s.defaultPageSize
}

// Get returns a copy of the state of tableID, creating it on first access.
func (s *Store) Get(ctx context.Context, tableID string) TableState {
	e := s.entry(ctx, tableID)
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Set replaces every non-nil field of p. Durable fields are queued for write-through and
// subscribers of each changed field are notified once the change is visible.
func (s *Store) Set(ctx context.Context, tableID string, p Partial) {
	fields := p.Fields()
	if len(fields) == 0 {
		return
	}

	e := s.entry(ctx, tableID)
	e.mu.Lock()
	if p.ColumnVisibility != nil {
		e.state.ColumnVisibility = p.ColumnVisibility.Clone()
	}
	if p.PageSize != nil {
		e.state.PageSize = s.sanitizePageSize(*p.PageSize)
	}
	if p.Sorting != nil {
		e.state.Sorting = p.Sorting.Clone()
	}
	if p.ColumnFilters != nil {
		e.state.ColumnFilters = p.ColumnFilters.Clone()
	}
	if p.RowSelection != nil {
		e.state.RowSelection = p.RowSelection.Clone()
	}
	// queue under the entry lock so the stored order matches the in-memory order
	for _, f := range fields {
		if f.Durable() {
			s.persist(tableID, f, e.state.Durable)
		}
	}
	e.mu.Unlock()

	for _, f := range fields {
		s.notify(tableID, f)
	}
}

// Reset reverts one field of tableID to its default. Resetting a durable field overwrites the
// stored value.
func (s *Store) Reset(ctx context.Context, tableID string, field Field) {
	switch field {
	case FieldColumnVisibility:
		s.Set(ctx, tableID, Partial{ColumnVisibility: &table.ColumnVisibility{}})
	case FieldPageSize:
		s.Set(ctx, tableID, Partial{PageSize: &s.defaultPageSize})
	case FieldSorting:
		s.Set(ctx, tableID, Partial{Sorting: &table.Sorting{}})
	case FieldColumnFilters:
		s.Set(ctx, tableID, Partial{ColumnFilters: &table.ColumnFilters{}})
	case FieldRowSelection:
		s.Set(ctx, tableID, Partial{RowSelection: &table.RowSelection{}})
	}
}

// Subscribe registers fn for changes to field of tableID. The returned func removes it.
func (s *Store) Subscribe(tableID string, field Field, fn Listener) (unsubscribe func()) {
	key := subKey{tableID: tableID, field: field}

	s.subMu.Lock()
	s.nextSub++
	id := s.nextSub
	if s.subs[key] == nil {
		s.subs[key] = make(map[uint64]Listener)
	}
	s.subs[key][id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			delete(s.subs[key], id)
			if len(s.subs[key]) == 0 {
				delete(s.subs, key)
			}
		})
	}
}

// Forget drops the in-memory state of tableID. Its ephemeral fields are gone; durable fields are
// loaded again on the next Get.
func (s *Store) Forget(tableID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, tableID)
}

// Flush waits for every durable write queued so far.
func (s *Store) Flush(ctx context.Context) error {
	return s.persister.flush(ctx)
}

// Close flushes pending durable writes and stops the write-through worker. The kv store itself
// is owned by the caller.
func (s *Store) Close(ctx context.Context) error {
	return s.persister.close(ctx)
}

func (s *Store) entry(ctx context.Context, tableID string) *tableEntry {
	s.mu.Lock()
	e, ok := s.tables[tableID]
	s.mu.Unlock()
	if ok {
		return e
	}

	v, _, _ := s.loads.Do(tableID, func() (any, error) {
		// the loaded entry outlives the request that triggered it
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), LoadTimeout)
		defer cancel()
		durable := s.loadDurable(loadCtx, tableID)

		s.mu.Lock()
		defer s.mu.Unlock()
		if e, ok := s.tables[tableID]; ok {
			return e, nil
		}
		e := &tableEntry{state: TableState{Durable: durable, Ephemeral: defaultEphemeral()}}
		s.tables[tableID] = e
		return e, nil
	})
	return v.(*tableEntry)
}

func (s *Store) loadDurable(ctx context.Context, tableID string) Durable {
	logger := gologger.TableLogger(s.logger, tableID)
	durable := defaultDurable(s.defaultPageSize)

	if raw, ok := s.read(ctx, logger, StorageKey(tableID, FieldColumnVisibility)); ok {
		var vis table.ColumnVisibility
		if err := json.Unmarshal([]byte(raw), &vis); err != nil || vis == nil {
			logger.Warn().Err(err).Str("raw", raw).Msg("discarding malformed stored column visibility")
		} else {
			durable.ColumnVisibility = vis
		}
	}

	if raw, ok := s.read(ctx, logger, StorageKey(tableID, FieldPageSize)); ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			logger.Warn().Err(err).Str("raw", raw).Msg("discarding malformed stored page size")
		} else {
			durable.PageSize = n
		}
	}

	return durable
}

// read is best effort: a missing key, a failed read and a queued-but-unwritten value are all
// handled here so loading never fails.
func (s *Store) read(ctx context.Context, logger zerolog.Logger, key string) (string, bool) {
	if v, ok := s.persister.lookup(key); ok {
		return v, true
	}
	raw, err := s.kv.Get(ctx, key)
	if errors.Is(err, kvstore.ErrNotFound) {
		return "", false
	}
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("error reading durable table state, using default")
		return "", false
	}
	return raw, true
}

func (s *Store) persist(tableID string, f Field, durable Durable) {
	var value string
	switch f {
	case FieldColumnVisibility:
		b, err := json.Marshal(durable.ColumnVisibility)
		if err != nil {
			s.logger.Error().Err(err).Str("tableID", tableID).Msg("error in json.Marshal of column visibility")
			return
		}
		value = string(b)
	case FieldPageSize:
		value = strconv.Itoa(durable.PageSize)
	default:
		return
	}
	s.persister.enqueue(StorageKey(tableID, f), value)
}

func (s *Store) notify(tableID string, field Field) {
	s.subMu.RLock()
	listeners := make([]Listener, 0, len(s.subs[subKey{tableID: tableID, field: field}]))
	for _, fn := range s.subs[subKey{tableID: tableID, field: field}] {
		listeners = append(listeners, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range listeners {
		fn(tableID, field)
	}
}

func (s *Store) sanitizePageSize(n int) int {
	if n <= 0 {
		return s.defaultPageSize
	}
	return n
}
