package http_server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/danthegoodman1/icetable/datatable"
	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/danthegoodman1/icetable/tablestate"
	"github.com/danthegoodman1/icetable/utils"
	"github.com/rs/zerolog"
)

type (
	// Row is one flattened JSON object of an uploaded dataset.
	Row = map[string]any

	// Session owns one state store. Ephemeral table state lives as long as the session does;
	// durable state goes through the shared kv store.
	Session struct {
		ID      string
		Created time.Time
		Store   *tablestate.Store

		mu     sync.RWMutex
		tables map[string]*sessionTable
	}

	sessionTable struct {
		*datatable.Table[Row]
		// Types holds the inferred type of each column id
		Types map[string]string
	}

	SessionRegistry struct {
		kv              kvstore.KVStore
		defaultPageSize int

		mu       sync.RWMutex
		sessions map[string]*Session
	}
)

var ErrSessionNotFound = errors.New("session not found")

func NewSessionRegistry(kv kvstore.KVStore, defaultPageSize int) *SessionRegistry {
	return &SessionRegistry{
		kv:              kv,
		defaultPageSize: defaultPageSize,
		sessions:        make(map[string]*Session),
	}
}

func (sr *SessionRegistry) Create() *Session {
	id := utils.GenKSortedID("ses_")
	l := logger.With().Str("sessionID", id).Logger()
	sess := &Session{
		ID:      id,
		Created: time.Now(),
		Store: tablestate.NewStore(sr.kv,
			tablestate.WithDefaultPageSize(sr.defaultPageSize),
			tablestate.WithLogger(l),
		),
		tables: make(map[string]*sessionTable),
	}

	sr.mu.Lock()
	sr.sessions[id] = sess
	sr.mu.Unlock()
	return sess
}

func (sr *SessionRegistry) Get(id string) (*Session, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	sess, ok := sr.sessions[id]
	return sess, ok
}

// Delete closes the session and flushes its durable writes.
func (sr *SessionRegistry) Delete(ctx context.Context, id string) error {
	sr.mu.Lock()
	sess, ok := sr.sessions[id]
	delete(sr.sessions, id)
	sr.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return sess.close(ctx)
}

// CloseAll closes every session, returning the first error.
func (sr *SessionRegistry) CloseAll(ctx context.Context) error {
	sr.mu.Lock()
	sessions := sr.sessions
	sr.sessions = make(map[string]*Session)
	sr.mu.Unlock()

	var firstErr error
	for _, sess := range sessions {
		if err := sess.close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("error closing session %s: %w", sess.ID, err)
		}
	}
	return firstErr
}

func (sr *SessionRegistry) Len() int {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	return len(sr.sessions)
}

func (s *Session) Table(id string) (*sessionTable, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	return t, ok
}

// TableIDs returns the ids of the session's tables, sorted.
func (s *Session) TableIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// PutTable installs t under its id, closing any table it replaces. Stored state is kept, so a
// replaced dataset keeps its sort, filters and selection.
func (s *Session) PutTable(t *sessionTable) {
	s.mu.Lock()
	old := s.tables[t.ID()]
	s.tables[t.ID()] = t
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// DeleteTable closes the table and drops its ephemeral state.
func (s *Session) DeleteTable(id string) bool {
	s.mu.Lock()
	t, ok := s.tables[id]
	delete(s.tables, id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	t.Close()
	s.Store.Forget(id)
	return true
}

func (s *Session) close(ctx context.Context) error {
	s.mu.Lock()
	tables := s.tables
	s.tables = make(map[string]*sessionTable)
	s.mu.Unlock()

	for _, t := range tables {
		t.Close()
	}
	if err := s.Store.Close(ctx); err != nil {
		return fmt.Errorf("error in Store.Close: %w", err)
	}
	zerolog.Ctx(ctx).Debug().Str("sessionID", s.ID).Int("tables", len(tables)).Msg("closed session")
	return nil
}
