package tablestate

import (
	"context"
	"sync"
	"time"

	"github.com/danthegoodman1/icetable/kvstore"
	"github.com/rs/zerolog"
)

const (
	persistQueueSize    = 256
	persistWriteTimeout = 10 * time.Second
)

type (
	write struct {
		key   string
		value string
		seq   uint64
		// flush markers carry no key, the worker closes them once every earlier write is done
		flush chan struct{}
	}

	pendingWrite struct {
		value string
		seq   uint64
	}

	// persister writes durable fields through to the kv store on one goroutine. Writes land in
	// the order they were queued, so the last Set of a key is the one that sticks.
	persister struct {
		kv     kvstore.KVStore
		logger zerolog.Logger
		queue  chan write

		// pending holds values queued but not yet written, so reloads see them
		mu      sync.Mutex
		pending map[string]pendingWrite
		seq     uint64

		closeMu sync.RWMutex
		closed  bool
		done    chan struct{}
	}
)

func newPersister(kv kvstore.KVStore, logger zerolog.Logger) *persister {
	p := &persister{
		kv:      kv,
		logger:  logger,
		queue:   make(chan write, persistQueueSize),
		pending: make(map[string]pendingWrite),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *persister) run() {
	defer close(p.done)
	for w := range p.queue {
		if w.flush != nil {
			close(w.flush)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), persistWriteTimeout)
		err := p.kv.Set(ctx, w.key, w.value)
		cancel()
		if err != nil {
			p.logger.Error().Err(err).Str("key", w.key).Msg("error persisting durable table state")
		}

		p.mu.Lock()
		if pw, ok := p.pending[w.key]; ok && pw.seq == w.seq {
			delete(p.pending, w.key)
		}
		p.mu.Unlock()
	}
}

// enqueue queues a write without waiting for it. Writes after close are dropped.
func (p *persister) enqueue(key, value string) {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		p.logger.Warn().Str("key", key).Msg("dropping durable write after close")
		return
	}

	p.mu.Lock()
	p.seq++
	w := write{key: key, value: value, seq: p.seq}
	p.pending[key] = pendingWrite{value: value, seq: w.seq}
	p.mu.Unlock()

	p.queue <- w
}

// lookup returns a value that is queued for key but not yet written.
func (p *persister) lookup(key string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pw, ok := p.pending[key]
	return pw.value, ok
}

// flush waits until every write queued before the call has been attempted.
func (p *persister) flush(ctx context.Context) error {
	p.closeMu.RLock()
	if p.closed {
		p.closeMu.RUnlock()
		return nil
	}
	marker := make(chan struct{})
	p.queue <- write{flush: marker}
	p.closeMu.RUnlock()

	select {
	case <-marker:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close drains the queue and stops the worker.
func (p *persister) close(ctx context.Context) error {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.closeMu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
