package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alejandrodnm/memesim/internal/domain"
	"github.com/alejandrodnm/memesim/internal/ports"
)

// DefaultSnapshotKey is the slot the whole simulation is stored under.
const DefaultSnapshotKey = "memesim:state"

// PersisterConfig controls how snapshots reach the store.
type PersisterConfig struct {
	Key     string
	Timeout time.Duration
	// Async hands snapshots to a background writer. Only the newest pending
	// snapshot is kept, so a slow store never stalls the tick loop.
	Async bool
}

// Persister serializes engine snapshots into a single durable slot.
type Persister struct {
	store   ports.SnapshotStore
	cfg     PersisterConfig
	metrics ports.Metrics
	warns   *rate.Limiter

	mu     sync.Mutex
	closed bool
	queue  chan []byte
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPersister wraps store. With cfg.Async a writer goroutine runs until Close.
func NewPersister(store ports.SnapshotStore, cfg PersisterConfig, metrics ports.Metrics) *Persister {
	if cfg.Key == "" {
		cfg.Key = DefaultSnapshotKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	p := &Persister{
		store:   store,
		cfg:     cfg,
		metrics: metrics,
		// una advertencia cada 5s como máximo, con ráfaga de 3
		warns: rate.NewLimiter(rate.Every(5*time.Second), 3),
	}
	if cfg.Async {
		p.queue = make(chan []byte, 1)
		p.wg.Add(1)
		go p.writeLoop()
	}
	return p
}

// Save overwrites the slot with snap. Failures are logged and returned
// wrapped in ErrPersistenceWrite; in-memory state stays authoritative.
// In async mode Save only reports encoding failures and saves attempted
// after Close.
func (p *Persister) Save(ctx context.Context, snap *domain.Snapshot) error {
	blob, err := json.Marshal(snap)
	if err != nil {
		err = fmt.Errorf("engine.Persister.Save: encode: %w: %w", domain.ErrPersistenceWrite, err)
		p.report("save", err)
		return err
	}
	if p.queue != nil {
		if !p.enqueue(blob) {
			err = fmt.Errorf("engine.Persister.Save: persister closed: %w", domain.ErrPersistenceWrite)
			p.report("save", err)
			return err
		}
		return nil
	}
	return p.write(ctx, blob)
}

// enqueue replaces any pending snapshot with blob. It returns false once
// the writer has been closed.
func (p *Persister) enqueue(blob []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	for {
		select {
		case p.queue <- blob:
			return true
		default:
		}
		select {
		case <-p.queue:
			slog.Debug("dropped stale snapshot")
		default:
		}
	}
}

func (p *Persister) writeLoop() {
	defer p.wg.Done()
	for blob := range p.queue {
		_ = p.write(context.Background(), blob)
	}
}

func (p *Persister) write(ctx context.Context, blob []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.store.Put(ctx, p.cfg.Key, blob); err != nil {
		err = fmt.Errorf("engine.Persister.Save: put %q: %w: %w", p.cfg.Key, domain.ErrPersistenceWrite, err)
		p.report("save", err)
		return err
	}
	return nil
}

// Load reads and validates the stored snapshot. An empty slot, a malformed
// blob or a snapshot that breaks invariants all wrap ErrPersistenceRead.
// A store that cannot be reached wraps ErrPersistenceUnavailable instead:
// the slot may still hold good state and must not be overwritten.
func (p *Persister) Load(ctx context.Context) (*domain.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	blob, found, err := p.store.Get(ctx, p.cfg.Key)
	if err != nil {
		p.metrics.RecordPersistenceError("load")
		return nil, fmt.Errorf("engine.Persister.Load: get %q: %w: %w", p.cfg.Key, domain.ErrPersistenceUnavailable, err)
	}
	if !found {
		return nil, fmt.Errorf("engine.Persister.Load: slot %q is empty: %w", p.cfg.Key, domain.ErrPersistenceRead)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(blob, &snap); err != nil {
		p.metrics.RecordPersistenceError("load")
		return nil, fmt.Errorf("engine.Persister.Load: decode: %w: %w", domain.ErrPersistenceRead, err)
	}
	if err := snap.Validate(); err != nil {
		p.metrics.RecordPersistenceError("load")
		return nil, fmt.Errorf("engine.Persister.Load: validate: %w: %w", domain.ErrPersistenceRead, err)
	}
	return &snap, nil
}

// Clear empties the slot.
func (p *Persister) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	if err := p.store.Delete(ctx, p.cfg.Key); err != nil {
		err = fmt.Errorf("engine.Persister.Clear: delete %q: %w: %w", p.cfg.Key, domain.ErrPersistenceWrite, err)
		p.report("clear", err)
		return err
	}
	return nil
}

// Close drains the async writer. It does not close the store. Saves after
// Close fail with ErrPersistenceWrite.
func (p *Persister) Close() {
	p.once.Do(func() {
		if p.queue == nil {
			return
		}
		p.mu.Lock()
		p.closed = true
		close(p.queue)
		p.mu.Unlock()
		p.wg.Wait()
	})
}

func (p *Persister) report(op string, err error) {
	p.metrics.RecordPersistenceError(op)
	if p.warns.Allow() {
		slog.Warn("persistence failed, state kept in memory", "op", op, "err", err)
	}
}
