package upstreams

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Source supplies dynamically persisted upstream records, typically from a
// database owned by a management layer. Implementations are out of scope
// here; the store only merges what they return.
type Source interface {
	LoadAll(ctx context.Context) ([]*Record, error)
}

// WarmupFunc pre-populates routing state after static records load. It is
// advisory: it runs detached, its failures are discarded, and no caller path
// waits on it.
type WarmupFunc func(context.Context)

const warmupTimeout = 30 * time.Second

// Store holds the static and dynamic partitions of upstream records and
// exposes their union. It is safe for concurrent use; reads proceed in
// parallel while writes are serialized.
type Store struct {
	logger *zap.Logger

	mu      sync.RWMutex
	static  map[string]*Record
	dynamic map[string]*Record

	warmupMu   sync.Mutex
	warmup     WarmupFunc
	nextWarmup int
	cancels    map[int]context.CancelFunc
	closed     bool
}

// NewStore constructs an empty Store. A nil logger disables diagnostics.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		logger:  logger.Named("upstreams"),
		static:  make(map[string]*Record),
		dynamic: make(map[string]*Record),
		cancels: make(map[int]context.CancelFunc),
	}
}

// SetWarmup registers the hook scheduled after each successful LoadStatic.
// A nil hook (the default) makes warm-up a no-op.
func (s *Store) SetWarmup(fn WarmupFunc) {
	s.warmupMu.Lock()
	s.warmup = fn
	s.warmupMu.Unlock()
}

// LoadStatic validates every configuration entry and inserts the resulting
// records into the static partition. A malformed entry is rejected without
// affecting the others; the returned error joins all per-entry failures.
// Loading schedules a detached catalog warm-up that never blocks the caller.
func (s *Store) LoadStatic(cfg map[string]ServerConfig) error {
	var errs []error
	s.mu.Lock()
	for alias, sc := range cfg {
		sc = sc.withDefaults()
		if err := sc.validate(alias); err != nil {
			errs = append(errs, err)
			continue
		}
		rec := sc.record(alias)
		s.static[rec.ID] = rec
		s.logger.Debug("loaded static upstream",
			zap.String("alias", rec.Alias), zap.String("id", rec.ID))
	}
	s.mu.Unlock()

	s.scheduleWarmup()
	return errors.Join(errs...)
}

func (s *Store) scheduleWarmup() {
	s.warmupMu.Lock()
	fn := s.warmup
	if fn == nil || s.closed {
		s.warmupMu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), warmupTimeout)
	key := s.nextWarmup
	s.nextWarmup++
	s.cancels[key] = cancel
	s.warmupMu.Unlock()

	go func() {
		defer func() {
			cancel()
			s.warmupMu.Lock()
			delete(s.cancels, key)
			s.warmupMu.Unlock()
		}()
		// Warm-up is advisory; isolate panics.
		defer func() { _ = recover() }()
		fn(ctx)
	}()
}

// Upsert inserts a record into the dynamic partition unless its id is already
// present in either partition. Re-adding a known id is a no-op, and a static
// record is never overridden. It reports whether the record was inserted.
func (s *Store) Upsert(rec *Record) bool {
	if rec == nil || rec.ID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.static[rec.ID]; ok {
		return false
	}
	if _, ok := s.dynamic[rec.ID]; ok {
		return false
	}
	s.dynamic[rec.ID] = rec
	s.logger.Debug("registered upstream",
		zap.String("alias", rec.Alias), zap.String("id", rec.ID))
	return true
}

// Remove deletes a dynamic record, matching by normalized alias first and id
// second. Static records cannot be removed. A miss is a logged no-op.
func (s *Store) Remove(aliasOrID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	norm := NormalizeAlias(aliasOrID)
	for id, rec := range s.dynamic {
		if NormalizeAlias(rec.Alias) == norm {
			delete(s.dynamic, id)
			s.logger.Debug("removed upstream", zap.String("alias", rec.Alias))
			return
		}
	}
	if _, ok := s.dynamic[aliasOrID]; ok {
		delete(s.dynamic, aliasOrID)
		s.logger.Debug("removed upstream", zap.String("id", aliasOrID))
		return
	}
	for id, rec := range s.static {
		if id == aliasOrID || NormalizeAlias(rec.Alias) == norm {
			s.logger.Warn("upstream is statically configured and cannot be removed",
				zap.String("upstream", aliasOrID))
			return
		}
	}
	s.logger.Warn("upstream not found in registry", zap.String("upstream", aliasOrID))
}

// Union returns all records keyed by id. Static records win id ties.
func (s *Store) Union() map[string]*Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	union := make(map[string]*Record, len(s.static)+len(s.dynamic))
	for id, rec := range s.dynamic {
		union[id] = rec
	}
	for id, rec := range s.static {
		union[id] = rec
	}
	return union
}

// ByID looks a record up in either partition, static first.
func (s *Store) ByID(id string) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.static[id]; ok {
		return rec, true
	}
	rec, ok := s.dynamic[id]
	return rec, ok
}

// ByAlias looks a record up by alias. The alias is normalized before
// comparison; static records take precedence.
func (s *Store) ByAlias(alias string) (*Record, bool) {
	norm := NormalizeAlias(alias)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.static {
		if NormalizeAlias(rec.Alias) == norm {
			return rec, true
		}
	}
	for _, rec := range s.dynamic {
		if NormalizeAlias(rec.Alias) == norm {
			return rec, true
		}
	}
	return nil, false
}

// Hydrate merges records from a durable source into the dynamic partition.
// An unreachable source is reported as ErrStoreUnavailable rather than being
// treated as zero records; already-loaded partitions keep serving either way.
func (s *Store) Hydrate(ctx context.Context, src Source) error {
	if src == nil {
		return fmt.Errorf("%w: no source configured", ErrStoreUnavailable)
	}
	recs, err := src.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	for _, rec := range recs {
		s.Upsert(rec)
	}
	return nil
}

// Close cancels any warm-up still in flight. The store remains readable.
func (s *Store) Close() {
	s.warmupMu.Lock()
	s.closed = true
	cancels := s.cancels
	s.cancels = nil
	s.warmupMu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}
