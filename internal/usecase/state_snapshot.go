package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"RatePulse/internal/domain/models"
	"RatePulse/internal/pricing"
	"RatePulse/pkg/cache"
	"RatePulse/pkg/logger"
)

const snapshotIndexKey = "state:index"

// StateSnapshotter periodically writes demand state to the cache so a
// restarted instance can serve quotes without replaying the outcome stream.
// Restore never overwrites state that was already rebuilt from live traffic.
type StateSnapshotter struct {
	store    *pricing.StateStore
	cache    cache.Service
	log      *logger.Logger
	interval time.Duration
	ttl      time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewStateSnapshotter creates a snapshotter over the given store.
func NewStateSnapshotter(store *pricing.StateStore, c cache.Service, log *logger.Logger, interval, ttl time.Duration) *StateSnapshotter {
	if interval <= 0 {
		interval = time.Minute
	}
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &StateSnapshotter{
		store:    store,
		cache:    c,
		log:      log,
		interval: interval,
		ttl:      ttl,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the snapshot loop until Shutdown or context cancellation.
func (s *StateSnapshotter) Start(ctx context.Context) {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stop:
				return
			case <-ticker.C:
				if err := s.Save(ctx); err != nil {
					s.log.Warn("state snapshot failed", logger.Error(err))
				}
			}
		}
	}()
}

// Shutdown stops the loop and writes one final snapshot.
func (s *StateSnapshotter) Shutdown(ctx context.Context) error {
	close(s.stop)
	select {
	case <-s.done:
	case <-ctx.Done():
	}
	return s.Save(ctx)
}

// Save writes every seeded bucket's state plus an index of bucket keys.
// States go in as JSON strings so both the memory and Redis backends
// round-trip them identically.
func (s *StateSnapshotter) Save(ctx context.Context) error {
	index := make([]string, 0)
	var saveErr error
	s.store.Range(func(key string, st models.DemandState) bool {
		b, err := json.Marshal(st)
		if err != nil {
			saveErr = err
			return false
		}
		if err := s.cache.Set(ctx, cache.GenerateKey("state", key), string(b), s.ttl); err != nil {
			saveErr = err
			return false
		}
		index = append(index, key)
		return true
	})
	if saveErr != nil {
		return saveErr
	}
	if len(index) == 0 {
		return nil
	}

	b, err := json.Marshal(index)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, snapshotIndexKey, string(b), s.ttl); err != nil {
		return err
	}
	s.log.Debug("state snapshot written", logger.Int("buckets", len(index)))
	return nil
}

// Restore loads the last snapshot into the store. A missing snapshot is not
// an error; the engine simply starts cold.
func (s *StateSnapshotter) Restore(ctx context.Context) (int, error) {
	var raw string
	if err := s.cache.Get(ctx, snapshotIndexKey, &raw); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return 0, nil
		}
		return 0, err
	}
	var index []string
	if err := json.Unmarshal([]byte(raw), &index); err != nil {
		return 0, err
	}

	restored := 0
	for _, k := range index {
		var sv string
		if err := s.cache.Get(ctx, cache.GenerateKey("state", k), &sv); err != nil {
			continue
		}
		var st models.DemandState
		if err := json.Unmarshal([]byte(sv), &st); err != nil {
			continue
		}
		s.store.Restore(k, st)
		restored++
	}
	s.log.Info("demand state restored from snapshot", logger.Int("buckets", restored))
	return restored, nil
}
