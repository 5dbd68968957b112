// Package whitelist maintains the store of known-benign observable values
// suppressed from actionable extraction output.
package whitelist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/willf/bloom"
	"go.uber.org/zap"

	"docintel/core"
)

// bloomCapacity sizes the negative-lookup filter. Warning lists run to a few
// hundred thousand entries; 5 hash functions keeps the false-positive rate
// around 1%.
const (
	bloomCapacity = 1_000_000
	bloomHashes   = 5
)

// LookupCache is an optional shared cache consulted between the bloom filter
// and storage. Deployments running several worker processes point this at
// redis so whitelist decisions are shared.
type LookupCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// cacheTTL bounds staleness of shared whitelist decisions
const cacheTTL = time.Hour

// ErrUnsupportedType is returned for observable types that cannot carry a
// whitelist entry. File observables are identified by their hash set, not a
// single value, so a value-keyed entry could never match one.
var ErrUnsupportedType = errors.New("observable type cannot be whitelisted")

// Service records and answers whitelist membership. Lookups take three
// steps: a bloom filter for the fast negative path, the optional shared
// cache, then storage.
type Service struct {
	store   core.ObservableStorage
	cache   LookupCache
	execCtx *core.ExecutionContext
	logger  *zap.SugaredLogger

	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewService creates a whitelist service attributed to the automation
// identity in execCtx. cache may be nil.
func NewService(store core.ObservableStorage, cache LookupCache, execCtx *core.ExecutionContext, logger *zap.SugaredLogger) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		execCtx: execCtx,
		logger:  logger,
		filter:  bloom.New(bloomCapacity, bloomHashes),
	}
}

// Warm seeds the bloom filter from previously stored whitelist entries.
// Called once at startup; lookups before warming fall through to storage.
func (s *Service) Warm(ctx context.Context) error {
	entries, err := s.store.ListByStatus(ctx, core.ObservableStatusWhitelisted)
	if err != nil {
		return fmt.Errorf("load whitelist entries: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, obs := range entries {
		s.filter.Add([]byte(obs.Key()))
	}

	s.logger.Infow("Whitelist filter warmed", "entries", len(entries))
	return nil
}

// AddWhitelistedObservable idempotently records a (type, value) pair as
// permanently whitelisted, attributed to the automation identity. An
// existing observable with the same identity is transitioned to whitelisted
// rather than duplicated.
func (s *Service) AddWhitelistedObservable(ctx context.Context, obsType core.ObservableType, value string) error {
	if obsType == core.ObservableTypeFile {
		return fmt.Errorf("%w: %s", ErrUnsupportedType, obsType)
	}
	obs, err := core.NewObservable(obsType, value, s.execCtx.AccountID)
	if err != nil {
		return fmt.Errorf("whitelist candidate: %w", err)
	}
	key := obs.Key()

	existing, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return fmt.Errorf("whitelist lookup: %w", err)
	}

	switch {
	case existing == nil:
		obs.Status = core.ObservableStatusWhitelisted
		if err := s.store.CreateObservable(ctx, obs); err != nil {
			return fmt.Errorf("create whitelist entry: %w", err)
		}
	case existing.Status == core.ObservableStatusWhitelisted:
		// Already whitelisted, nothing to do.
	default:
		if err := existing.TransitionTo(core.ObservableStatusWhitelisted, s.execCtx.AccountID); err != nil {
			return fmt.Errorf("whitelist transition: %w", err)
		}
		if err := s.store.UpdateObservable(ctx, existing); err != nil {
			return fmt.Errorf("update whitelist entry: %w", err)
		}
	}

	s.mu.Lock()
	s.filter.Add([]byte(key))
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), true, cacheTTL); err != nil {
			s.logger.Warnw("Failed to cache whitelist entry", "key", key, "error", err)
		}
	}

	return nil
}

// IsWhitelisted reports whether a (type, value) pair is known benign
func (s *Service) IsWhitelisted(ctx context.Context, obsType core.ObservableType, value string) (bool, error) {
	key := string(obsType) + "|" + core.NormalizeObservableValue(obsType, value)

	s.mu.RLock()
	maybe := s.filter.Test([]byte(key))
	s.mu.RUnlock()
	if !maybe {
		return false, nil
	}

	if s.cache != nil {
		var hit bool
		found, err := s.cache.Get(ctx, cacheKey(key), &hit)
		if err != nil {
			s.logger.Warnw("Whitelist cache lookup failed", "key", key, "error", err)
		} else if found {
			return hit, nil
		}
	}

	existing, err := s.store.FindByKey(ctx, key)
	if err != nil {
		return false, fmt.Errorf("whitelist lookup: %w", err)
	}
	whitelisted := existing != nil && existing.Status == core.ObservableStatusWhitelisted

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(key), whitelisted, cacheTTL); err != nil {
			s.logger.Warnw("Failed to cache whitelist decision", "key", key, "error", err)
		}
	}

	return whitelisted, nil
}

func cacheKey(key string) string {
	return "whitelist:" + key
}
