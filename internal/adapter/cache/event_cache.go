// internal/adapter/cache/event_cache.go

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stagemap/internal/domain/event"
)

const (
	// listAllKey prefixes the unfiltered event listing; the generation is appended
	listAllKey = "stagemap:events:list:all"

	// generationKey is bumped on every write so listings read before it are never served
	generationKey = "stagemap:events:list:gen"

	defaultListTTL = 30 * time.Second
)

// ListingCache is the subset of the Redis client the cache uses
type ListingCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// EventRepository is the event storage surface the cache wraps
type EventRepository interface {
	CreateEvent(ctx context.Context, e event.Event) error
	UpdateEvent(ctx context.Context, e event.Event) error
	GetEvent(ctx context.Context, id string) (*event.Event, error)
	ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error)
}

// CachedEventRepository wraps an EventRepository with a Redis cache for the
// unfiltered listing. Filtered listings and single lookups go straight through.
type CachedEventRepository struct {
	repo   EventRepository
	cache  ListingCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedEventRepository creates a new CachedEventRepository
func NewCachedEventRepository(repo EventRepository, cache ListingCache, ttl time.Duration, logger *zap.Logger) *CachedEventRepository {
	if ttl <= 0 {
		ttl = defaultListTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedEventRepository{
		repo:   repo,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// CreateEvent creates an event and invalidates the listing
func (r *CachedEventRepository) CreateEvent(ctx context.Context, e event.Event) error {
	if err := r.repo.CreateEvent(ctx, e); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// UpdateEvent updates an event and invalidates the listing
func (r *CachedEventRepository) UpdateEvent(ctx context.Context, e event.Event) error {
	if err := r.repo.UpdateEvent(ctx, e); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

// GetEvent is not cached
func (r *CachedEventRepository) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return r.repo.GetEvent(ctx, id)
}

// ListEvents serves the unfiltered listing from Redis when possible
func (r *CachedEventRepository) ListEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	if !isUnfiltered(filter) {
		return r.repo.ListEvents(ctx, filter)
	}

	// The generation is read before the database so a listing that raced a
	// write is stored under a generation no later reader asks for
	key, ok := r.listingKey(ctx)
	if !ok {
		return r.repo.ListEvents(ctx, filter)
	}

	cached, err := r.cache.Get(ctx, key).Bytes()
	if err == nil {
		var events []event.Event
		if err := json.Unmarshal(cached, &events); err == nil {
			return events, nil
		}
		r.logger.Warn("discarding unreadable cached event listing")
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("event listing cache read failed", zap.Error(err))
	}

	events, err := r.repo.ListEvents(ctx, filter)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(events); err == nil {
		if err := r.cache.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("event listing cache write failed", zap.Error(err))
		}
	}

	return events, nil
}

// Invalidate moves readers to a new listing generation
func (r *CachedEventRepository) Invalidate(ctx context.Context) error {
	return r.cache.Incr(ctx, generationKey).Err()
}

func (r *CachedEventRepository) listingKey(ctx context.Context) (string, bool) {
	gen, err := r.cache.Get(ctx, generationKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		gen = "0"
	case err != nil:
		r.logger.Warn("event listing cache read failed", zap.Error(err))
		return "", false
	}
	return listAllKey + ":" + gen, true
}

func (r *CachedEventRepository) invalidate(ctx context.Context) {
	if err := r.Invalidate(ctx); err != nil {
		r.logger.Warn("event listing cache invalidation failed", zap.Error(err))
	}
}

func isUnfiltered(f event.Filter) bool {
	return f.Search == "" && f.OrganizerID == "" && f.Within == nil
}
