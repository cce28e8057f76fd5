package postcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"musomatch/backend/internal/models"
)

// LookupClient is the external geocoding collaborator.
type LookupClient interface {
	Lookup(ctx context.Context, normalized string) (models.GeoPoint, error)
}

// Resolver validates, looks up, and caches postcode resolutions. Cache
// entries are keyed by normalized postcode and live for the whole process.
type Resolver struct {
	client LookupClient
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]models.GeoPoint
}

// NewResolver creates resolver.
func NewResolver(client LookupClient, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client: client,
		logger: logger,
		cache:  make(map[string]models.GeoPoint),
	}
}

// Resolve converts a free-text postcode into a geographic point. Invalid
// syntax fails fast with ErrInvalidFormat before any lookup.
func (r *Resolver) Resolve(ctx context.Context, raw string) (models.GeoPoint, error) {
	normalized, err := Normalize(raw)
	if err != nil {
		return models.GeoPoint{}, err
	}

	r.mu.RLock()
	cached, ok := r.cache[normalized]
	r.mu.RUnlock()
	if ok {
		return cached, nil
	}

	point, err := r.client.Lookup(ctx, normalized)
	if err != nil {
		return models.GeoPoint{}, err
	}

	r.mu.Lock()
	r.cache[normalized] = point
	r.mu.Unlock()

	r.logger.Debug("postcode_resolved", "postcode", normalized, "lat", point.Lat, "lng", point.Lng)
	return point, nil
}

// ResolveWithRetry retries transient lookup failures with exponential
// backoff. Permanent errors (invalid format, unknown postcode) return
// immediately.
func (r *Resolver) ResolveWithRetry(ctx context.Context, raw string, attempts int, base time.Duration) (models.GeoPoint, error) {
	if attempts <= 0 {
		attempts = 1
	}
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		point, err := r.Resolve(ctx, raw)
		if err == nil {
			return point, nil
		}
		if !errors.Is(err, models.ErrTransient) {
			return models.GeoPoint{}, err
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return models.GeoPoint{}, fmt.Errorf("resolve canceled: %w", models.ErrTransient)
		case <-time.After(base << i):
		}
	}
	return models.GeoPoint{}, lastErr
}
