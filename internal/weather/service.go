package weather

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Service orchestrates cache lookups, upstream fetches and payload building.
type Service struct {
	cache    Cache
	upstream Upstream
	metrics  Metrics
	logger   *zap.Logger
	opts     BuildOptions

	flights singleflight.Group
}

// NewService creates a new Service. metrics and logger may be nil.
func NewService(cache Cache, upstream Upstream, opts BuildOptions, metrics Metrics, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cache:    cache,
		upstream: upstream,
		metrics:  metrics,
		logger:   logger,
		opts:     opts,
	}
}

// Query answers "what is the weather in city, in units". A fresh cached
// payload is returned as is; otherwise both feeds are fetched, the payload
// rebuilt and the cache overwritten. Concurrent misses for the same key
// share one upstream round trip.
func (s *Service) Query(ctx context.Context, city, units string) (WeatherPayload, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return WeatherPayload{}, &ValidationError{Field: "city", Message: "City is required"}
	}
	us, err := ParseUnitSystem(units)
	if err != nil {
		return WeatherPayload{}, err
	}
	q := LocationQuery{Name: city, Units: us}

	if cached, ok := s.cache.Get(q); ok {
		s.metrics.CacheHit()
		return cached, nil
	}
	s.metrics.CacheMiss()

	// The shared fetch must not die with whichever caller started it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.flights.Do(q.Key(), func() (interface{}, error) {
		return s.refresh(fetchCtx, q)
	})
	if err != nil {
		return WeatherPayload{}, err
	}
	if shared {
		s.logger.Debug("joined in-flight refresh", zap.String("key", q.Key()))
	}
	return v.(WeatherPayload), nil
}

// Refresh fetches q from upstream and overwrites its cache entry regardless
// of whether the current entry is still fresh.
func (s *Service) Refresh(ctx context.Context, q LocationQuery) (WeatherPayload, error) {
	v, err, _ := s.flights.Do(q.Key(), func() (interface{}, error) {
		return s.refresh(ctx, q)
	})
	if err != nil {
		return WeatherPayload{}, err
	}
	return v.(WeatherPayload), nil
}

func (s *Service) refresh(ctx context.Context, q LocationQuery) (WeatherPayload, error) {
	current, err := s.upstream.FetchCurrent(ctx, q)
	s.metrics.UpstreamResult(FeedCurrent, err)
	if err != nil {
		return WeatherPayload{}, s.upstreamFailure(q, FeedCurrent, err)
	}

	forecast, err := s.upstream.FetchForecast(ctx, q)
	s.metrics.UpstreamResult(FeedForecast, err)
	if err != nil {
		return WeatherPayload{}, s.upstreamFailure(q, FeedForecast, err)
	}

	payload := BuildPayload(current, forecast, q.Units, s.opts)
	s.cache.Put(q, payload)

	s.logger.Info("weather refreshed",
		zap.String("city", q.Name),
		zap.String("units", string(q.Units)),
		zap.Int("hourly", len(payload.Hourly)),
		zap.Int("daily", len(payload.Daily)),
	)
	return payload, nil
}

// upstreamFailure logs err and normalizes it into an *UpstreamError.
func (s *Service) upstreamFailure(q LocationQuery, feed string, err error) error {
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		ue = &UpstreamError{
			Feed:    feed,
			Kind:    UpstreamTransport,
			Message: GenericUpstreamMessage(feed),
			Err:     err,
		}
	}

	fields := []zap.Field{
		zap.String("city", q.Name),
		zap.String("units", string(q.Units)),
		zap.String("feed", feed),
		zap.String("message", ue.Message),
	}
	if ue.Kind == UpstreamTransport {
		s.logger.Error("upstream request failed", append(fields, zap.Error(err))...)
	} else {
		s.logger.Warn("upstream rejected query", fields...)
	}
	return ue
}
