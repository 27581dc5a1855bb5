package weather

import (
	"context"
)

// Upstream abstracts the weather data source. Implementations report
// failures as *UpstreamError.
type Upstream interface {
	FetchCurrent(ctx context.Context, q LocationQuery) (CurrentConditions, error)
	FetchForecast(ctx context.Context, q LocationQuery) (ForecastFeed, error)
}

// Cache is the contract the query cache must satisfy. Get must treat stale
// entries as absent; Put overwrites unconditionally. Payloads returned by Get
// must not alias the stored entry.
type Cache interface {
	Get(q LocationQuery) (WeatherPayload, bool)
	Put(q LocationQuery, payload WeatherPayload)
}

// Metrics receives orchestration outcomes. A nil Metrics is allowed.
type Metrics interface {
	CacheHit()
	CacheMiss()
	UpstreamResult(feed string, err error)
}

type noopMetrics struct{}

func (noopMetrics) CacheHit()                    {}
func (noopMetrics) CacheMiss()                   {}
func (noopMetrics) UpstreamResult(string, error) {}
