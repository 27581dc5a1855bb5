package weather_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/i474232898/weather-dashboard/internal/store"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

type fakeUpstream struct {
	currentCalls  atomic.Int32
	forecastCalls atomic.Int32

	currentErr  error
	forecastErr error
	temp        float64
	delay       time.Duration
}

func (u *fakeUpstream) FetchCurrent(_ context.Context, q weather.LocationQuery) (weather.CurrentConditions, error) {
	u.currentCalls.Add(1)
	if u.delay > 0 {
		time.Sleep(u.delay)
	}
	if u.currentErr != nil {
		return weather.CurrentConditions{}, u.currentErr
	}
	name := q.Name
	temp := u.temp
	offset := int64(3600)
	return weather.CurrentConditions{Name: &name, Temperature: &temp, TimezoneOffset: &offset}, nil
}

func (u *fakeUpstream) FetchForecast(_ context.Context, _ weather.LocationQuery) (weather.ForecastFeed, error) {
	u.forecastCalls.Add(1)
	if u.forecastErr != nil {
		return weather.ForecastFeed{}, u.forecastErr
	}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Unix()
	var samples []weather.RawSample
	for i := 0; i < 40; i++ {
		t := 10 + float64(i%8)
		icon := "01d"
		samples = append(samples, weather.RawSample{Epoch: base + int64(i)*3*3600, Temperature: &t, Icon: &icon})
	}
	return weather.ForecastFeed{Samples: samples}, nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type countingMetrics struct {
	mu       sync.Mutex
	hits     int
	misses   int
	failures map[string]int
}

func (m *countingMetrics) CacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hits++
}

func (m *countingMetrics) CacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.misses++
}

func (m *countingMetrics) UpstreamResult(feed string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if m.failures == nil {
			m.failures = make(map[string]int)
		}
		m.failures[feed]++
	}
}

func newService(up weather.Upstream, clk *clock, metrics weather.Metrics) *weather.Service {
	cache := store.NewMemoryStore(300*time.Second, 0, store.WithClock(clk.Now))
	return weather.NewService(cache, up, weather.BuildOptions{HourlyCount: 4, DailyCount: 5}, metrics, nil)
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)}
}

func TestQuerySuccess(t *testing.T) {
	up := &fakeUpstream{temp: 21.349}
	svc := newService(up, newClock(), nil)

	p, err := svc.Query(context.Background(), "Paris", "metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Units != weather.Metric {
		t.Fatalf("expected metric units, got %s", p.Units)
	}
	if p.Now.Temperature != 21.3 {
		t.Fatalf("expected rounded temperature 21.3, got %v", p.Now.Temperature)
	}
	if len(p.Hourly) > 4 || len(p.Hourly) == 0 {
		t.Fatalf("unexpected hourly length %d", len(p.Hourly))
	}
	if len(p.Daily) > 5 || len(p.Daily) == 0 {
		t.Fatalf("unexpected daily length %d", len(p.Daily))
	}
	for i := 1; i < len(p.Daily); i++ {
		if p.Daily[i-1].Date >= p.Daily[i].Date {
			t.Fatalf("daily not sorted: %+v", p.Daily)
		}
	}
}

func TestQueryRejectsEmptyCity(t *testing.T) {
	up := &fakeUpstream{}
	svc := newService(up, newClock(), nil)

	for _, city := range []string{"", "   "} {
		_, err := svc.Query(context.Background(), city, "metric")
		var ve *weather.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("city %q: expected ValidationError, got %v", city, err)
		}
	}
	if up.currentCalls.Load() != 0 || up.forecastCalls.Load() != 0 {
		t.Fatalf("expected no upstream calls")
	}
}

func TestQueryRejectsUnknownUnits(t *testing.T) {
	up := &fakeUpstream{}
	svc := newService(up, newClock(), nil)

	_, err := svc.Query(context.Background(), "Paris", "kelvin")
	var ve *weather.ValidationError
	if !errors.As(err, &ve) || ve.Field != "units" {
		t.Fatalf("expected units ValidationError, got %v", err)
	}
	if up.currentCalls.Load() != 0 {
		t.Fatalf("expected no upstream calls")
	}
}

func TestQueryCurrentApplicationErrorSkipsForecast(t *testing.T) {
	up := &fakeUpstream{currentErr: &weather.UpstreamError{
		Feed:    weather.FeedCurrent,
		Kind:    weather.UpstreamApplication,
		Status:  404,
		Message: "city not found",
	}}
	metrics := &countingMetrics{}
	svc := newService(up, newClock(), metrics)

	_, err := svc.Query(context.Background(), "Nowhereistan", "metric")
	var ue *weather.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Kind != weather.UpstreamApplication || ue.Message != "city not found" {
		t.Fatalf("unexpected error: %+v", ue)
	}
	if up.forecastCalls.Load() != 0 {
		t.Fatalf("forecast must not be fetched after current fails")
	}
	if metrics.failures[weather.FeedCurrent] != 1 {
		t.Fatalf("expected one recorded current failure, got %v", metrics.failures)
	}
}

func TestQueryForecastFailureIsNotCached(t *testing.T) {
	up := &fakeUpstream{forecastErr: errors.New("connection reset")}
	svc := newService(up, newClock(), nil)

	_, err := svc.Query(context.Background(), "Paris", "metric")
	var ue *weather.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if ue.Feed != weather.FeedForecast || ue.Kind != weather.UpstreamTransport {
		t.Fatalf("unexpected error: %+v", ue)
	}
	if ue.Message != "Unable to fetch forecast" {
		t.Fatalf("expected generic message, got %q", ue.Message)
	}

	up.forecastErr = nil
	if _, err := svc.Query(context.Background(), "Paris", "metric"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.currentCalls.Load() != 2 {
		t.Fatalf("expected failure not to be cached, got %d current calls", up.currentCalls.Load())
	}
}

func TestQueryServesCacheWithinTTL(t *testing.T) {
	up := &fakeUpstream{temp: 12}
	clk := newClock()
	metrics := &countingMetrics{}
	svc := newService(up, clk, metrics)

	first, err := svc.Query(context.Background(), "Paris", "metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(299 * time.Second)
	second, err := svc.Query(context.Background(), "PARIS", "metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if up.currentCalls.Load() != 1 || up.forecastCalls.Load() != 1 {
		t.Fatalf("expected one upstream round trip, got %d/%d", up.currentCalls.Load(), up.forecastCalls.Load())
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("expected byte-identical payloads")
	}
	if metrics.hits != 1 || metrics.misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", metrics.hits, metrics.misses)
	}
}

func TestQueryRefreshesAfterTTL(t *testing.T) {
	up := &fakeUpstream{temp: 12}
	clk := newClock()
	svc := newService(up, clk, nil)

	if _, err := svc.Query(context.Background(), "Paris", "metric"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clk.Advance(300 * time.Second)
	up.temp = 15
	p, err := svc.Query(context.Background(), "Paris", "metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.currentCalls.Load() != 2 || up.forecastCalls.Load() != 2 {
		t.Fatalf("expected a second upstream round trip")
	}
	if p.Now.Temperature != 15 {
		t.Fatalf("expected refreshed payload, got %v", p.Now.Temperature)
	}

	// The refreshed entry is served from cache again.
	if _, err := svc.Query(context.Background(), "Paris", "metric"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up.currentCalls.Load() != 2 {
		t.Fatalf("expected cache hit after refresh")
	}
}

func TestQueryUnitsAreSeparateKeys(t *testing.T) {
	up := &fakeUpstream{}
	svc := newService(up, newClock(), nil)

	if _, err := svc.Query(context.Background(), "Paris", "metric"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := svc.Query(context.Background(), "Paris", "imperial")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Units != weather.Imperial {
		t.Fatalf("expected imperial payload")
	}
	if up.currentCalls.Load() != 2 {
		t.Fatalf("expected separate fetch per unit system")
	}
}

func TestQueryDeduplicatesConcurrentMisses(t *testing.T) {
	up := &fakeUpstream{delay: 50 * time.Millisecond}
	svc := newService(up, newClock(), nil)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := svc.Query(context.Background(), "Paris", "metric"); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if n := up.currentCalls.Load(); n != 1 {
		t.Fatalf("expected a single upstream round trip, got %d", n)
	}
}

func TestRefreshOverwritesFreshEntry(t *testing.T) {
	up := &fakeUpstream{temp: 1}
	svc := newService(up, newClock(), nil)
	q := weather.LocationQuery{Name: "Paris", Units: weather.Metric}

	if _, err := svc.Query(context.Background(), q.Name, "metric"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	up.temp = 2
	if _, err := svc.Refresh(context.Background(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := svc.Query(context.Background(), q.Name, "metric")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Now.Temperature != 2 {
		t.Fatalf("expected refreshed value 2, got %v", p.Now.Temperature)
	}
}
