package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CacheTTL != 300*time.Second {
		t.Fatalf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.HTTPTimeout != 12*time.Second {
		t.Fatalf("HTTPTimeout = %v, want 12s", cfg.HTTPTimeout)
	}
	if cfg.HourlyCount != 4 || cfg.DailyCount != 5 {
		t.Fatalf("unexpected slice sizes %d/%d", cfg.HourlyCount, cfg.DailyCount)
	}
	if cfg.UpstreamMaxRetries != 0 {
		t.Fatalf("expected no retries by default, got %d", cfg.UpstreamMaxRetries)
	}
	if cfg.OpenWeatherAPIKey != "" {
		t.Fatalf("expected empty api key")
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if len(cfg.WarmLocations) != 0 {
		t.Fatalf("expected no warm locations, got %v", cfg.WarmLocations)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"OPENWEATHER_API_KEY": "secret",
		"CACHE_TTL":           "90s",
		"CACHE_CAPACITY":      "0",
		"HOURLY_COUNT":        "8",
		"WARM_LOCATIONS":      "Paris,London",
		"WARM_UNITS":          "imperial",
		"PORT":                "9000",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OpenWeatherAPIKey != "secret" || cfg.CacheTTL != 90*time.Second || cfg.CacheCapacity != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.HourlyCount != 8 || cfg.WarmUnits != "imperial" || cfg.Port != "9000" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.WarmLocations) != 2 || cfg.WarmLocations[1] != "London" {
		t.Fatalf("unexpected warm locations: %v", cfg.WarmLocations)
	}
}

func TestWarmCitiesTrimsAndSkipsBlanks(t *testing.T) {
	cfg, err := Parse(env.Options{Environment: map[string]string{
		"WARM_LOCATIONS": "Paris, London ,, ,New York",
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := cfg.WarmCities()
	want := []string{"Paris", "London", "New York"}
	if len(got) != len(want) {
		t.Fatalf("WarmCities() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("WarmCities() = %q, want %q", got, want)
		}
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad duration":  {"CACHE_TTL": "soon"},
		"zero ttl":      {"CACHE_TTL": "0s"},
		"bad units":     {"WARM_UNITS": "kelvin"},
		"too many days": {"DAILY_COUNT": "9"},
		"bad log level": {"LOG_LEVEL": "loud"},
	}
	for name, vars := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(env.Options{Environment: vars}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
