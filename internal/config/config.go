package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	// OpenWeatherAPIKey may be empty; lookups then fail per request.
	OpenWeatherAPIKey  string        `env:"OPENWEATHER_API_KEY"`
	OpenWeatherBaseURL string        `env:"OPENWEATHER_BASE_URL" envDefault:"https://api.openweathermap.org/data/2.5" validate:"required,url"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"12s" validate:"gt=0"`
	UpstreamMaxRetries int           `env:"UPSTREAM_MAX_RETRIES" envDefault:"0" validate:"gte=0,lte=5"`

	// Query cache.
	CacheTTL           time.Duration `env:"CACHE_TTL" envDefault:"5m" validate:"gt=0"`
	CacheCapacity      int           `env:"CACHE_CAPACITY" envDefault:"1024" validate:"gte=0"` // 0 = unlimited
	CacheSweepInterval time.Duration `env:"CACHE_SWEEP_INTERVAL" envDefault:"1m" validate:"gte=0"`

	// Payload shape.
	HourlyCount int `env:"HOURLY_COUNT" envDefault:"4" validate:"gte=1,lte=40"`
	DailyCount  int `env:"DAILY_COUNT" envDefault:"5" validate:"gte=1,lte=6"`

	// Locations refreshed in the background so that first hits are warm.
	WarmLocations []string      `env:"WARM_LOCATIONS" envSeparator:","`
	WarmUnits     string        `env:"WARM_UNITS" envDefault:"metric" validate:"oneof=metric imperial"`
	WarmInterval  time.Duration `env:"WARM_INTERVAL" envDefault:"4m" validate:"gte=0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
}

// WarmCities returns the configured warm-up locations, trimmed, with blank
// entries dropped.
func (c *AppConfig) WarmCities() []string {
	cities := make([]string, 0, len(c.WarmLocations))
	for _, city := range c.WarmLocations {
		if city = strings.TrimSpace(city); city != "" {
			cities = append(cities, city)
		}
	}
	return cities
}

// Load reads configuration from .env and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return Parse(env.Options{})
}

// Parse builds an AppConfig from the process environment, or from
// opts.Environment when set, and validates it.
func Parse(opts env.Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
