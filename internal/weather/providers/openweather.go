package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org/data/2.5"

var _ weather.Upstream = (*OpenWeatherProvider)(nil)

// OpenWeatherProvider implements weather.Upstream against OpenWeatherMap's
// current weather and 5 day / 3 hour forecast endpoints.
type OpenWeatherProvider struct {
	name     string
	apiKey   string
	baseURL  string
	httpCfg  HTTPClientConfig
	current  *gobreaker.CircuitBreaker
	forecast *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// OpenWeatherOptions configures an OpenWeatherProvider.
type OpenWeatherOptions struct {
	APIKey     string
	BaseURL    string
	MaxRetries int
	Logger     *zap.Logger
}

func NewOpenWeatherProvider(client *http.Client, opts OpenWeatherOptions) *OpenWeatherProvider {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimRight(common.FirstNonEmpty(opts.BaseURL, DefaultOpenWeatherBaseURL), "/")

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      opts.MaxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		current:  newBreaker("openweather-current"),
		forecast: newBreaker("openweather-forecast"),
		logger:   logger.With(zap.String("provider", "openweathermap")),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// statusCode is OpenWeatherMap's in-body "cod" field, sent as a number on
// some endpoints and as a string on others.
type statusCode string

func (c *statusCode) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*c = statusCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = statusCode(n.String())
	}
	return nil
}

// optFloat, optInt and optString are leaves that decode to nil when the
// upstream sends null or a value of the wrong type.
type optFloat struct{ v *float64 }

func (o *optFloat) UnmarshalJSON(b []byte) error {
	var f float64
	if string(b) != "null" && json.Unmarshal(b, &f) == nil {
		o.v = &f
	}
	return nil
}

type optInt struct{ v *int64 }

func (o *optInt) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var n int64
	if json.Unmarshal(b, &n) == nil {
		o.v = &n
		return nil
	}
	var f float64
	if json.Unmarshal(b, &f) == nil {
		n = int64(f)
		o.v = &n
	}
	return nil
}

type optString struct{ v *string }

func (o *optString) UnmarshalJSON(b []byte) error {
	var s string
	if string(b) != "null" && json.Unmarshal(b, &s) == nil {
		o.v = &s
	}
	return nil
}

// owmEnvelope holds the fields every OpenWeatherMap body carries.
type owmEnvelope struct {
	Cod statusCode `json:"cod"`
	// Message is a string on errors but a number on successful forecasts.
	Message json.RawMessage `json:"message"`
}

func (e owmEnvelope) message() string {
	var s string
	if len(e.Message) > 0 && json.Unmarshal(e.Message, &s) == nil {
		return s
	}
	return ""
}

func (e owmEnvelope) envelope() owmEnvelope { return e }

// enveloped is implemented by every decoded body.
type enveloped interface {
	envelope() owmEnvelope
}

type owmCondition struct {
	Icon        optString `json:"icon"`
	Description optString `json:"description"`
}

type owmCurrent struct {
	owmEnvelope
	Name  optString `json:"name"`
	Coord *struct {
		Lon optFloat `json:"lon"`
		Lat optFloat `json:"lat"`
	} `json:"coord"`
	Weather []owmCondition `json:"weather"`
	Main    *struct {
		Temp      optFloat `json:"temp"`
		FeelsLike optFloat `json:"feels_like"`
		Pressure  optFloat `json:"pressure"`
		Humidity  optFloat `json:"humidity"`
	} `json:"main"`
	Visibility optFloat `json:"visibility"`
	Wind       *struct {
		Speed optFloat `json:"speed"`
	} `json:"wind"`
	Clouds *struct {
		All optFloat `json:"all"`
	} `json:"clouds"`
	Sys *struct {
		Country optString `json:"country"`
		Sunrise optInt    `json:"sunrise"`
		Sunset  optInt    `json:"sunset"`
	} `json:"sys"`
	Timezone optInt `json:"timezone"`
}

type owmForecast struct {
	owmEnvelope
	List []struct {
		Dt   optInt `json:"dt"`
		Main *struct {
			Temp optFloat `json:"temp"`
		} `json:"main"`
		Weather []owmCondition `json:"weather"`
	} `json:"list"`
	City *struct {
		Timezone optInt `json:"timezone"`
	} `json:"city"`
}

// FetchCurrent returns the current conditions for q.
func (p *OpenWeatherProvider) FetchCurrent(ctx context.Context, q weather.LocationQuery) (weather.CurrentConditions, error) {
	var payload owmCurrent
	if err := p.fetch(ctx, weather.FeedCurrent, "/weather", p.current, q, &payload); err != nil {
		return weather.CurrentConditions{}, err
	}
	return toCurrentConditions(payload), nil
}

// FetchForecast returns the 3-hourly forecast samples for q.
func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, q weather.LocationQuery) (weather.ForecastFeed, error) {
	var payload owmForecast
	if err := p.fetch(ctx, weather.FeedForecast, "/forecast", p.forecast, q, &payload); err != nil {
		return weather.ForecastFeed{}, err
	}
	return toForecastFeed(payload), nil
}

// fetch performs one lookup and decodes the body into out. Both the HTTP
// status and the in-body "cod" must say 200 for the call to succeed.
func (p *OpenWeatherProvider) fetch(
	ctx context.Context,
	feed, path string,
	cb *gobreaker.CircuitBreaker,
	q weather.LocationQuery,
	out enveloped,
) error {
	if p.apiKey == "" {
		return &weather.UpstreamError{
			Feed:    feed,
			Kind:    weather.UpstreamTransport,
			Message: weather.GenericUpstreamMessage(feed),
			Err:     errMissingAPIKey,
		}
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", q.Name)
		values.Set("appid", p.apiKey)
		values.Set("units", string(q.Units))

		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, cb, p.logger, buildRequest)
	if err != nil {
		return &weather.UpstreamError{
			Feed:    feed,
			Kind:    weather.UpstreamTransport,
			Status:  http.StatusInternalServerError,
			Message: weather.GenericUpstreamMessage(feed),
			Err:     err,
		}
	}
	defer resp.Body.Close()

	err = json.NewDecoder(resp.Body).Decode(out)
	// A structurally wrong branch (an object where a list belongs) is left
	// zero; the rest of the body still decodes.
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		p.logger.Debug("ignoring mistyped upstream field",
			zap.String("feed", feed),
			zap.String("field", typeErr.Field),
			zap.String("value", typeErr.Value),
		)
		err = nil
	}
	if err != nil {
		if resp.StatusCode != http.StatusOK {
			// Non-JSON error page: still an upstream rejection.
			return &weather.UpstreamError{
				Feed:    feed,
				Kind:    weather.UpstreamApplication,
				Status:  resp.StatusCode,
				Message: weather.GenericUpstreamMessage(feed),
				Err:     err,
			}
		}
		return &weather.UpstreamError{
			Feed:    feed,
			Kind:    weather.UpstreamTransport,
			Status:  resp.StatusCode,
			Message: weather.GenericUpstreamMessage(feed),
			Err:     fmt.Errorf("decoding %s response: %w", feed, err),
		}
	}

	env := out.envelope()
	if resp.StatusCode != http.StatusOK || env.Cod != "200" {
		status := resp.StatusCode
		if n, err := strconv.Atoi(string(env.Cod)); err == nil && status == http.StatusOK {
			status = n
		}
		return &weather.UpstreamError{
			Feed:    feed,
			Kind:    weather.UpstreamApplication,
			Status:  status,
			Message: common.FirstNonEmpty(env.message(), weather.GenericUpstreamMessage(feed)),
		}
	}
	return nil
}

func toCurrentConditions(p owmCurrent) weather.CurrentConditions {
	c := weather.CurrentConditions{
		Name:           p.Name.v,
		Visibility:     p.Visibility.v,
		TimezoneOffset: p.Timezone.v,
	}
	if p.Coord != nil {
		c.Coord = &weather.Coord{Lon: p.Coord.Lon.v, Lat: p.Coord.Lat.v}
	}
	if len(p.Weather) > 0 {
		c.Icon = p.Weather[0].Icon.v
		c.Description = p.Weather[0].Description.v
	}
	if p.Main != nil {
		c.Temperature = p.Main.Temp.v
		c.FeelsLike = p.Main.FeelsLike.v
		c.Pressure = p.Main.Pressure.v
		c.Humidity = p.Main.Humidity.v
	}
	if p.Wind != nil {
		c.WindSpeed = p.Wind.Speed.v
	}
	if p.Clouds != nil {
		c.Clouds = p.Clouds.All.v
	}
	if p.Sys != nil {
		c.Country = p.Sys.Country.v
		c.Sunrise = p.Sys.Sunrise.v
		c.Sunset = p.Sys.Sunset.v
	}
	return c
}

// toForecastFeed drops list items without a usable timestamp.
func toForecastFeed(p owmForecast) weather.ForecastFeed {
	feed := weather.ForecastFeed{Samples: make([]weather.RawSample, 0, len(p.List))}
	if p.City != nil {
		feed.TimezoneOffset = p.City.Timezone.v
	}
	for _, item := range p.List {
		if item.Dt.v == nil {
			continue
		}
		s := weather.RawSample{Epoch: *item.Dt.v}
		if item.Main != nil {
			s.Temperature = item.Main.Temp.v
		}
		if len(item.Weather) > 0 {
			s.Icon = item.Weather[0].Icon.v
			s.Description = item.Weather[0].Description.v
		}
		feed.Samples = append(feed.Samples, s)
	}
	return feed
}
