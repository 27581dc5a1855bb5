package weather

import (
	"fmt"
	"strings"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// UnitSystem selects the units of every numeric field in a payload.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// ParseUnitSystem maps user input to a UnitSystem. Blank input means Metric.
func ParseUnitSystem(s string) (UnitSystem, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(Metric):
		return Metric, nil
	case string(Imperial):
		return Imperial, nil
	default:
		return "", &ValidationError{Field: "units", Message: fmt.Sprintf("unsupported units %q", s)}
	}
}

// LocationQuery identifies a cached lookup. Two queries whose names differ
// only in case share the same key.
type LocationQuery struct {
	Name  string     `json:"name"`
	Units UnitSystem `json:"units"`
}

// Key returns the canonical cache key for this query.
func (q LocationQuery) Key() string {
	return common.FoldKey(q.Name) + ":" + string(q.Units)
}

// RawSample is one 3-hourly forecast point as delivered by the upstream.
// Every field except the timestamp may be missing.
type RawSample struct {
	Epoch       int64
	Temperature *float64
	Icon        *string
	Description *string
}

// Coord is a geographic position as reported by the current-conditions feed.
type Coord struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

// CurrentConditions is the current-conditions feed after decoding.
// Leaves are pointers; nil means the upstream did not send the field.
type CurrentConditions struct {
	Name           *string
	Country        *string
	Coord          *Coord
	Temperature    *float64
	FeelsLike      *float64
	Pressure       *float64
	Humidity       *float64
	Visibility     *float64
	WindSpeed      *float64
	Clouds         *float64
	Icon           *string
	Description    *string
	Sunrise        *int64
	Sunset         *int64
	TimezoneOffset *int64
}

// ForecastFeed is the 5 day / 3 hour forecast feed after decoding.
type ForecastFeed struct {
	Samples        []RawSample
	TimezoneOffset *int64
}

// DailySummary is the min/max/icon digest of one local calendar day.
type DailySummary struct {
	Date string  `json:"date"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Icon string  `json:"icon"`
}

// HourlyPoint is one entry of the hourly slice. Time is the sample epoch
// shifted by the location's UTC offset.
type HourlyPoint struct {
	Time        int64   `json:"time"`
	Temperature float64 `json:"temp"`
	Icon        string  `json:"icon"`
	Description string  `json:"desc"`
}

// Now holds the current-conditions block of a payload.
type Now struct {
	Temperature float64  `json:"temp"`
	FeelsLike   float64  `json:"feels_like"`
	Pressure    *float64 `json:"pressure"`
	Humidity    *float64 `json:"humidity"`
	Visibility  *float64 `json:"visibility"`
	WindSpeed   *float64 `json:"wind"`
	Clouds      *float64 `json:"clouds"`
	Icon        *string  `json:"icon"`
	Description string   `json:"desc"`
	Sunrise     *int64   `json:"sunrise"`
	Sunset      *int64   `json:"sunset"`
	TzOffset    int64    `json:"tz_offset"`
}

// WeatherPayload is the normalized response and the value held in the cache.
// It is not modified after BuildPayload returns it.
type WeatherPayload struct {
	Units   UnitSystem     `json:"units"`
	City    *string        `json:"city"`
	Country *string        `json:"country"`
	Coord   *Coord         `json:"coord"`
	Now     Now            `json:"now"`
	Hourly  []HourlyPoint  `json:"hourly"`
	Daily   []DailySummary `json:"daily"`
}

// Clone returns a deep copy of p that shares no memory with it.
func (p WeatherPayload) Clone() WeatherPayload {
	c := p
	c.City = clonePtr(p.City)
	c.Country = clonePtr(p.Country)
	if p.Coord != nil {
		c.Coord = &Coord{Lon: clonePtr(p.Coord.Lon), Lat: clonePtr(p.Coord.Lat)}
	}
	c.Now.Pressure = clonePtr(p.Now.Pressure)
	c.Now.Humidity = clonePtr(p.Now.Humidity)
	c.Now.Visibility = clonePtr(p.Now.Visibility)
	c.Now.WindSpeed = clonePtr(p.Now.WindSpeed)
	c.Now.Clouds = clonePtr(p.Now.Clouds)
	c.Now.Icon = clonePtr(p.Now.Icon)
	c.Now.Sunrise = clonePtr(p.Now.Sunrise)
	c.Now.Sunset = clonePtr(p.Now.Sunset)
	if p.Hourly != nil {
		c.Hourly = make([]HourlyPoint, len(p.Hourly))
		copy(c.Hourly, p.Hourly)
	}
	if p.Daily != nil {
		c.Daily = make([]DailySummary, len(p.Daily))
		copy(c.Daily, p.Daily)
	}
	return c
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
