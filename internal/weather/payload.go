package weather

import "github.com/i474232898/weather-dashboard/internal/common"

// BuildOptions sizes the hourly and daily sections of a payload.
type BuildOptions struct {
	HourlyCount int
	DailyCount  int
}

// BuildPayload merges the current conditions and the forecast into one
// payload. It never fails: missing fields come out as nil, except the
// current and feels-like temperatures which default to 0.
func BuildPayload(current CurrentConditions, forecast ForecastFeed, units UnitSystem, opts BuildOptions) WeatherPayload {
	var currentOffset int64
	if current.TimezoneOffset != nil {
		currentOffset = *current.TimezoneOffset
	}
	tzOffset := currentOffset
	if forecast.TimezoneOffset != nil {
		tzOffset = *forecast.TimezoneOffset
	}

	var temp, feelsLike float64
	if current.Temperature != nil {
		temp = common.Round(*current.Temperature, 1)
	}
	if current.FeelsLike != nil {
		feelsLike = common.Round(*current.FeelsLike, 1)
	}

	return WeatherPayload{
		Units:   units,
		City:    current.Name,
		Country: current.Country,
		Coord:   current.Coord,
		Now: Now{
			Temperature: temp,
			FeelsLike:   feelsLike,
			Pressure:    current.Pressure,
			Humidity:    current.Humidity,
			Visibility:  current.Visibility,
			WindSpeed:   current.WindSpeed,
			Clouds:      current.Clouds,
			Icon:        current.Icon,
			Description: deref(current.Description),
			Sunrise:     current.Sunrise,
			Sunset:      current.Sunset,
			TzOffset:    currentOffset,
		},
		Hourly: SliceHourly(forecast.Samples, tzOffset, opts.HourlyCount),
		Daily:  BucketDaily(forecast.Samples, tzOffset, opts.DailyCount),
	}
}
