package weather

import (
	"sort"
	"time"

	"github.com/i474232898/weather-dashboard/internal/common"
)

const (
	// DefaultHourlyCount is 12 hours of 3-hourly samples.
	DefaultHourlyCount = 4
	// DefaultDailyCount is the number of days kept in a summary.
	DefaultDailyCount = 5
)

// dayBucket collects the readings of one local calendar day in arrival order.
type dayBucket struct {
	temps []float64
	icons []*string
}

// localDate returns the calendar date of epoch after shifting it by
// tzOffset seconds. The date is read on the UTC calendar of the shifted
// instant, so the offset is assumed constant across the forecast window.
func localDate(epoch, tzOffset int64) string {
	return time.Unix(epoch+tzOffset, 0).UTC().Format("2006-01-02")
}

// BucketDaily groups samples by local day and returns at most limit
// summaries in ascending date order. Days without a single temperature are
// skipped. A limit <= 0 means DefaultDailyCount.
func BucketDaily(samples []RawSample, tzOffset int64, limit int) []DailySummary {
	if limit <= 0 {
		limit = DefaultDailyCount
	}

	buckets := make(map[string]*dayBucket)
	for _, s := range samples {
		day := localDate(s.Epoch, tzOffset)
		b, ok := buckets[day]
		if !ok {
			b = &dayBucket{}
			buckets[day] = b
		}
		if s.Temperature != nil {
			b.temps = append(b.temps, *s.Temperature)
		}
		b.icons = append(b.icons, s.Icon)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	sort.Strings(days)

	daily := make([]DailySummary, 0, limit)
	for _, day := range days {
		if len(daily) >= limit {
			break
		}
		b := buckets[day]
		if len(b.temps) == 0 {
			continue
		}

		lo, hi := b.temps[0], b.temps[0]
		for _, t := range b.temps[1:] {
			if t < lo {
				lo = t
			}
			if t > hi {
				hi = t
			}
		}

		daily = append(daily, DailySummary{
			Date: day,
			Min:  common.Round(lo, 1),
			Max:  common.Round(hi, 1),
			Icon: representativeIcon(b.icons),
		})
	}
	return daily
}

// representativeIcon returns the most frequent icon. A missing icon is a
// value of its own and renders as "". Ties go to the icon seen first.
func representativeIcon(icons []*string) string {
	type iconKey struct {
		present bool
		code    string
	}

	counts := make(map[iconKey]int, len(icons))
	order := make([]iconKey, 0, len(icons))
	for _, ic := range icons {
		k := iconKey{}
		if ic != nil {
			k = iconKey{present: true, code: *ic}
		}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	var best iconKey
	bestCount := 0
	for _, k := range order {
		if counts[k] > bestCount {
			bestCount = counts[k]
			best = k
		}
	}
	return best.code
}

// SliceHourly returns the first count samples, shifted to local time, with
// temperatures rounded to one decimal. A count <= 0 means DefaultHourlyCount.
func SliceHourly(samples []RawSample, tzOffset int64, count int) []HourlyPoint {
	if count <= 0 {
		count = DefaultHourlyCount
	}
	if len(samples) < count {
		count = len(samples)
	}

	hourly := make([]HourlyPoint, 0, count)
	for _, s := range samples[:count] {
		var temp float64
		if s.Temperature != nil {
			temp = common.Round(*s.Temperature, 1)
		}
		hourly = append(hourly, HourlyPoint{
			Time:        s.Epoch + tzOffset,
			Temperature: temp,
			Icon:        deref(s.Icon),
			Description: deref(s.Description),
		})
	}
	return hourly
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
