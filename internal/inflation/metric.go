package inflation

import (
	"fmt"
	"strings"
	"time"
)

// Metric maps a date onto the number line used for matching and interpolation.
type Metric string

const (
	// MetricOrdinal uses the YYYYMMDD integer, so 2025-12-31 and 2026-01-01
	// are 8870 apart rather than one day.
	MetricOrdinal Metric = "ordinal"
	// MetricDays uses whole calendar days since the Unix epoch.
	MetricDays Metric = "days"
)

// ParseMetric validates a configured metric name.
func ParseMetric(v string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(v))); m {
	case "", MetricOrdinal:
		return MetricOrdinal, nil
	case MetricDays:
		return m, nil
	default:
		return "", fmt.Errorf("unknown distance metric %q", v)
	}
}

// Position returns t's coordinate under the metric.
func (m Metric) Position(t time.Time) int64 {
	if m == MetricDays {
		return truncateDay(t).Unix() / 86400
	}
	return Ordinal(t)
}

// Distance is the absolute separation of a and b under the metric.
func (m Metric) Distance(a, b time.Time) int64 {
	d := m.Position(a) - m.Position(b)
	if d < 0 {
		return -d
	}
	return d
}

// Ordinal encodes t as the integer YYYYMMDD.
func Ordinal(t time.Time) int64 {
	y, mo, d := t.Date()
	return int64(y)*10000 + int64(mo)*100 + int64(d)
}
