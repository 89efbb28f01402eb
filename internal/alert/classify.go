// Package alert derives a three-level status from static per-metric
// thresholds. Classification is a pure function of (metric name, value):
// there is no hysteresis and no debouncing.
package alert

import "strings"

// Alert levels, ordered by severity.
const (
	Normal  = "normal"
	Warning = "warning"
	Alert   = "alert"
)

// rule maps a metric-name fragment to its thresholds and default bounds.
// Matching is case-insensitive so topic-derived names ("temperature") and
// firmware labels ("Temperature1") hit the same rule. New recognized
// metric families are added here, not in code.
type rule struct {
	nameContains string
	warnAbove    float64
	alertAbove   float64
	boundMin     float64
	boundMax     float64
}

var rules = []rule{
	{nameContains: "temperature", warnAbove: 28, alertAbove: 30, boundMin: -40, boundMax: 80},
	{nameContains: "humidity", warnAbove: 65, alertAbove: 70, boundMin: 0, boundMax: 100},
}

const (
	defaultBoundMin = 0
	defaultBoundMax = 100
)

// Classify returns the alert level for a metric value. Metrics matching no
// rule are always Normal.
func Classify(metric string, value float64) string {
	if r := match(metric); r != nil {
		switch {
		case value > r.alertAbove:
			return Alert
		case value > r.warnAbove:
			return Warning
		}
	}
	return Normal
}

// DefaultBounds returns the declared min/max bounds for a metric created on
// first sighting.
func DefaultBounds(metric string) (min, max float64) {
	if r := match(metric); r != nil {
		return r.boundMin, r.boundMax
	}
	return defaultBoundMin, defaultBoundMax
}

func match(metric string) *rule {
	lower := strings.ToLower(metric)
	for i := range rules {
		if strings.Contains(lower, rules[i].nameContains) {
			return &rules[i]
		}
	}
	return nil
}
