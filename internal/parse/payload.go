// Package parse turns raw MQTT payloads into metric readings. Field
// devices publish in several loosely structured encodings, so extraction
// is layered: a catalog of known firmware labels first, then JSON, then a
// bare numeric fallback. A payload matching none of the strategies yields
// an empty result; that is a no-op for the caller, not an error.
package parse

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// Reading is one extracted (metric, value, unit) tuple.
type Reading struct {
	Metric string
	Value  float64
	Unit   string
}

// labelEntry describes one recognized firmware field. The pattern captures
// the numeric value; the unit is declared here, not taken from the payload.
// Adding a newly recognized field is a table change, not a code change.
type labelEntry struct {
	pattern *regexp.Regexp
	metric  string
	unit    string
}

// Catalog of labels emitted by the STM32-generation firmware, e.g.
// "Temperature1: 22.10 C, Humidity1: 16.10 %\nRelay Status: 1".
var labelCatalog = []labelEntry{
	{regexp.MustCompile(`Temperature1:\s*(-?\d+(?:\.\d+)?)\s*C?`), "Temperature1", "°C"},
	{regexp.MustCompile(`Humidity1:\s*(-?\d+(?:\.\d+)?)\s*%?`), "Humidity1", "%"},
	{regexp.MustCompile(`Temperature2:\s*(-?\d+(?:\.\d+)?)\s*C?`), "Temperature2", "°C"},
	{regexp.MustCompile(`Humidity2:\s*(-?\d+(?:\.\d+)?)\s*%?`), "Humidity2", "%"},
	{regexp.MustCompile(`Relay Status:\s*(\d)`), "Relay Status", ""},
	{regexp.MustCompile(`PB8 Level:\s*(\d)`), "PB8 Level", ""},
}

var bareNumericRe = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*([CF%])?\s*$`)

var unitSuffixes = map[string]string{
	"C": "°C",
	"F": "°F",
	"%": "%",
}

// Readings extracts metric readings from a raw payload. Strategies are
// tried in order and the first that recognizes the payload determines its
// shape; a single payload may still contribute several tuples (one per
// matched label). The topic provides the metric name when the payload
// itself does not carry one.
func Readings(topic string, payload []byte) []Reading {
	text := string(payload)

	if readings := labelReadings(text); len(readings) > 0 {
		return readings
	}
	if readings := jsonReadings(topic, payload); len(readings) > 0 {
		return readings
	}
	return bareNumericReadings(topic, text)
}

func labelReadings(text string) []Reading {
	var readings []Reading
	for _, entry := range labelCatalog {
		m := entry.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		value, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		readings = append(readings, Reading{Metric: entry.metric, Value: value, Unit: entry.unit})
	}
	return readings
}

func jsonReadings(topic string, payload []byte) []Reading {
	var obj map[string]any
	if err := json.Unmarshal(payload, &obj); err != nil {
		return nil
	}

	if raw, ok := obj["value"]; ok {
		value, ok := raw.(float64)
		if !ok {
			return nil
		}
		unit := ""
		if u, ok := obj["unit"].(string); ok {
			unit = u
		}
		return []Reading{{Metric: MetricFromTopic(topic), Value: value, Unit: unit}}
	}

	if len(obj) == 1 {
		for key, raw := range obj {
			if value, ok := raw.(float64); ok {
				return []Reading{{Metric: key, Value: value}}
			}
		}
	}
	return nil
}

func bareNumericReadings(topic, text string) []Reading {
	m := bareNumericRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return []Reading{{Metric: MetricFromTopic(topic), Value: value, Unit: unitSuffixes[m[2]]}}
}

// MetricFromTopic derives a metric name from the last topic segment, for
// payloads that carry a value but no name.
func MetricFromTopic(topic string) string {
	segments := strings.Split(strings.Trim(topic, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}
	return "value"
}

// SubscribeTopics deserializes a topic profile's subscribe list. The list
// is stored as a JSON array when written through the API, but older
// profiles hold newline- or comma-separated text, so all three forms are
// accepted, in that preference order.
func SubscribeTopics(serialized string) []string {
	serialized = strings.TrimSpace(serialized)
	if serialized == "" {
		return nil
	}

	var fromJSON []string
	if err := json.Unmarshal([]byte(serialized), &fromJSON); err == nil {
		return cleanTopics(fromJSON)
	}

	if strings.Contains(serialized, "\n") {
		return cleanTopics(strings.Split(serialized, "\n"))
	}
	return cleanTopics(strings.Split(serialized, ","))
}

func cleanTopics(raw []string) []string {
	topics := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}
