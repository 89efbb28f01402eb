package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadingsLabelCatalog(t *testing.T) {
	payload := []byte("Temperature1: 22.10 C, Humidity1: 16.10 %")

	got := Readings("sensors/stm32_1/data", payload)

	assert.Equal(t, []Reading{
		{Metric: "Temperature1", Value: 22.10, Unit: "°C"},
		{Metric: "Humidity1", Value: 16.10, Unit: "%"},
	}, got)
}

func TestReadings(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    []Reading
	}{
		{
			name:    "all firmware labels",
			topic:   "sensors/stm32_1/data",
			payload: "Temperature1: 25.30 C, Humidity1: 40.00 %\nTemperature2: 26.00 C, Humidity2: 41.50 %\nRelay Status: 1, PB8 Level: 0",
			want: []Reading{
				{Metric: "Temperature1", Value: 25.3, Unit: "°C"},
				{Metric: "Humidity1", Value: 40, Unit: "%"},
				{Metric: "Temperature2", Value: 26, Unit: "°C"},
				{Metric: "Humidity2", Value: 41.5, Unit: "%"},
				{Metric: "Relay Status", Value: 1},
				{Metric: "PB8 Level", Value: 0},
			},
		},
		{
			name:    "partial label match",
			topic:   "sensors/stm32_1/data",
			payload: "Relay Status: 1",
			want:    []Reading{{Metric: "Relay Status", Value: 1}},
		},
		{
			name:    "json with value key",
			topic:   "sensors/room1/temperature",
			payload: `{"value": 23.5, "unit": "°C"}`,
			want:    []Reading{{Metric: "temperature", Value: 23.5, Unit: "°C"}},
		},
		{
			name:    "json with value key and no unit",
			topic:   "sensors/room1/pressure",
			payload: `{"value": 1013.2}`,
			want:    []Reading{{Metric: "pressure", Value: 1013.2}},
		},
		{
			name:    "json single key",
			topic:   "sensors/room1/data",
			payload: `{"co2": 412}`,
			want:    []Reading{{Metric: "co2", Value: 412}},
		},
		{
			name:    "json single key non-numeric",
			topic:   "sensors/room1/data",
			payload: `{"status": "ok"}`,
			want:    nil,
		},
		{
			name:    "json multiple keys without value",
			topic:   "sensors/room1/data",
			payload: `{"co2": 412, "voc": 31}`,
			want:    nil,
		},
		{
			name:    "bare numeric",
			topic:   "sensors/room1/temperature",
			payload: "23.5",
			want:    []Reading{{Metric: "temperature", Value: 23.5}},
		},
		{
			name:    "bare numeric with celsius suffix",
			topic:   "sensors/room1/temperature",
			payload: "23.5 C",
			want:    []Reading{{Metric: "temperature", Value: 23.5, Unit: "°C"}},
		},
		{
			name:    "bare numeric with percent suffix",
			topic:   "sensors/room1/humidity",
			payload: "64%",
			want:    []Reading{{Metric: "humidity", Value: 64, Unit: "%"}},
		},
		{
			name:    "negative bare numeric",
			topic:   "sensors/freezer/temperature",
			payload: "-18.5",
			want:    []Reading{{Metric: "temperature", Value: -18.5}},
		},
		{
			name:    "unparseable payload",
			topic:   "sensors/room1/temperature",
			payload: "???",
			want:    nil,
		},
		{
			name:    "empty payload",
			topic:   "sensors/room1/temperature",
			payload: "",
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Readings(tt.topic, []byte(tt.payload)))
		})
	}
}

func TestMetricFromTopic(t *testing.T) {
	assert.Equal(t, "temperature", MetricFromTopic("sensors/room1/temperature"))
	assert.Equal(t, "temperature", MetricFromTopic("sensors/room1/temperature/"))
	assert.Equal(t, "value", MetricFromTopic(""))
	assert.Equal(t, "value", MetricFromTopic("/"))
}

func TestSubscribeTopics(t *testing.T) {
	tests := []struct {
		name       string
		serialized string
		want       []string
	}{
		{
			name:       "json array",
			serialized: `["sensors/#", "devices/+/status"]`,
			want:       []string{"sensors/#", "devices/+/status"},
		},
		{
			name:       "newline separated",
			serialized: "sensors/#\ndevices/+/status\n",
			want:       []string{"sensors/#", "devices/+/status"},
		},
		{
			name:       "comma separated",
			serialized: "sensors/#, devices/+/status",
			want:       []string{"sensors/#", "devices/+/status"},
		},
		{
			name:       "single topic",
			serialized: "sensors/#",
			want:       []string{"sensors/#"},
		},
		{
			name:       "blank entries dropped",
			serialized: "sensors/#,,  ,devices/+/status",
			want:       []string{"sensors/#", "devices/+/status"},
		},
		{
			name:       "empty string",
			serialized: "",
			want:       nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubscribeTopics(tt.serialized))
		})
	}
}
