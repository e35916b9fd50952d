package ingestor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTopic(t *testing.T) {
	tenant, vehicle, err := parseTopic("fleet/acme/vehicle/V42/location")
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant)
	assert.Equal(t, "V42", vehicle)
}

func TestParseTopic_Malformed(t *testing.T) {
	cases := []string{
		"fleet/acme/vehicle/V42",
		"fleet/acme/driver/V42/location",
		"fleet//vehicle/V42/location",
		"fleet/acme/vehicle//location",
		"other/acme/vehicle/V42/location",
		"",
	}
	for _, topic := range cases {
		_, _, err := parseTopic(topic)
		assert.Error(t, err, "topic %q", topic)
	}
}

func TestValidateLocationMessage(t *testing.T) {
	valid := locationMessage{Latitude: 41.0, Longitude: 29.0, SpeedKmh: 30, Timestamp: 1700000000}
	require.NoError(t, validateLocationMessage(&valid))

	cases := []locationMessage{
		{Latitude: 91, Longitude: 29, Timestamp: 1},
		{Latitude: -91, Longitude: 29, Timestamp: 1},
		{Latitude: 41, Longitude: 181, Timestamp: 1},
		{Latitude: 41, Longitude: 29, SpeedKmh: -1, Timestamp: 1},
		{Latitude: 41, Longitude: 29},
	}
	for i, msg := range cases {
		assert.Error(t, validateLocationMessage(&msg), "case %d", i)
	}
}
