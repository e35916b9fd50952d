package handler

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRequestValidate(t *testing.T) {
	valid := pointRequest{Latitude: 41.0, Longitude: 29.0, SpeedKmh: 50, Timestamp: 1700000000}
	require.NoError(t, valid.validate())

	cases := []struct {
		name string
		req  pointRequest
	}{
		{"latitude too high", pointRequest{Latitude: 90.1, Longitude: 29, Timestamp: 1}},
		{"latitude too low", pointRequest{Latitude: -90.1, Longitude: 29, Timestamp: 1}},
		{"longitude out of range", pointRequest{Latitude: 41, Longitude: -180.5, Timestamp: 1}},
		{"negative speed", pointRequest{Latitude: 41, Longitude: 29, SpeedKmh: -0.1, Timestamp: 1}},
		{"missing timestamp", pointRequest{Latitude: 41, Longitude: 29}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Error(t, tc.req.validate())
		})
	}
}

func TestParseWindow(t *testing.T) {
	req := httptest.NewRequest("GET", "/?start=1700000000&end=1700003600", nil)
	start, end, err := parseWindow(req)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), start)
	assert.Equal(t, time.Unix(1700003600, 0).UTC(), end)
}

func TestParseWindow_Invalid(t *testing.T) {
	cases := []string{
		"/?end=1700003600",
		"/?start=1700000000",
		"/?start=abc&end=1700003600",
		"/?start=1700003600&end=1700000000",
	}
	for _, target := range cases {
		req := httptest.NewRequest("GET", target, nil)
		_, _, err := parseWindow(req)
		assert.Error(t, err, target)
	}
}
