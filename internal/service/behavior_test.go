package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleettrack/internal/domain"
)

func speedSequence(speeds ...float64) []domain.TrackingPoint {
	base := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	points := make([]domain.TrackingPoint, len(speeds))
	for i, s := range speeds {
		points[i] = domain.TrackingPoint{
			TenantID:  "t1",
			VehicleID: "V1",
			SpeedKmh:  s,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		}
	}
	return points
}

func TestAnalyzeBehavior_MonotonicRamp(t *testing.T) {
	// 0 to 200 in ~10.5 km/h steps over 20 samples.
	speeds := make([]float64, 20)
	for i := range speeds {
		speeds[i] = float64(i) * 200 / 19
	}

	report := analyzeBehavior(speedSequence(speeds...), DefaultBehaviorConfig())

	wantSpeeding := 0
	for _, s := range speeds {
		if s > 120 {
			wantSpeeding++
		}
	}
	assert.Equal(t, wantSpeeding, report.SpeedingCount)

	// Every step is +10.53, under the +15 threshold.
	assert.Equal(t, 0, report.RapidAccelerationCount)
	assert.Equal(t, 0, report.HarshBrakingCount)

	assert.GreaterOrEqual(t, report.SafetyScore, 0)
	assert.LessOrEqual(t, report.SafetyScore, 100)
}

func TestAnalyzeBehavior_HarshEvents(t *testing.T) {
	report := analyzeBehavior(speedSequence(50, 70, 50, 60, 20), DefaultBehaviorConfig())

	// +20 and the jump 50→70; -20 twice: 70→50 and 60→20.
	assert.Equal(t, 1, report.RapidAccelerationCount)
	assert.Equal(t, 2, report.HarshBrakingCount)
	assert.Equal(t, 0, report.SpeedingCount)

	// 100 - 0 - 2*2 - 1*2 = 94
	assert.Equal(t, 94, report.SafetyScore)
	assert.Equal(t, "excellent", report.Rating)
}

func TestAnalyzeBehavior_IdlingSkipsFirstSample(t *testing.T) {
	report := analyzeBehavior(speedSequence(0, 0, 0, 30, 0), DefaultBehaviorConfig())

	// Samples 1, 2, and 4 idle; sample 0 never counts.
	assert.Equal(t, 3.0, report.IdlingMinutes)
}

func TestAnalyzeBehavior_ScoreClampedAtZero(t *testing.T) {
	// Alternate 0 and 130: every sample pair is a ±130 swing.
	speeds := make([]float64, 60)
	for i := range speeds {
		if i%2 == 1 {
			speeds[i] = 130
		}
	}

	report := analyzeBehavior(speedSequence(speeds...), DefaultBehaviorConfig())

	assert.Equal(t, 0, report.SafetyScore)
	assert.Equal(t, "poor", report.Rating)
}

func TestAnalyzeBehavior_Empty(t *testing.T) {
	report := analyzeBehavior(nil, DefaultBehaviorConfig())

	assert.Equal(t, 0, report.TotalPoints)
	assert.Equal(t, 100, report.SafetyScore)
	assert.Equal(t, "excellent", report.Rating)
}

func TestRatingThresholds(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{100, "excellent"},
		{90, "excellent"},
		{89, "good"},
		{75, "good"},
		{74, "fair"},
		{60, "fair"},
		{59, "poor"},
		{0, "poor"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, rating(tc.score), "score %d", tc.score)
	}
}

func TestAnalyzeDriverBehavior_Window(t *testing.T) {
	points := speedSequence(10, 130, 10)
	svc := NewBehaviorService(&mockRangeStore{points: points}, DefaultBehaviorConfig())

	start := points[0].Timestamp
	end := points[2].Timestamp

	report, err := svc.AnalyzeDriverBehavior(context.Background(), "t1", "V1", start, end)
	require.NoError(t, err)

	assert.Equal(t, "t1", report.TenantID)
	assert.Equal(t, "V1", report.VehicleID)
	assert.Equal(t, start, report.WindowStart)
	assert.Equal(t, end, report.WindowEnd)
	assert.Equal(t, 3, report.TotalPoints)
	assert.Equal(t, 1, report.SpeedingCount)
	assert.Equal(t, 1, report.RapidAccelerationCount)
	assert.Equal(t, 1, report.HarshBrakingCount)
}
