package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"fleettrack/internal/domain"
)

type BehaviorConfig struct {
	SpeedLimitKmh float64
	IdleSpeedKmh  float64
	// AbruptDeltaKmh is the frame-to-frame speed change classified as harsh
	// braking (negative) or rapid acceleration (positive).
	AbruptDeltaKmh float64
}

func DefaultBehaviorConfig() BehaviorConfig {
	return BehaviorConfig{
		SpeedLimitKmh:  120,
		IdleSpeedKmh:   5,
		AbruptDeltaKmh: 15,
	}
}

// BehaviorService derives driver-behavior reports from historical samples.
type BehaviorService struct {
	points PointRangeStore
	cfg    BehaviorConfig
}

func NewBehaviorService(points PointRangeStore, cfg BehaviorConfig) *BehaviorService {
	return &BehaviorService{points: points, cfg: cfg}
}

func (s *BehaviorService) AnalyzeDriverBehavior(ctx context.Context, tenantID, vehicleID string, start, end time.Time) (*domain.BehaviorReport, error) {
	points, err := s.points.Range(ctx, tenantID, vehicleID, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetch behavior points: %w", err)
	}

	report := analyzeBehavior(points, s.cfg)
	report.TenantID = tenantID
	report.VehicleID = vehicleID
	report.WindowStart = start
	report.WindowEnd = end
	return report, nil
}

// analyzeBehavior is a single deterministic fold over the ordered samples;
// the only carried state is the previous sample's speed.
func analyzeBehavior(points []domain.TrackingPoint, cfg BehaviorConfig) *domain.BehaviorReport {
	report := &domain.BehaviorReport{TotalPoints: len(points)}

	for i := range points {
		speed := points[i].SpeedKmh

		if speed > cfg.SpeedLimitKmh {
			report.SpeedingCount++
		}

		if i == 0 {
			continue
		}

		if speed < cfg.IdleSpeedKmh {
			// Minute-equivalent unit matching the sample cadence.
			report.IdlingMinutes++
		}

		delta := speed - points[i-1].SpeedKmh
		if delta < -cfg.AbruptDeltaKmh {
			report.HarshBrakingCount++
		} else if delta > cfg.AbruptDeltaKmh {
			report.RapidAccelerationCount++
		}
	}

	report.SafetyScore = safetyScore(report)
	report.Rating = rating(report.SafetyScore)
	return report
}

func safetyScore(r *domain.BehaviorReport) int {
	if r.TotalPoints == 0 {
		return 100
	}

	score := 100.0
	score -= float64(r.SpeedingCount) / float64(r.TotalPoints) * 100
	score -= float64(r.HarshBrakingCount) * 2
	score -= float64(r.RapidAccelerationCount) * 2

	rounded := int(math.Round(score))
	if rounded < 0 {
		return 0
	}
	if rounded > 100 {
		return 100
	}
	return rounded
}

func rating(score int) string {
	switch {
	case score >= 90:
		return "excellent"
	case score >= 75:
		return "good"
	case score >= 60:
		return "fair"
	default:
		return "poor"
	}
}
