// Package decay computes age-adjusted confidence for learning events.
//
// Events keep their original confidence through a grace period, then decay
// linearly toward a floor ratio reached at a maximum age. Stored confidence is
// never mutated; the adjustment is recomputed on every read.
package decay

import (
	"math"
	"time"
)

// Config controls the decay curve.
type Config struct {
	// GracePeriodDays is how long an event keeps its original confidence.
	GracePeriodDays int

	// MaxAgeDays is the age at which the decay factor bottoms out at MinRatio.
	MaxAgeDays int

	// MinRatio is the floor the decay factor never drops below, keeping
	// long-standing established facts from decaying to nothing.
	MinRatio float64
}

// DefaultConfig returns the production decay curve: 7-day grace, linear decay
// to 50% at 180 days.
func DefaultConfig() Config {
	return Config{
		GracePeriodDays: 7,
		MaxAgeDays:      180,
		MinRatio:        0.5,
	}
}

// AdjustConfidenceByAge returns the age-adjusted confidence for an event
// created at createdAt, evaluated at now. The result is clamped to [1, 100].
func AdjustConfidenceByAge(original int, createdAt time.Time, now time.Time, cfg Config) int {
	ageDays := now.Sub(createdAt).Hours() / 24

	if ageDays < float64(cfg.GracePeriodDays) {
		return clamp(original)
	}

	factor := 1 - (1-cfg.MinRatio)*ageDays/float64(cfg.MaxAgeDays)
	if factor < cfg.MinRatio {
		factor = cfg.MinRatio
	}

	return clamp(int(math.Round(float64(original) * factor)))
}

// MeetsConfidenceThreshold reports whether the age-adjusted confidence still
// clears minConfidence. This is the gate used before re-applying an aging
// learning event.
func MeetsConfidenceThreshold(original int, createdAt time.Time, now time.Time, minConfidence int, cfg Config) bool {
	return AdjustConfidenceByAge(original, createdAt, now, cfg) >= minConfidence
}

func clamp(c int) int {
	if c < 1 {
		return 1
	}
	if c > 100 {
		return 100
	}
	return c
}
