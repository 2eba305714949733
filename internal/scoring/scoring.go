package scoring

import (
	"math"
	"strings"
	"time"
)

// Both scoring families are pure functions of (challenge, answer, latency,
// config) so a round result is reproducible from logged inputs.

type ExactMatchConfig struct {
	MaxPoints     int
	FloorPoints   int
	FastCutoff    time.Duration
	RoundDuration time.Duration
}

func DefaultExactMatchConfig(roundDuration time.Duration) ExactMatchConfig {
	return ExactMatchConfig{
		MaxPoints:     100,
		FloorPoints:   20,
		FastCutoff:    3 * time.Second,
		RoundDuration: roundDuration,
	}
}

// ExactMatch scores a discrete guess. Correctness is a string match against
// any accepted spelling; the reward stays at MaxPoints under FastCutoff and
// decays linearly to FloorPoints by the round deadline.
func ExactMatch(accepted []string, answer string, latency time.Duration, cfg ExactMatchConfig) (correct bool, points int) {
	got := Normalize(answer)
	if got == "" {
		return false, 0
	}
	for _, want := range accepted {
		if Normalize(want) == got {
			correct = true
			break
		}
	}
	if !correct {
		return false, 0
	}
	if latency <= cfg.FastCutoff || cfg.RoundDuration <= cfg.FastCutoff {
		return true, cfg.MaxPoints
	}
	if latency >= cfg.RoundDuration {
		return true, cfg.FloorPoints
	}
	span := float64(cfg.RoundDuration - cfg.FastCutoff)
	frac := float64(latency-cfg.FastCutoff) / span
	points = cfg.MaxPoints - int(math.Round(frac*float64(cfg.MaxPoints-cfg.FloorPoints)))
	return true, points
}

type NumericBandConfig struct {
	MaxPoints        int
	MidPoints        int
	LowPoints        int
	TolerancePercent float64
	SpeedBonus       int
	SpeedWindow      time.Duration
}

func DefaultNumericBandConfig(tolerancePercent float64) NumericBandConfig {
	return NumericBandConfig{
		MaxPoints:        100,
		MidPoints:        60,
		LowPoints:        30,
		TolerancePercent: tolerancePercent,
		SpeedBonus:       20,
		SpeedWindow:      5 * time.Second,
	}
}

// NumericBand scores a numeric guess by percentage deviation from the exact
// value, binned into fixed tiers, with a fixed bonus for answers submitted
// inside the fast-response window.
func NumericBand(exact, answer float64, latency time.Duration, cfg NumericBandConfig) int {
	if exact == 0 {
		return 0
	}
	deviation := math.Abs(answer-exact) / exact * 100

	var points int
	switch {
	case deviation <= 5:
		points = cfg.MaxPoints
	case deviation <= cfg.TolerancePercent:
		points = cfg.MidPoints
	case deviation <= 2*cfg.TolerancePercent:
		points = cfg.LowPoints
	default:
		return 0
	}
	if latency <= cfg.SpeedWindow {
		points += cfg.SpeedBonus
	}
	return points
}

// Normalize folds case and collapses runs of whitespace so "Grey  Heron"
// matches "grey heron".
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
