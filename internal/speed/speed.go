// Package speed holds the named real-time presets from which every tick
// count in the core is derived. TickRateHz is the single source of truth;
// all durations are expressed in seconds here and converted to ticks once,
// in Derive, so every consumer shares the same rounding.
package speed

import "math"

// Preset names a speed configuration.
type Preset string

const (
	Standard  Preset = "standard"
	Lightning Preset = "lightning"
)

// DefaultTickRateHz is used when a game doesn't specify one.
const DefaultTickRateHz = 20

// realTime holds the real-time constants for one preset, before derivation
// to ticks.
type realTime struct {
	secondsPerSquare     float64
	cooldownSeconds      float64
	minDrawSeconds       float64
	drawNoMoveSeconds    float64
	drawNoCaptureSeconds float64
}

var presets = map[Preset]realTime{
	Standard: {
		secondsPerSquare:     1.0,
		cooldownSeconds:      10.0,
		minDrawSeconds:       360, // 6 minutes minimum before draw
		drawNoMoveSeconds:    120,
		drawNoCaptureSeconds: 180,
	},
	Lightning: {
		secondsPerSquare:     0.2,
		cooldownSeconds:      2.0,
		minDrawSeconds:       90,
		drawNoMoveSeconds:    30,
		drawNoCaptureSeconds: 45,
	},
}

// Constants are the integer tick counts derived from a preset at a given
// tick rate.
type Constants struct {
	Preset             Preset
	TickRateHz         int
	TicksPerSquare     int
	CooldownTicks      int
	MinDrawTicks       int
	DrawNoMoveTicks    int
	DrawNoCaptureTicks int
}

// Derive converts a preset's real-time constants to tick counts at the
// given tick rate: ticks = round(seconds * H).
func Derive(preset Preset, tickRateHz int) Constants {
	if tickRateHz <= 0 {
		tickRateHz = DefaultTickRateHz
	}
	rt, ok := presets[preset]
	if !ok {
		rt = presets[Standard]
		preset = Standard
	}
	round := func(seconds float64) int {
		return int(math.Round(seconds * float64(tickRateHz)))
	}
	return Constants{
		Preset:             preset,
		TickRateHz:         tickRateHz,
		TicksPerSquare:     round(rt.secondsPerSquare),
		CooldownTicks:      round(rt.cooldownSeconds),
		MinDrawTicks:       round(rt.minDrawSeconds),
		DrawNoMoveTicks:    round(rt.drawNoMoveSeconds),
		DrawNoCaptureTicks: round(rt.drawNoCaptureSeconds),
	}
}

// Valid reports whether name is a recognized preset.
func Valid(name string) bool {
	_, ok := presets[Preset(name)]
	return ok
}
