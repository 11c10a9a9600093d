package speed

import "testing"

func TestDeriveScalesWithTickRate(t *testing.T) {
	for _, h := range []int{1, 10, 20, 60, 144} {
		c := Derive(Standard, h)
		if c.TicksPerSquare <= 0 {
			t.Errorf("H=%d: TicksPerSquare must be positive, got %d", h, c.TicksPerSquare)
		}
		if c.CooldownTicks <= 0 {
			t.Errorf("H=%d: CooldownTicks must be positive, got %d", h, c.CooldownTicks)
		}
		// Standard is 1.0 s/square and 10 s cooldown, so round(seconds*H) gives H and 10*H.
		if c.TicksPerSquare != h {
			t.Errorf("H=%d: TicksPerSquare want %d, got %d", h, h, c.TicksPerSquare)
		}
		if c.CooldownTicks != 10*h {
			t.Errorf("H=%d: CooldownTicks want %d, got %d", h, 10*h, c.CooldownTicks)
		}
		if c.MinDrawTicks < c.DrawNoMoveTicks {
			// not a hard invariant, just a sanity check on the chosen constants
			t.Logf("H=%d: MinDrawTicks=%d DrawNoMoveTicks=%d", h, c.MinDrawTicks, c.DrawNoMoveTicks)
		}
	}
}

func TestUnknownPresetFallsBackToStandard(t *testing.T) {
	c := Derive(Preset("unknown"), 20)
	if c.Preset != Standard {
		t.Errorf("expected fallback to standard, got %v", c.Preset)
	}
}
