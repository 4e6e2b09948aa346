package units

import (
	"math"
	"testing"
	"time"
)

func TestTicksToSeconds(t *testing.T) {
	tests := []struct {
		name     string
		ticks    uint32
		expected float64
	}{
		{"zero", 0, 0.0},
		{"one second", 30, 1.0},
		{"half second", 15, 0.5},
		{"one minute", 1800, 60.0},
		{"typical match length", 72000, 2400.0}, // 40 minutes
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TicksToSeconds(tt.ticks)
			if math.Abs(result-tt.expected) > 0.0001 {
				t.Errorf("TicksToSeconds(%d) = %f, want %f", tt.ticks, result, tt.expected)
			}
		})
	}
}

func TestSecondsToTicks(t *testing.T) {
	tests := []struct {
		name     string
		secs     float64
		expected uint32
	}{
		{"zero", 0.0, 0},
		{"one second", 1.0, 30},
		{"rounds down", 1.01, 30},
		{"negative clamps to zero", -5.0, 0},
		{"one minute", 60.0, 1800},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SecondsToTicks(tt.secs)
			if result != tt.expected {
				t.Errorf("SecondsToTicks(%f) = %d, want %d", tt.secs, result, tt.expected)
			}
		})
	}
}

func TestTicksToDuration(t *testing.T) {
	if d := TicksToDuration(45); d != 1500*time.Millisecond {
		t.Errorf("TicksToDuration(45) = %v, want 1.5s", d)
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		name     string
		tick     uint32
		expected string
	}{
		{"zero", 0, "00:00"},
		{"under a minute", 900, "00:30"},
		{"minutes and seconds", 1830, "01:01"},
		{"just under an hour", 107970, "59:59"},
		{"exactly an hour", 108000, "1:00:00"},
		{"long game", 126900, "1:10:30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatClock(tt.tick)
			if result != tt.expected {
				t.Errorf("FormatClock(%d) = %q, want %q", tt.tick, result, tt.expected)
			}
		})
	}
}
