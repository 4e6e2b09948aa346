// Package units converts replay tick values into time displays for reports
package units

import (
	"fmt"
	"time"
)

// TicksPerSecond is the Dota 2 server tick rate. Replays advance 30
// ticks per second of game time.
const TicksPerSecond = 30.0

// TicksToSeconds converts a tick count into seconds of game time.
func TicksToSeconds(ticks uint32) float64 {
	return float64(ticks) / TicksPerSecond
}

// TicksToDuration converts a tick count into a time.Duration of game time.
func TicksToDuration(ticks uint32) time.Duration {
	return time.Duration(TicksToSeconds(ticks) * float64(time.Second))
}

// SecondsToTicks converts seconds of game time into a tick count,
// rounding down. Negative inputs clamp to zero.
func SecondsToTicks(secs float64) uint32 {
	if secs <= 0 {
		return 0
	}
	return uint32(secs * TicksPerSecond)
}

// FormatClock renders a tick as a replay clock reading: mm:ss below one
// hour, h:mm:ss from then on.
func FormatClock(tick uint32) string {
	totalSecs := int(TicksToSeconds(tick))
	h := totalSecs / 3600
	m := (totalSecs % 3600) / 60
	s := totalSecs % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
