// Package timefmt formats the controller's remaining running time.
package timefmt

import (
	"math"
	"strconv"
	"strings"
)

// IndefiniteThreshold is the running time, in minutes, from which the
// controller runs with no scheduled end.
const IndefiniteThreshold = 200

// NoScheduledEnd is shown instead of a clock when the running time has no end.
var NoScheduledEnd = strings.ToUpper("indefinitely")

// FormatRunningTime renders minutes as HH:MM, or NoScheduledEnd from
// IndefiniteThreshold upwards. Negative input is not meaningful.
func FormatRunningTime(minutes float64) string {
	if minutes >= IndefiniteThreshold {
		return NoScheduledEnd
	}

	totalSeconds := minutes * 60
	hrs := math.Floor(totalSeconds / 3600)
	mins := math.Floor(math.Mod(totalSeconds, 3600) / 60)
	return pad2(hrs) + ":" + pad2(mins)
}

func pad2(v float64) string {
	if v == 0 {
		v = 0 // drop negative zero
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if len(s) < 2 {
		s = strings.Repeat("0", 2-len(s)) + s
	}
	return s
}
