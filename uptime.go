package xmsg

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// FormatUptime renders d with its two most significant units:
// "1d 1h", "1h 1m", "1m 5s" or "5s". Sub-second durations render as "0s".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := d / day
	hours := (d % day) / time.Hour
	minutes := (d % time.Hour) / time.Minute
	seconds := (d % time.Minute) / time.Second

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
