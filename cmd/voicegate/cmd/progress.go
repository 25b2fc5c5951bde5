package cmd

import (
	"fmt"
	"time"
)

// secondsLeft counts down in whole seconds the way the recording page did:
// the limit in seconds minus the whole seconds already elapsed.
func secondsLeft(limit, remaining time.Duration) int {
	elapsed := limit - remaining
	left := int(limit/time.Second) - int(elapsed/time.Second)
	return max(left, 0)
}

func countdownText(limit, remaining time.Duration) string {
	return fmt.Sprintf("Recording... (%ds left)", secondsLeft(limit, remaining))
}

func sizeText(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMG"[exp])
}
