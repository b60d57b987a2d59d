package services

import "math"

// Round2 rounds to 2 decimal places, half away from zero. Every member-facing
// monetary figure and percentage goes through this before leaving a service.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
