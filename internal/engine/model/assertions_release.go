//go:build release

package model

// checkTime saturates t at the clip duration.
func checkTime(t, duration float32) float32 {
	if t > duration {
		return duration
	}
	return t
}
