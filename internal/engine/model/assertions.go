//go:build !release

package model

import "fmt"

// checkTime enforces the evaluator precondition t <= duration.
// Builds tagged release clamp instead.
func checkTime(t, duration float32) float32 {
	if t > duration {
		panic(fmt.Sprintf("model: animation time %v exceeds clip duration %v", t, duration))
	}
	return t
}
