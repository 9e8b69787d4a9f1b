package engine

import (
	"math/rand"
	"time"

	"zapbot/internal/config"
)

// Delay computes the humanizing wait before a reply is sent. A nil Max, or a
// Max not above Min, yields a fixed delay of Min seconds; otherwise a uniform
// integer number of seconds in [Min, Max].
func Delay(dr config.DelayRange) time.Duration {
	min := dr.Min
	if min < 0 {
		min = 0
	}
	if dr.Max == nil || *dr.Max <= min {
		return time.Duration(min) * time.Second
	}
	return time.Duration(min+rand.Intn(*dr.Max-min+1)) * time.Second
}
