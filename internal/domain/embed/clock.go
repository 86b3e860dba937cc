package embed

import (
	"runtime"
	"time"
)

// Clock supplies time to acquisition polling and resize suppression
type Clock interface {
	Now() time.Time
	// Yield gives up the processor between polls without sleeping.
	Yield()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
func (systemClock) Yield()         { runtime.Gosched() }

// SystemClock is the wall clock
var SystemClock Clock = systemClock{}
