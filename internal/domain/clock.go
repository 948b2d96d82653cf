package domain

import "github.com/jonboulle/clockwork"

// clock is the fallback time source for components built without one: the
// generator stamps records with it, the mock Source sleeps on it and the
// service hands it to the store and refresh controller.
var clock = clockwork.NewRealClock()

// SetClock replaces the fallback time source. Nil restores the wall clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the fallback time source.
func Clock() clockwork.Clock {
	return clock
}
