package utils

import "time"

// Clock abstracts time.Now so time-driven logic can be tested deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by the system time.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}
