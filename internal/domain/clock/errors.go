package clock

import "errors"

// Sentinel error kinds for the countdown.
var (
	ErrPastEndTime = errors.New("end time must be in the future")
	ErrPersist     = errors.New("persist clock state failed")
)
