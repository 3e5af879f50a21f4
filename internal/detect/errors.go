package detect

import "fmt"

// ErrConfiguration is returned for invalid or contradictory tuning
// parameters. Use errors.Is(err, ErrConfiguration) to check for it.
var ErrConfiguration = &ConfigurationError{}

// ConfigurationError reports an invalid parameter or precondition. It is
// fatal: the run aborts immediately and there is nothing to retry.
type ConfigurationError struct {
	Param  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Param == "" {
		return "invalid configuration"
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Param, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	_, ok := target.(*ConfigurationError)
	return ok
}

// ErrInsufficientData is returned when calibration finds too few
// reference circles to derive radius bounds.
var ErrInsufficientData = &InsufficientDataError{}

// InsufficientDataError reports that the calibration reference color did
// not yield enough detections. Callers with explicit radius bounds may
// fall back to them; a mandatory calibration run must fail.
type InsufficientDataError struct {
	Color    string
	Found    int
	Required int
}

func (e *InsufficientDataError) Error() string {
	if e.Color == "" {
		return "insufficient calibration data"
	}
	return fmt.Sprintf("insufficient calibration data: reference color %s yielded %d circles, need at least %d",
		e.Color, e.Found, e.Required)
}

func (e *InsufficientDataError) Is(target error) bool {
	_, ok := target.(*InsufficientDataError)
	return ok
}
