package checkout

import "errors"

var (
	// ErrValidation means required identifiers were missing from a request.
	ErrValidation = errors.New("missing required data")

	// ErrCodeRequired means checkout codes are enforced and none was given.
	ErrCodeRequired = errors.New("checkout code required")

	// ErrInvalidCode means the presented code matched neither the family's
	// code nor an override password.
	ErrInvalidCode = errors.New("invalid checkout code")

	// ErrNotFound means no open check-in (or kid) matched the request.
	ErrNotFound = errors.New("check-in not found")

	// ErrUnavailable covers expired, used, and unknown share tokens. The
	// three cases are deliberately indistinguishable so callers cannot probe
	// token existence.
	ErrUnavailable = errors.New("share link unavailable")

	// ErrExhaustedRetries means the event's code space is saturated: 100
	// random candidates all collided. Fatal to the check-in attempt.
	ErrExhaustedRetries = errors.New("could not generate a unique checkout code")
)
