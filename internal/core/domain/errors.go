package domain

import "errors"

var (
	// ErrInvalidCoordinate marks malformed lat/lon input to geodesy
	// functions. Never silently coerced to NaN results.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrLocationUnavailable means the live position feed could not be
	// acquired at session start; no session is created.
	ErrLocationUnavailable = errors.New("location unavailable")

	// ErrTerritoryNotFound marks a claim or lookup against a stale or
	// deleted territory id.
	ErrTerritoryNotFound = errors.New("territory not found")

	// ErrPersistenceUnavailable wraps store failures. Local session
	// state is preserved so an in-progress capture is not lost.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	ErrUserNotFound   = errors.New("user not found")
	ErrEmailTaken     = errors.New("user with this email already exists")
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrSessionActive is returned when starting a capture while one is
	// already in progress for the same user.
	ErrSessionActive = errors.New("capture session already active")

	// ErrNoSession is returned when ingesting or stopping without an
	// active session.
	ErrNoSession = errors.New("no active capture session")

	// ErrPresenceNotFound means no recent position fix is known for a
	// user, either because none arrived or it aged out.
	ErrPresenceNotFound = errors.New("no recent position for user")
)
