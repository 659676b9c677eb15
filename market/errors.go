package market

import "errors"

var (
	// ErrInvalidParameter is returned for bad construction arguments or a malformed buy box
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrIndexOutOfRange is returned when an action or observation index is outside the price grid
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrConvergenceFailure is returned by the equilibrium solver together with its best-effort result
	ErrConvergenceFailure = errors.New("equilibrium solver did not converge")
)
