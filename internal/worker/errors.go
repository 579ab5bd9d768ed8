package worker

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	relayerrs "github.com/jdholdren/postrelay/internal/errors"
)

// Unwraps the application error from temporal into a relay error if possible.
//
// Returns true if the error is convertible to a relay error.
// Returns false otherwise.
func asRelayErr(err error, rErr **relayerrs.Error) bool {
	if err == nil {
		return false
	}

	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != errTypeRelay {
		return false
	}
	return appErr.Details(rErr) == nil
}
