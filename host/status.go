package host

import (
	stderrors "errors"

	"github.com/wippyai/ownership/errors"
)

// Status codes returned to guests.
const (
	StatusOK                int32 = 0
	StatusInvalidHandle     int32 = -1
	StatusOutstandingBorrow int32 = -2
	StatusExpired           int32 = -3
	StatusClosed            int32 = -4
	StatusFailed            int32 = -5
)

// StatusOf maps an error to the status reported to a guest.
func StatusOf(err error) int32 {
	if err == nil {
		return StatusOK
	}
	var e *errors.Error
	if !stderrors.As(err, &e) {
		return StatusFailed
	}
	switch e.Kind {
	case errors.KindInvalidHandle:
		return StatusInvalidHandle
	case errors.KindOutstandingBorrow:
		return StatusOutstandingBorrow
	case errors.KindExpired:
		return StatusExpired
	case errors.KindClosed:
		return StatusClosed
	default:
		return StatusFailed
	}
}
