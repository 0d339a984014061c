package remotetag

import (
	"errors"
	"fmt"
)

var (
	ErrRequestCreation      = errors.New("unable to create request")
	ErrTransportOpen        = errors.New("transport open failed")
	ErrTransportRead        = errors.New("transport read failed")
	ErrInvalidContentLength = errors.New("missing or invalid Content-Length")
	ErrRangeIgnored         = errors.New("server ignored Range header")
	ErrInvalidSeek          = errors.New("invalid seek")
)

// FetchError is returned by a failed range fetch. Err is one of the
// sentinel errors above (possibly wrapped), Code is the transport result
// code when one was involved.
type FetchError struct {
	Op         string
	Start, End int64
	Code       int32
	Err        error
}

func (e *FetchError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("fetch %d-%d: %s: %s (code %d)", e.Start, e.End, e.Op, e.Err, e.Code)
	}
	return fmt.Sprintf("fetch %d-%d: %s: %s", e.Start, e.End, e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
