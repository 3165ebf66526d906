package errors

import "fmt"

var (
	ErrEmptySubmission  = fmt.Errorf("submission carries neither text nor attachment")
	ErrMissingUsername  = fmt.Errorf("submission carries no username")
	ErrStoreUnavailable = fmt.Errorf("message store unavailable")
	ErrSinkFull         = fmt.Errorf("session delivery buffer full")
	ErrSessionClosed    = fmt.Errorf("session closed")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
)
