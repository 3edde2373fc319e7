package pipeline

import "errors"

// ErrLeaseHeld is returned by Leaser.Obtain when another worker already owns
// the lease for the file. It is a skip signal, not a failure.
var ErrLeaseHeld = errors.New("lease already held")

// TransientError marks an error as transient so the resilient saver retries
// it. Infrastructure layers wrap their retryable failures with it.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err carries a TransientError marker anywhere in
// its chain.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
