package tagcache

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidKey        = errors.New("tagcache: key must not be empty")
	ErrInvalidTag        = errors.New("tagcache: tag must not be empty")
	ErrNilProducer       = errors.New("tagcache: producer is nil")
	ErrComputationFailed = errors.New("tagcache: computation failed")
)

// ComputationFailedError is returned by GetOrCompute when the producer failed
// and no previously computed value could be served for the key.
type ComputationFailedError struct {
	Key string
	Err error
}

func (e *ComputationFailedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("compute %q: no value available", e.Key)
	}
	return fmt.Sprintf("compute %q: %v", e.Key, e.Err)
}

func (e *ComputationFailedError) Unwrap() []error {
	errs := make([]error, 0, 2)
	errs = append(errs, ErrComputationFailed)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}
