package comm

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Match them with errors.Is or the Is* predicates.
var (
	ErrConfiguration  = errors.New("configuration error")
	ErrNotInitialized = errors.New("not initialized")
	ErrShape          = errors.New("shape error")
	ErrTransport      = errors.New("transport error")
)

// Error is an error of one of the kinds above, optionally caused by Err.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	s := e.Kind.Error() + ": " + e.Msg
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind, cause error, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause})
}

func ConfigurationErrorf(format string, args ...interface{}) error {
	return newError(ErrConfiguration, nil, format, args...)
}

func NotInitializedErrorf(format string, args ...interface{}) error {
	return newError(ErrNotInitialized, nil, format, args...)
}

func ShapeErrorf(format string, args ...interface{}) error {
	return newError(ErrShape, nil, format, args...)
}

// TransportError marks err as a failure of the underlying transport.
func TransportError(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	if IsTransport(err) {
		return err
	}
	return newError(ErrTransport, err, format, args...)
}

func IsConfiguration(err error) bool  { return errors.Is(err, ErrConfiguration) }
func IsNotInitialized(err error) bool { return errors.Is(err, ErrNotInitialized) }
func IsShape(err error) bool          { return errors.Is(err, ErrShape) }
func IsTransport(err error) bool      { return errors.Is(err, ErrTransport) }

// IsFatal reports whether err ends the session. Validation errors are
// local to one call and leave the handle usable.
func IsFatal(err error) bool {
	return IsTransport(err)
}
