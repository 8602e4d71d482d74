package upload

import "fmt"

// ErrorKind is the taxonomy code a transport failure reports to the
// user-facing layers. Kinds, not Go types, are what the API surfaces.
type ErrorKind string

const (
	AuthError         ErrorKind = "auth-error"
	BadRequest        ErrorKind = "bad-request"
	TooLarge          ErrorKind = "too-large"
	EmptyFile         ErrorKind = "empty-file"
	UnsupportedFormat ErrorKind = "unsupported-format"
	TransportError    ErrorKind = "transport-error"
)

type (
	// KindedError is implemented by every failure the transport can
	// produce, so callers can map failures without type-switching on
	// concrete structs.
	KindedError interface {
		error
		Kind() ErrorKind
	}

	// AuthFailedError indicates the remote rejected our preset or
	// credentials (HTTP 401) - a deployment misconfiguration, not a
	// problem with the file.
	AuthFailedError struct{ FileName string }

	// RequestRejectedError indicates the remote refused the payload
	// (HTTP 400), typically an unsupported format slipping past
	// classification.
	RequestRejectedError struct {
		FileName string
		Detail   string
	}

	// FileTooLargeError is raised before any network call when a file
	// exceeds its kind's ceiling, and also maps HTTP 413.
	FileTooLargeError struct {
		FileName string
		Size     int64
		Limit    int64
	}

	// EmptyFileError is raised before any network call for zero-byte files.
	EmptyFileError struct{ FileName string }

	// RequestFailedError covers network errors and 5xx responses - the
	// transient bucket the user can retry.
	RequestFailedError struct {
		FileName string
		Reason   string
	}
)

func (err *AuthFailedError) Error() string {
	return fmt.Sprintf("upload of '%s' rejected: storage preset or credentials are misconfigured", err.FileName)
}

func (err *RequestRejectedError) Error() string {
	if err.Detail == "" {
		return fmt.Sprintf("upload of '%s' rejected by remote storage", err.FileName)
	}
	return fmt.Sprintf("upload of '%s' rejected by remote storage: %s", err.FileName, err.Detail)
}

func (err *FileTooLargeError) Error() string {
	return fmt.Sprintf("'%s' is too large (%dMB exceeds the %dMB limit)", err.FileName, err.Size>>20, err.Limit>>20)
}

func (err *EmptyFileError) Error() string {
	return fmt.Sprintf("'%s' is empty", err.FileName)
}

func (err *RequestFailedError) Error() string {
	return fmt.Sprintf("upload of '%s' failed: %s", err.FileName, err.Reason)
}

func (err *AuthFailedError) Kind() ErrorKind      { return AuthError }
func (err *RequestRejectedError) Kind() ErrorKind { return BadRequest }
func (err *FileTooLargeError) Kind() ErrorKind    { return TooLarge }
func (err *EmptyFileError) Kind() ErrorKind       { return EmptyFile }
func (err *RequestFailedError) Kind() ErrorKind   { return TransportError }

// KindOf extracts the taxonomy code from any error the transport
// returned, defaulting to the transient bucket.
func KindOf(err error) ErrorKind {
	if kinded, ok := err.(KindedError); ok {
		return kinded.Kind()
	}

	return TransportError
}
