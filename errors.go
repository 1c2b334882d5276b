package main

import "errors"

var (
	ErrMalformedRequest     = errors.New("malformed request")
	ErrUnsupportedVersion   = errors.New("unsupported HTTP version")
	ErrUnsupportedMethod    = errors.New("unsupported method")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrServerIO             = errors.New("server I/O failure")

	// ErrInvalidStatus is returned by WriteResponse for a status code outside
	// the supported set. It is a bug in the caller, never sent to a client.
	ErrInvalidStatus = errors.New("invalid status code")
)

// StatusOf maps an error from the taxonomy above to the status code that
// reports it. Unknown errors are server failures.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return StatusBadRequest
	case errors.Is(err, ErrUnsupportedVersion):
		return StatusHTTPVersionNotSupported
	case errors.Is(err, ErrUnsupportedMethod):
		return StatusMethodNotAllowed
	case errors.Is(err, ErrResourceNotFound):
		return StatusNotFound
	case errors.Is(err, ErrUnsupportedMediaType):
		return StatusUnsupportedMediaType
	default:
		return StatusInternalServerError
	}
}

// ErrorResponse turns a handler error into the empty-bodied response for it.
func ErrorResponse(err error) *Response {
	return NewResponse(StatusOf(err))
}
