package handler

// Error is a string-constant error used for the failure categories below.
// Returned errors wrap one of these together with the underlying cause, so
// both match errors.Is.
type Error string

// Error implements the error interface.
func (e Error) Error() string { return string(e) }

const (
	// ErrConfig reports an invalid option combination, or a listener that
	// could not start because its connection was incomplete.
	ErrConfig = Error("invalid mock server configuration")

	// ErrIO reports that key or certificate material could not be read.
	ErrIO = Error("failed to read TLS material")

	// ErrRegistration reports that the plugin failed to register on a listener.
	ErrRegistration = Error("failed to register mock server plugin")

	// ErrStart reports that a listener failed to start.
	ErrStart = Error("failed to start mock server")

	// ErrAlreadyStarted is returned by Before when listeners from a previous
	// Before are still live.
	ErrAlreadyStarted = Error("mock server is already started")
)
