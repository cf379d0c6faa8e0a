package detector

// notReadyError signals that /analyze was called before the model
// finished loading, for 503 mapping.
type notReadyError struct{}

func (notReadyError) Error() string { return "model not loaded" }

// ErrNotReady constructs a notReadyError.
func ErrNotReady() error { return notReadyError{} }

// IsNotReady reports whether err indicates the model is not loaded (return 503).
func IsNotReady(err error) bool {
	_, ok := err.(notReadyError)
	return ok
}

// invalidInputError signals a request rejected before inference, for 400 mapping.
type invalidInputError struct{ msg string }

func (e invalidInputError) Error() string { return e.msg }

// ErrInvalidInput constructs an invalidInputError.
func ErrInvalidInput(msg string) error { return invalidInputError{msg: msg} }

// IsInvalidInput reports whether err indicates a malformed input (return 400).
func IsInvalidInput(err error) bool {
	_, ok := err.(invalidInputError)
	return ok
}
