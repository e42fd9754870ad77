package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound        = ErrorKind("Not Found")
	InvalidArgument = ErrorKind("Invalid Argument")
	Unsupported     = ErrorKind("Unsupported")
	ConflictSetting = ErrorKind("Conflict Setting")
	Duplicate       = ErrorKind("Duplicate")
	InternalError   = ErrorKind("Internal Error")
	Timeout         = ErrorKind("Timeout")

	// InvalidState is returned when stored data is inconsistent with what the
	// caller asked for (e.g. an allowlist whose recomputed merkle root does not
	// match the root it is stored under).
	InvalidState = ErrorKind("Invalid State")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
