package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// SomethingWentWrong is returned when the cause of the error is unknown.
	SomethingWentWrong = ErrorKind("Something Went Wrong")

	// InternalError is returned when an unexpected internal error occurs.
	InternalError = ErrorKind("Internal Error")

	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when an argument or configuration value is invalid.
	InvalidArgument = ErrorKind("Invalid Argument")

	// Unsupported is returned when a feature, network or driver is not supported.
	Unsupported = ErrorKind("Unsupported")

	// Conflict is returned when the item already exists or the state does not allow the operation.
	Conflict = ErrorKind("Conflict")

	// InsufficientBalance is returned when a holder does not have enough available balance.
	InsufficientBalance = ErrorKind("Insufficient Balance")

	// ResourceExhausted is returned when a bounded in-memory resource is full.
	ResourceExhausted = ErrorKind("Resource Exhausted")

	// Closed is returned when the resource is already closed.
	Closed = ErrorKind("Closed")

	// Timeout is returned when the operation is timed out.
	Timeout = ErrorKind("Timeout")

	OverflowUint64  = ErrorKind("overflow uint64")
	OverflowUint128 = ErrorKind("overflow uint128")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
