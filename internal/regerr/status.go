package regerr

// Status is the result class reported across the host boundary.
type Status int

const (
	// Success means the operation completed.
	Success Status = iota

	// Recoverable means the operation failed but the engine instance is
	// intact and the caller may continue (skip the event, abort one setup
	// step, report to the user).
	Recoverable

	// OutOfMemoryStatus means an allocation failed. Prior state is untouched.
	OutOfMemoryStatus

	// Fatal means the engine instance cannot continue compilation or
	// performance.
	Fatal
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Recoverable:
		return "recoverable"
	case OutOfMemoryStatus:
		return "out-of-memory"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// StatusOf maps an error to its boundary result class.
//
// Plugin load failures and unknown errors are fatal; everything else in the
// taxonomy is recoverable.
func StatusOf(err error) Status {
	switch CodeOf(err) {
	case OK:
		return Success
	case OutOfMemory:
		return OutOfMemoryStatus
	case LoadFailure, Unknown:
		return Fatal
	}
	return Recoverable
}
