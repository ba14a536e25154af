package feedback

// ExitCode is the program exit status to terminate with.
type ExitCode int

const (
	// Success (0 is the no-error return code in Unix)
	Success ExitCode = iota
	// ErrGeneric is the catch-all failure code
	ErrGeneric
	// ErrBadArgument reports invalid flags or arguments
	ErrBadArgument
)
