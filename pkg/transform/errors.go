package transform

import "fmt"

// CompileError reports a program that could not be read, parsed or
// validated.
type CompileError struct {
	Path string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("transform: compile %s: %v", e.Path, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ExecuteError reports a failure while applying a compiled program.
type ExecuteError struct {
	Path string
	Err  error
}

func (e *ExecuteError) Error() string {
	return fmt.Sprintf("transform: execute %s: %v", e.Path, e.Err)
}

func (e *ExecuteError) Unwrap() error {
	return e.Err
}
