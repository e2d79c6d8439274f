package plugin

import "fmt"

// StartupError reports a plugin that could not be constructed or
// initialised. Discovery stops at the first one.
type StartupError struct {
	Module   string
	TypeName string
	Err      error
}

func (e *StartupError) Error() string {
	subject := e.TypeName
	if subject == "" {
		subject = "module " + e.Module
	}
	return fmt.Sprintf("plugin: start %s: %v", subject, e.Err)
}

func (e *StartupError) Unwrap() error {
	return e.Err
}
