package render

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrChainCycle is wrapped by ChainCycleError.
	ErrChainCycle = errors.New("transform chain does not terminate")
	// ErrViewNotFound is wrapped by ViewNotFoundError.
	ErrViewNotFound = errors.New("view not found")
)

// ChainCycleError reports a chain of programs that revisits a program or
// exceeds the configured depth.
type ChainCycleError struct {
	Chain []string
}

func (e *ChainCycleError) Error() string {
	return fmt.Sprintf("render: %v: %s", ErrChainCycle, strings.Join(e.Chain, " -> "))
}

func (e *ChainCycleError) Unwrap() error {
	return ErrChainCycle
}

// ViewNotFoundError lists the locations searched for a view.
type ViewNotFoundError struct {
	Name     string
	Searched []string
}

func (e *ViewNotFoundError) Error() string {
	return fmt.Sprintf("render: view %q not found, searched: %s", e.Name, strings.Join(e.Searched, ", "))
}

func (e *ViewNotFoundError) Unwrap() error {
	return ErrViewNotFound
}
