package parsers

import (
	"errors"
	"fmt"
)

// ErrSyntax is matched by every *SyntaxError.
var ErrSyntax = errors.New("invalid syntax")

// ModuleRef is a module name taken from one import statement.
type ModuleRef struct {
	Name string
	File string
	Line int
}

// SyntaxError reports a source file that could not be parsed cleanly.
type SyntaxError struct {
	Path   string
	Line   int
	Column int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, ErrSyntax)
}

func (e *SyntaxError) Unwrap() error {
	return ErrSyntax
}

// Options adjusts how import statements become module references.
type Options struct {
	// StrictAliases skips a statement when any imported name is aliased,
	// instead of looking at the first name only.
	StrictAliases bool

	// TopLevelOnly trims references to their first dotted segment.
	TopLevelOnly bool
}

// Names returns the names of refs in order.
func Names(refs []ModuleRef) []string {
	names := make([]string, len(refs))
	for i, ref := range refs {
		names[i] = ref.Name
	}
	return names
}

// String renders a reference as "file:line: name".
func (r ModuleRef) String() string {
	return fmt.Sprintf("%s:%d: %s", r.File, r.Line, r.Name)
}
