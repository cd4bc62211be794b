package cmdutils

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// RunError represents an error running a command
type RunError struct {
	command []string // [Name Args...]
	output  []byte   // Captured Stderr of the command, or Stdout when Stderr is empty
	inner   error    // Underlying error if any
}

var _ error = &RunError{}

// NewRunError wraps err with the command that produced it.
func NewRunError(inner error, output []byte, name string, args ...string) *RunError {
	return &RunError{
		command: append([]string{name}, args...),
		output:  output,
		inner:   inner,
	}
}

func (e *RunError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("command \"%s\" failed with error: %v", e.PrettyCommand(), e.inner)
	if out := strings.TrimSpace(e.OutputString()); out != "" {
		msg += ": " + out
	}
	return msg
}

// PrettyCommand pretty prints the command in a way that could be pasted
// into a shell
func (e *RunError) PrettyCommand() string {
	if e == nil {
		return "RunError is nil"
	}

	switch len(e.command) {
	case 0:
		return "no command args"
	case 1:
		return e.command[0]
	default:
		return PrettyCommand(false, e.command[0], e.command[1:]...)
	}
}

func (e *RunError) OutputString() string {
	if e == nil {
		return ""
	}
	return string(e.output)
}

func (e *RunError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.inner
}

// PrettyCommand returns a command line that could be pasted into a shell.
// With quoteAll every token is quoted, otherwise only tokens containing whitespace are.
func PrettyCommand(quoteAll bool, name string, args ...string) string {
	var out strings.Builder
	if quoteAll {
		out.WriteString(strconv.Quote(name))
	} else {
		out.WriteString(name)
	}
	for _, arg := range args {
		out.WriteByte(' ')
		if quoteAll || strings.IndexFunc(arg, unicode.IsSpace) >= 0 {
			out.WriteString(strconv.Quote(arg))
			continue
		}
		out.WriteString(arg)
	}
	return out.String()
}
