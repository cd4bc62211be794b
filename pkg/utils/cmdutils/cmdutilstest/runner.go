// Package cmdutilstest provides a scripted cmdutils.Runner for tests.
package cmdutilstest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils"
)

// Response is what the FakeRunner returns for a matching command.
type Response struct {
	Stdout string
	Stderr string
	Err    error
}

// Call records one command executed through a FakeRunner.
type Call struct {
	Name  string
	Args  []string
	Stdin string
}

// Line returns the call as a single space separated string.
func (c Call) Line() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// FakeRunner answers commands from a script keyed by command prefix.
// The longest matching prefix wins.
type FakeRunner struct {
	mu       sync.Mutex
	handlers map[string]func(Call) Response
	calls    []Call

	// Paths resolves LookPath. Names missing from the map are not found.
	Paths map[string]string
}

var _ cmdutils.Runner = &FakeRunner{}

// NewFakeRunner returns an empty FakeRunner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		handlers: map[string]func(Call) Response{},
		Paths:    map[string]string{},
	}
}

// On registers a fixed response for commands starting with prefix.
func (f *FakeRunner) On(prefix string, resp Response) *FakeRunner {
	return f.Handle(prefix, func(Call) Response { return resp })
}

// Handle registers a dynamic response for commands starting with prefix.
func (f *FakeRunner) Handle(prefix string, h func(Call) Response) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[prefix] = h
	return f
}

// Calls returns every command executed so far.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

func (f *FakeRunner) Run(_ context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	call := Call{Name: name, Args: args}
	if stdin != nil {
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, nil, err
		}
		call.Stdin = string(b)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	line := call.Line()
	var handler func(Call) Response
	best := -1
	for prefix, h := range f.handlers {
		if strings.HasPrefix(line, prefix) && len(prefix) > best {
			best, handler = len(prefix), h
		}
	}
	f.mu.Unlock()

	resp := Response{Err: fmt.Errorf("unexpected command: %s", line)}
	if handler != nil {
		resp = handler(call)
	}

	if resp.Err != nil {
		output := resp.Stderr
		if output == "" {
			output = resp.Stdout
		}
		return []byte(resp.Stdout), []byte(resp.Stderr), cmdutils.NewRunError(resp.Err, []byte(output), name, args...)
	}
	return []byte(resp.Stdout), []byte(resp.Stderr), nil
}

func (f *FakeRunner) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.Paths[name]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
}

// ErrExit mimics a non-zero exit of a scripted command.
var ErrExit = errors.New("exit status 1")
