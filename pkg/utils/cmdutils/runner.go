package cmdutils

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"github.com/kgateway-dev/gwsuite/pkg/logging"
)

var logger = logging.New("cmdutils")

// Runner executes external programs. It exists so callers can be tested
// without the programs installed.
type Runner interface {
	// Run executes name with args, feeding stdin when it is non-nil.
	// A non-zero exit is returned as a *RunError.
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout []byte, stderr []byte, err error)
	// LookPath resolves name the way exec.LookPath does.
	LookPath(name string) (string, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

var _ Runner = ExecRunner{}

func (ExecRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("running command", "command", PrettyCommand(false, name, args...))
	if err := cmd.Run(); err != nil {
		output := stderr.Bytes()
		if len(output) == 0 {
			output = stdout.Bytes()
		}
		return stdout.Bytes(), stderr.Bytes(), NewRunError(err, output, name, args...)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}
