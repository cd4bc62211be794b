// Package kubectl wraps the kubectl binary for the operations that have no
// client-go equivalent worth rebuilding, such as the environment dump of
// `kubectl set env --list`.
package kubectl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kgateway-dev/gwsuite/pkg/utils/cmdutils"
)

// Binary is the name of the kubectl executable.
const Binary = "kubectl"

// Cli is a kubectl command line bound to one kube context.
type Cli struct {
	runner      cmdutils.Runner
	kubeContext string
}

// NewCli returns a Cli using the current kube context.
func NewCli() *Cli {
	return &Cli{runner: cmdutils.ExecRunner{}}
}

// WithKubeContext returns a copy of the Cli bound to kubeContext.
func (c *Cli) WithKubeContext(kubeContext string) *Cli {
	return &Cli{runner: c.runner, kubeContext: kubeContext}
}

// WithRunner returns a copy of the Cli executing commands through runner.
func (c *Cli) WithRunner(runner cmdutils.Runner) *Cli {
	return &Cli{runner: runner, kubeContext: c.kubeContext}
}

// Execute runs kubectl with args against the bound kube context and returns stdout.
func (c *Cli) Execute(ctx context.Context, args ...string) (string, error) {
	stdout, _, err := c.ExecuteOn(ctx, c.kubeContext, args...)
	return stdout, err
}

// ExecuteOn runs kubectl with args against the given kube context.
func (c *Cli) ExecuteOn(ctx context.Context, kubeContext string, args ...string) (string, string, error) {
	if kubeContext != "" {
		args = append([]string{"--context", kubeContext}, args...)
	}
	stdout, stderr, err := c.runner.Run(ctx, nil, Binary, args...)
	return string(stdout), string(stderr), err
}

// ListEnv returns the raw `kubectl set env --list` dump of a deployment.
func (c *Cli) ListEnv(ctx context.Context, namespace, deployment string) (string, error) {
	return c.Execute(ctx, "-n", namespace, "set", "env", "deployment/"+deployment, "--list")
}

// SetEnv sets and removes environment variables on every container of the deployment.
// Assignments are applied in name order so the resulting command is stable.
func (c *Cli) SetEnv(ctx context.Context, namespace, deployment string, set map[string]string, unset []string) error {
	if len(set) == 0 && len(unset) == 0 {
		return nil
	}
	args := []string{"-n", namespace, "set", "env", "deployment/" + deployment}
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		args = append(args, name+"="+set[name])
	}
	for _, name := range unset {
		args = append(args, name+"-")
	}
	_, err := c.Execute(ctx, args...)
	return err
}

// RolloutRestart triggers a new rollout of the deployment.
func (c *Cli) RolloutRestart(ctx context.Context, namespace, deployment string) error {
	_, err := c.Execute(ctx, "-n", namespace, "rollout", "restart", "deployment/"+deployment)
	return err
}

// RolloutStatus blocks until the deployment rollout finishes or timeout elapses.
func (c *Cli) RolloutStatus(ctx context.Context, namespace, deployment string, timeout time.Duration) error {
	_, err := c.Execute(ctx, "-n", namespace, "rollout", "status", "deployment/"+deployment, "--timeout="+timeout.String())
	return err
}

// Logs returns the logs of a resource such as deployment/apicast-staging.
func (c *Cli) Logs(ctx context.Context, namespace, resource string, options ...LogOption) (string, error) {
	args := append([]string{"-n", namespace, "logs", resource}, BuildLogArgs(options...)...)
	return c.Execute(ctx, args...)
}

// DeletePods deletes the pods matching selector. With force the pods are
// removed immediately without waiting for graceful termination.
func (c *Cli) DeletePods(ctx context.Context, namespace, selector string, force bool) error {
	args := []string{"-n", namespace, "delete", "pods", "-l", selector, "--ignore-not-found"}
	if force {
		args = append(args, "--grace-period=0", "--force")
	}
	_, err := c.Execute(ctx, args...)
	return err
}

// DoAction runs an arbitrary kubectl verb with `-o json` and decodes the result into out.
func (c *Cli) DoAction(ctx context.Context, namespace, verb string, out any, args ...string) error {
	full := append([]string{"-n", namespace, verb}, args...)
	full = append(full, "-o", "json")
	stdout, err := c.Execute(ctx, full...)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewBufferString(stdout))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decoding output of kubectl %s: %w", strings.Join(full, " "), err)
	}
	return nil
}
