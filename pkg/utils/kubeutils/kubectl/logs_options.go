package kubectl

import (
	"strconv"
	"time"
)

// LogOption represents an option for a kubectl logs request.
type LogOption func(config *logConfig)

type logConfig struct {
	container     string
	allContainers bool
	previous      bool
	since         time.Duration
	tail          int
}

// WithContainer sets the container name to get logs from (-c, --container)
func WithContainer(container string) LogOption {
	return func(config *logConfig) {
		config.container = container
	}
}

// WithAllContainers returns logs of every container in the pod (--all-containers)
func WithAllContainers() LogOption {
	return func(config *logConfig) {
		config.allContainers = true
	}
}

// WithPrevious returns logs of the previous container instance (--previous)
func WithPrevious() LogOption {
	return func(config *logConfig) {
		config.previous = true
	}
}

// WithSince sets the relative time to return logs from (--since)
func WithSince(since time.Duration) LogOption {
	return func(config *logConfig) {
		config.since = since
	}
}

// WithTail sets the number of lines from the end of the logs to show (--tail)
// Use -1 to show all lines
func WithTail(lines int) LogOption {
	return func(config *logConfig) {
		config.tail = lines
	}
}

// BuildLogArgs constructs the kubectl logs arguments from the provided options
func BuildLogArgs(options ...LogOption) []string {
	cfg := &logConfig{tail: -1}
	for _, opt := range options {
		opt(cfg)
	}

	var args []string
	if cfg.container != "" {
		args = append(args, "-c", cfg.container)
	}
	if cfg.allContainers {
		args = append(args, "--all-containers")
	}
	if cfg.previous {
		args = append(args, "--previous")
	}
	if cfg.since > 0 {
		args = append(args, "--since", cfg.since.String())
	}
	if cfg.tail >= 0 {
		args = append(args, "--tail", strconv.Itoa(cfg.tail))
	}
	return args
}
