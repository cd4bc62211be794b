package gateways

import (
	"context"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kgateway-dev/gwsuite/pkg/apim"
)

const (
	containerProxyPort      = "8080/tcp"
	containerManagementPort = "8090/tcp"
)

// ContainerStarter starts a container from req.
type ContainerStarter func(ctx context.Context, req testcontainers.GenericContainerRequest) (testcontainers.Container, error)

// containerizedGateway is an apicast container running on the local
// container runtime rather than in the cluster.
type containerizedGateway struct {
	*base
	cfg   Config
	start ContainerStarter

	mu        sync.Mutex
	container testcontainers.Container
}

// NewContainerized returns an apicast gateway running in a local container.
func NewContainerized(staging bool, cfg Config) (Gateway, error) {
	if err := cfg.requirePortal(Containerized); err != nil {
		return nil, err
	}
	start := cfg.ContainerStarter
	if start == nil {
		start = testcontainers.GenericContainer
	}
	return &containerizedGateway{
		base:  newBase(Containerized, cfg.name(Containerized, staging), staging),
		cfg:   cfg,
		start: start,
	}, nil
}

func (g *containerizedGateway) request() testcontainers.GenericContainerRequest {
	env := apicastEnv(g.base)
	maps.Copy(env, map[string]string{
		"THREESCALE_PORTAL_ENDPOINT": g.cfg.Settings.PortalEndpoint,
		"APICAST_MANAGEMENT_API":     "status",
	})
	return testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Name:         g.name,
			Image:        g.cfg.Settings.ApicastImage,
			ExposedPorts: []string{containerProxyPort, containerManagementPort},
			Env:          env,
			WaitingFor: wait.ForHTTP("/status/ready").
				WithPort(containerManagementPort).
				WithStartupTimeout(g.cfg.Settings.RolloutTimeout),
		},
		Started: true,
	}
}

func (g *containerizedGateway) Create(ctx context.Context) error {
	return g.create(ctx, func(ctx context.Context) error {
		c, err := g.start(ctx, g.request())
		// a container may be returned alongside an error and still needs terminating
		g.mu.Lock()
		g.container = c
		g.mu.Unlock()
		if err != nil {
			return fmt.Errorf("starting container %s: %w", g.name, err)
		}
		return nil
	})
}

func (g *containerizedGateway) running() (testcontainers.Container, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.container == nil {
		return nil, fmt.Errorf("%w: container %s is not running", ErrInvalidState, g.name)
	}
	return g.container, nil
}

func (g *containerizedGateway) Destroy(ctx context.Context) error {
	return g.destroy(ctx, func(ctx context.Context) error {
		g.mu.Lock()
		c := g.container
		g.mu.Unlock()
		if err := testcontainers.TerminateContainer(c, testcontainers.StopContext(ctx)); err != nil {
			return fmt.Errorf("terminating container %s: %w", g.name, err)
		}
		g.mu.Lock()
		g.container = nil
		g.mu.Unlock()
		return nil
	})
}

// Reload restarts the container so apicast boots with a fresh configuration.
func (g *containerizedGateway) Reload(ctx context.Context) error {
	return g.reload(ctx, func(ctx context.Context) error {
		c, err := g.running()
		if err != nil {
			return err
		}
		timeout := g.cfg.Settings.RolloutTimeout
		if err := c.Stop(ctx, &timeout); err != nil {
			return fmt.Errorf("stopping container %s: %w", g.name, err)
		}
		if err := c.Start(ctx); err != nil {
			return fmt.Errorf("starting container %s: %w", g.name, err)
		}
		return nil
	})
}

func (g *containerizedGateway) Logs(ctx context.Context) (string, error) {
	c, err := g.running()
	if err != nil {
		return "", err
	}
	rc, err := c.Logs(ctx)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	out, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Endpoint returns the host address of the proxy port. Every service is
// served there and selected by its Host header.
func (g *containerizedGateway) Endpoint(ctx context.Context, _ apim.Service) (string, error) {
	c, err := g.running()
	if err != nil {
		return "", err
	}
	return c.PortEndpoint(ctx, containerProxyPort, "http")
}
