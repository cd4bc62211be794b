package environ_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/environ"
)

// fakeBackend keeps direct variables in a map and renders them like
// `kubectl set env --list`.
type fakeBackend struct {
	direct   map[string]string
	sourced  []string
	secrets  map[string]string
	lists    int
	rollouts int
	setErr   error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		direct: map[string]string{"APICAST_LOG_LEVEL": "info"},
		sourced: []string{
			"# THREESCALE_PORTAL_ENDPOINT from secret apicast-portal, key URL",
			"# APICAST_CONFIGURATION_CACHE from configmap apicast-env, key CACHE",
		},
		secrets: map[string]string{
			"apicast-portal/URL": "https://tok@admin.example.com",
			"apicast-env/CACHE":  "300",
		},
	}
}

func (b *fakeBackend) ListEnv(_ context.Context, deployment string) (string, error) {
	b.lists++
	lines := []string{fmt.Sprintf("# deployments/%s, container apicast", deployment)}
	for _, name := range slices.Sorted(maps.Keys(b.direct)) {
		lines = append(lines, name+"="+b.direct[name])
	}
	lines = append(lines, b.sourced...)
	return strings.Join(lines, "\n") + "\n", nil
}

func (b *fakeBackend) SetEnv(_ context.Context, _ string, set map[string]string, unset []string) error {
	if b.setErr != nil {
		return b.setErr
	}
	maps.Copy(b.direct, set)
	for _, name := range unset {
		delete(b.direct, name)
	}
	return nil
}

func (b *fakeBackend) WaitForRollout(context.Context, string) error {
	b.rollouts++
	return nil
}

func (b *fakeBackend) SecretValue(_ context.Context, name, key string) (string, error) {
	return b.secrets[name+"/"+key], nil
}

func (b *fakeBackend) ConfigMapValue(_ context.Context, name, key string) (string, error) {
	return b.secrets[name+"/"+key], nil
}

func TestParseVariants(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	env := environ.New(newFakeBackend(), "apicast-staging")

	names, err := env.Names(ctx)
	r.NoError(err)
	r.Equal([]string{"APICAST_CONFIGURATION_CACHE", "APICAST_LOG_LEVEL", "THREESCALE_PORTAL_ENDPOINT"}, names)

	v, err := env.Lookup(ctx, "APICAST_LOG_LEVEL")
	r.NoError(err)
	r.IsType(&environ.Direct{}, v)

	v, err = env.Lookup(ctx, "THREESCALE_PORTAL_ENDPOINT")
	r.NoError(err)
	secret, ok := v.(*environ.SecretSourced)
	r.True(ok)
	r.Equal("apicast-portal", secret.Secret)
	r.Equal("URL", secret.Key)

	value, err := env.Get(ctx, "THREESCALE_PORTAL_ENDPOINT")
	r.NoError(err)
	r.Equal("https://tok@admin.example.com", value)

	value, err = env.Get(ctx, "APICAST_CONFIGURATION_CACHE")
	r.NoError(err)
	r.Equal("300", value)
}

func TestSetManyRefreshesAfterWrite(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	backend := newFakeBackend()
	env := environ.New(backend, "apicast-staging")

	_, err := env.Get(ctx, "APICAST_LOG_LEVEL")
	r.NoError(err)
	r.NoError(env.SetMany(ctx, map[string]string{"A": "1", "B": "2"}))
	r.Equal(1, backend.rollouts)

	a, err := env.Get(ctx, "A")
	r.NoError(err)
	r.Equal("1", a)
	r.Equal(2, backend.lists, "the write forces a reload")
}

func TestDirectVariableSetAndDelete(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	backend := newFakeBackend()
	env := environ.New(backend, "apicast-staging")

	v, err := env.Lookup(ctx, "APICAST_LOG_LEVEL")
	r.NoError(err)
	r.NoError(v.Set(ctx, "debug"))
	level, err := env.Get(ctx, "APICAST_LOG_LEVEL")
	r.NoError(err)
	r.Equal("debug", level)

	r.NoError(env.Delete(ctx, "APICAST_LOG_LEVEL"))
	_, err = env.Get(ctx, "APICAST_LOG_LEVEL")
	r.ErrorIs(err, environ.ErrNotFound)

	r.ErrorIs(env.Delete(ctx, "APICAST_LOG_LEVEL"), environ.ErrNotFound)
}

func TestSourcedVariablesAreReadOnly(t *testing.T) {
	ctx := context.Background()
	backend := newFakeBackend()
	env := environ.New(backend, "apicast-staging")

	for _, name := range []string{"THREESCALE_PORTAL_ENDPOINT", "APICAST_CONFIGURATION_CACHE"} {
		t.Run(name, func(t *testing.T) {
			err := env.Set(ctx, name, "x")
			assert.ErrorIs(t, err, environ.ErrUnsupported)
			assert.ErrorIs(t, err, errors.ErrUnsupported)
			assert.ErrorIs(t, env.Delete(ctx, name), environ.ErrUnsupported)
		})
	}

	err := env.SetMany(ctx, map[string]string{"A": "1", "THREESCALE_PORTAL_ENDPOINT": "x"})
	require.ErrorIs(t, err, environ.ErrUnsupported)
	assert.NotContains(t, backend.direct, "A", "no change is made when any variable is read only")
	assert.Zero(t, backend.rollouts)
}

func TestFailedWriteStillInvalidates(t *testing.T) {
	r := require.New(t)
	ctx := context.Background()
	backend := newFakeBackend()
	env := environ.New(backend, "apicast-staging")

	_, err := env.Names(ctx)
	r.NoError(err)
	backend.setErr = errors.New("boom")
	r.ErrorContains(env.Set(ctx, "A", "1"), "boom")

	_, err = env.Names(ctx)
	r.NoError(err)
	r.Equal(2, backend.lists)
}
