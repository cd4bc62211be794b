package environ

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Variable is one environment variable of a deployment.
type Variable interface {
	Name() string
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Delete(ctx context.Context) error
}

// Direct is a variable assigned a literal value on the deployment.
type Direct struct {
	name  string
	value string
	env   *Environ
}

func (v *Direct) Name() string { return v.name }

func (v *Direct) Get(context.Context) (string, error) { return v.value, nil }

func (v *Direct) Set(ctx context.Context, value string) error {
	return v.env.SetMany(ctx, map[string]string{v.name: value})
}

func (v *Direct) Delete(ctx context.Context) error {
	return v.env.unset(ctx, v.name)
}

// SecretSourced is a variable read from a key of a secret.
type SecretSourced struct {
	name   string
	Secret string
	Key    string
	env    *Environ
}

func (v *SecretSourced) Name() string { return v.name }

func (v *SecretSourced) Get(ctx context.Context) (string, error) {
	return v.env.backend.SecretValue(ctx, v.Secret, v.Key)
}

func (v *SecretSourced) Set(context.Context, string) error {
	return readOnly(v.name, "secret "+v.Secret)
}

func (v *SecretSourced) Delete(context.Context) error {
	return readOnly(v.name, "secret "+v.Secret)
}

// ConfigMapSourced is a variable read from a key of a config map.
type ConfigMapSourced struct {
	name      string
	ConfigMap string
	Key       string
	env       *Environ
}

func (v *ConfigMapSourced) Name() string { return v.name }

func (v *ConfigMapSourced) Get(ctx context.Context) (string, error) {
	return v.env.backend.ConfigMapValue(ctx, v.ConfigMap, v.Key)
}

func (v *ConfigMapSourced) Set(context.Context, string) error {
	return readOnly(v.name, "configmap "+v.ConfigMap)
}

func (v *ConfigMapSourced) Delete(context.Context) error {
	return readOnly(v.name, "configmap "+v.ConfigMap)
}

func readOnly(name, source string) error {
	return fmt.Errorf("%w: %s is sourced from %s", ErrUnsupported, name, source)
}

// rule turns a line of the environment dump into a Variable.
type rule struct {
	pattern *regexp.Regexp
	build   func(env *Environ, m []string) Variable
}

// rules are tried in order. Lines matching none, such as container headers, are skipped.
var rules = []rule{
	{
		pattern: regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)=(.*)$`),
		build: func(env *Environ, m []string) Variable {
			return &Direct{name: m[1], value: m[2], env: env}
		},
	},
	{
		pattern: regexp.MustCompile(`^# (\S+) from secret (\S+), key (\S+)$`),
		build: func(env *Environ, m []string) Variable {
			return &SecretSourced{name: m[1], Secret: m[2], Key: m[3], env: env}
		},
	},
	{
		pattern: regexp.MustCompile(`^# (\S+) from configmap (\S+), key (\S+)$`),
		build: func(env *Environ, m []string) Variable {
			return &ConfigMapSourced{name: m[1], ConfigMap: m[2], Key: m[3], env: env}
		},
	},
}

func parse(env *Environ, dump string) map[string]Variable {
	vars := map[string]Variable{}
	for _, line := range strings.Split(dump, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, r := range rules {
			if m := r.pattern.FindStringSubmatch(line); m != nil {
				v := r.build(env, m)
				vars[v.Name()] = v
				break
			}
		}
	}
	return vars
}
