// Package envutils reads process environment toggles used by the e2e harness.
package envutils

import (
	"os"
	"strconv"
	"strings"
)

// IsEnvTruthy returns true if the environment variable is set to a value that
// strconv.ParseBool accepts as true, or to "yes"/"y".
func IsEnvTruthy(envVarName string) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(envVarName)))
	if value == "yes" || value == "y" {
		return true
	}
	truthy, err := strconv.ParseBool(value)
	return err == nil && truthy
}

// IsEnvDefined returns true if the environment variable is set, even to an empty value.
func IsEnvDefined(envVarName string) bool {
	_, ok := os.LookupEnv(envVarName)
	return ok
}

// LookupOrDefault returns the value of the environment variable, or the
// default when it is unset or empty.
func LookupOrDefault(envVarName, defaultValue string) string {
	if value := os.Getenv(envVarName); value != "" {
		return value
	}
	return defaultValue
}
