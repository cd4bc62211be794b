/*
Portions of this file are derived from the slog-leveler project
(https://github.com/shashankram/slog-leveler)
which is licensed under the MIT License.

# MIT License

# Copyright (c) 2025 Shashank Ram

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/
package logging

import (
	"fmt"
	"log/slog"
	"strings"
)

// Extra slog log levels
const (
	LevelTrace = slog.Level(-5) // 1 lower than slog.LevelDebug
)

// Level strings
const (
	errorLevel = "error"
	warnLevel  = "warn"
	infoLevel  = "info"
	debugLevel = "debug"
	traceLevel = "trace"
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
}

// Level wraps slog.Level so it can be decoded from the environment.
type Level slog.Level

// Decode implements envconfig.Decoder
func (l *Level) Decode(value string) error {
	level, err := ParseLevel(value)
	if err != nil {
		return err
	}
	*l = Level(level)
	return nil
}

// GetLevel returns the current log level for the component
func GetLevel(component string) (slog.Level, error) {
	if component == "" {
		component = DefaultComponent
	}
	lvl, ok := componentLeveler.Load(component)
	if !ok {
		return slog.Level(0), fmt.Errorf("logger not found for component: %s", component)
	}
	return lvl.(*slog.LevelVar).Level(), nil
}

// SetLevel sets the log level for the component
func SetLevel(component string, level slog.Level) error {
	if component == "" {
		component = DefaultComponent
	}
	lvl, ok := componentLeveler.Load(component)
	if !ok {
		return fmt.Errorf("logger not found for component: %s", component)
	}
	lvl.(*slog.LevelVar).Set(level)
	return nil
}

// MustSetLevel sets the log level for the component or panics if the component is not found
func MustSetLevel(component string, level slog.Level) {
	if err := SetLevel(component, level); err != nil {
		panic(err)
	}
}

// Reset resets the log level for all components to the given level
func Reset(level slog.Level) {
	componentLeveler.Range(func(key any, value any) bool {
		value.(*slog.LevelVar).Set(level)
		return true
	})
}

// SetLevels applies a comma separated list of component levels, for example
// "gateways=debug,certificates=trace". A bare level applies to every component.
// Nothing is changed if any entry is invalid.
func SetLevels(spec string) error {
	global := ""
	levels := make(map[string]slog.Level)
	for _, entry := range strings.Split(spec, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		component, value, found := strings.Cut(entry, "=")
		if !found {
			global = component
			continue
		}
		if value == "" {
			return fmt.Errorf("component %s: empty value", component)
		}
		level, err := ParseLevel(value)
		if err != nil {
			return fmt.Errorf("component %s: %w", component, err)
		}
		if _, ok := componentLeveler.Load(component); !ok {
			return fmt.Errorf("logger not found for component: %s", component)
		}
		levels[component] = level
	}

	if global != "" {
		level, err := ParseLevel(global)
		if err != nil {
			return err
		}
		Reset(level)
	}
	for component, level := range levels {
		MustSetLevel(component, level)
	}
	return nil
}

// slogLevelReplacer replaces the slog.Level with a string representation
func slogLevelReplacer(groups []string, attr slog.Attr) slog.Attr {
	if attr.Key == slog.LevelKey {
		level := attr.Value.Any().(slog.Level)
		attr.Value = slog.StringValue(levelName(level))
	}
	return attr
}

// levelName returns the string representation of slog.Level
func levelName(level slog.Level) string {
	levelname, ok := levelNames[level]
	if !ok {
		levelname = level.String()
	}
	return levelname
}

// ParseLevel parses the given level string to slog.Level,
// and returns an error if the level is unknown
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case traceLevel:
		return LevelTrace, nil
	case debugLevel:
		return slog.LevelDebug, nil
	case infoLevel:
		return slog.LevelInfo, nil
	case warnLevel:
		return slog.LevelWarn, nil
	case errorLevel:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %s; should be one of error|warn|info|debug|trace", level)
	}
}

// LevelToString returns the string representation of slog.Level
func LevelToString(level slog.Level) string {
	switch level {
	case LevelTrace:
		return traceLevel
	case slog.LevelDebug:
		return debugLevel
	case slog.LevelInfo:
		return infoLevel
	case slog.LevelWarn:
		return warnLevel
	case slog.LevelError:
		return errorLevel
	default:
		return level.String()
	}
}
