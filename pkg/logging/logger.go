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
	"sort"
	"sync"
)

const (
	DefaultComponent = "default"
)

var (
	// componentLeveler maps component names to their respective slog.LevelVar instance
	componentLeveler sync.Map

	// sessionOptions are applied to loggers that do not carry explicit options
	sessionOptions   Options
	sessionOptionsMu sync.RWMutex
)

func init() {
	slog.SetDefault(New(DefaultComponent))
}

// New returns a logger for the given component using the session options.
// If the component is empty, it returns the default logger.
func New(component string) *slog.Logger {
	sessionOptionsMu.RLock()
	opts := sessionOptions
	sessionOptionsMu.RUnlock()
	return NewWithOptions(component, opts)
}

// NewWithOptions returns a logger for the given component with the provided Options.
// If the component is empty, it returns the default logger.
func NewWithOptions(component string, opts Options) *slog.Logger {
	if component == "" {
		return slog.Default()
	}

	opts.Default()

	level := &slog.LevelVar{}
	if opts.Level != nil {
		level.Set(*opts.Level)
	} else if defaultLvl, ok := componentLeveler.Load(DefaultComponent); ok {
		level.Set(defaultLvl.(*slog.LevelVar).Level())
	}
	handlerOpts := &slog.HandlerOptions{
		AddSource:   opts.AddSource || level.Level() <= LevelTrace,
		Level:       level,
		ReplaceAttr: slogLevelReplacer,
	}

	attrs := []slog.Attr{slog.String("component", component)}

	componentLeveler.Store(component, level)
	var handler slog.Handler
	switch opts.Format {
	case JSONFormat:
		handler = slog.NewJSONHandler(opts.Writer, handlerOpts)
	default:
		handler = slog.NewTextHandler(opts.Writer, handlerOpts)
	}

	return slog.New(handler.WithAttrs(attrs))
}

// Configure sets the options used by subsequent calls to New and resets the level
// of every logger created so far. It is meant to be called once when a test
// session starts.
func Configure(opts Options) {
	sessionOptionsMu.Lock()
	sessionOptions = opts
	sessionOptionsMu.Unlock()

	slog.SetDefault(New(DefaultComponent))
	if opts.Level != nil {
		Reset(*opts.Level)
	}
}

// DeleteLeveler deletes the leveler instance for the given component
func DeleteLeveler(component string) error {
	if component == "" {
		return fmt.Errorf("component unspecified")
	}
	componentLeveler.Delete(component)
	return nil
}

// GetComponentLevels returns a map of component names to their respective slog.Level
func GetComponentLevels() map[string]slog.Level {
	levels := make(map[string]slog.Level)
	componentLeveler.Range(func(key any, value any) bool {
		levels[key.(string)] = value.(*slog.LevelVar).Level()
		return true
	})
	return levels
}

// Components returns the sorted names of every registered component logger.
func Components() []string {
	var names []string
	componentLeveler.Range(func(key any, _ any) bool {
		names = append(names, key.(string))
		return true
	})
	sort.Strings(names)
	return names
}
