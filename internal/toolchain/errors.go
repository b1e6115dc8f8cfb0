package toolchain

import (
	"fmt"
	"strings"
)

// ConfigError reports a spec that cannot be built as given.
type ConfigError struct {
	Key string
	Msg string
}

func (e *ConfigError) Error() string {
	if e.Key == "" {
		return "invalid configuration: " + e.Msg
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Key, e.Msg)
}

// RuntimeLocationError reports that the webpack binary could not be found.
type RuntimeLocationError struct {
	Binary   string
	Searched []string
}

func (e *RuntimeLocationError) Error() string {
	if len(e.Searched) == 0 {
		return fmt.Sprintf("unable to locate %s", e.Binary)
	}
	return fmt.Sprintf("unable to locate %s; searched: %s", e.Binary, strings.Join(e.Searched, ", "))
}

// ExitError reports a non-zero exit status from webpack.
type ExitError struct {
	Binary string
	Code   int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Binary, e.Code)
}
