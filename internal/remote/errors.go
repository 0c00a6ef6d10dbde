package remote

import (
	"errors"
	"fmt"

	"github.com/vietdv277/nimbus/pkg/provider"
)

// CommandError wraps a remote command failure and keeps the command text
// for diagnostics
type CommandError struct {
	InstanceID string
	Command    string
	Output     string
	Err        error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("unable to run command %q on instance %s: %v", e.Command, e.InstanceID, e.Err)
}

// Unwrap returns the underlying transport or exit error
func (e *CommandError) Unwrap() error {
	return e.Err
}

// ExitCode returns the remote exit status, or -1 when the command never
// reported one (transport failure)
func (e *CommandError) ExitCode() int {
	var exitErr *provider.ExitError
	if errors.As(e.Err, &exitErr) {
		return exitErr.Code
	}
	return -1
}

// IsTransport reports whether the command failed before the remote side
// reported an exit status
func (e *CommandError) IsTransport() bool {
	return e.ExitCode() == -1
}

// IsCommandError reports whether err carries a *CommandError
func IsCommandError(err error) bool {
	var cmdErr *CommandError
	return errors.As(err, &cmdErr)
}

// ExitCode extracts the remote exit status from err, or -1
func ExitCode(err error) int {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode()
	}
	var exitErr *provider.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return -1
}
