package remote

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietdv277/nimbus/pkg/provider"
)

type fakeRunner struct {
	calls  []string
	output string
	err    error
}

func (f *fakeRunner) RunCommand(ctx context.Context, instanceID, command string) (string, error) {
	f.calls = append(f.calls, instanceID+": "+command)
	return f.output, f.err
}

func TestExecutor_Success(t *testing.T) {
	runner := &fakeRunner{output: "ok\n"}
	var buf bytes.Buffer
	exec := NewExecutor(runner, WithLogger(log.NewLogfmtLogger(&buf)))

	out, err := exec.Execute(context.Background(), "i-7", "uptime")

	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, []string{"i-7: uptime"}, runner.calls)
	assert.Contains(t, buf.String(), `command=uptime`)
	assert.Contains(t, buf.String(), `instance=i-7`)
}

func TestExecutor_TransportFailure(t *testing.T) {
	cause := errors.New("connection refused")
	exec := NewExecutor(&fakeRunner{err: cause})

	_, err := exec.Execute(context.Background(), "i-7", "mv /opt/build /opt/app")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.Equal(t, "mv /opt/build /opt/app", cmdErr.Command)
	assert.Equal(t, "i-7", cmdErr.InstanceID)
	assert.ErrorIs(t, err, cause)
	assert.True(t, cmdErr.IsTransport())
	assert.Equal(t, -1, cmdErr.ExitCode())
	assert.True(t, IsCommandError(err))
}

func TestExecutor_ExitFailure(t *testing.T) {
	runner := &fakeRunner{output: "partial", err: &provider.ExitError{Code: 127, Stderr: "not found"}}
	exec := NewExecutor(runner)

	out, err := exec.Execute(context.Background(), "i-9", "./provision.sh")

	require.Error(t, err)
	assert.Equal(t, "partial", out)
	assert.Equal(t, 127, ExitCode(err))
	assert.Contains(t, err.Error(), "./provision.sh")
	assert.Contains(t, err.Error(), "not found")

	var cmdErr *CommandError
	require.True(t, errors.As(err, &cmdErr))
	assert.False(t, cmdErr.IsTransport())
}

func TestExitCode_Plain(t *testing.T) {
	assert.Equal(t, -1, ExitCode(errors.New("x")))
	assert.Equal(t, 2, ExitCode(&provider.ExitError{Code: 2}))
}
