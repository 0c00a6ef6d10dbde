package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/vietdv277/nimbus/pkg/provider"
)

const (
	shellDocument = "AWS-RunShellScript"

	DefaultCommandTimeout = 15 * time.Minute
)

// SSMAPI is the subset of the SSM client used by CommandRunner
type SSMAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

// CommandRunner runs shell commands on instances through SSM Run Command
type CommandRunner struct {
	api      SSMAPI
	timeout  time.Duration
	minDelay time.Duration
}

// NewCommandRunner creates an SSM-backed command runner
func NewCommandRunner(api SSMAPI, timeout time.Duration) *CommandRunner {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandRunner{api: api, timeout: timeout, minDelay: 2 * time.Second}
}

// RunCommand sends command to the instance and waits for it to finish. A
// command that ran and failed is returned as *provider.ExitError.
func (r *CommandRunner) RunCommand(ctx context.Context, instanceID, command string) (string, error) {
	sent, err := r.api.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String(shellDocument),
		InstanceIds:  []string{instanceID},
		Parameters:   map[string][]string{"commands": {command}},
		Comment:      aws.String("nimbus"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send command: %w", err)
	}
	if sent.Command == nil {
		return "", fmt.Errorf("send command returned no command id")
	}
	commandID := deref(sent.Command.CommandId)

	input := &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(instanceID),
	}

	waiter := ssm.NewCommandExecutedWaiter(r.api, func(o *ssm.CommandExecutedWaiterOptions) {
		o.MinDelay = r.minDelay
	})
	output, err := waiter.WaitForOutput(ctx, input, r.timeout)
	if err == nil {
		return deref(output.StandardOutputContent), nil
	}

	// The waiter does not return the output of a failed invocation
	inv, getErr := r.api.GetCommandInvocation(ctx, input)
	if getErr != nil || inv.ResponseCode < 0 {
		return "", fmt.Errorf("command %s on %s did not complete: %w", commandID, instanceID, err)
	}
	return deref(inv.StandardOutputContent), &provider.ExitError{
		Code:   int(inv.ResponseCode),
		Stderr: strings.TrimSpace(deref(inv.StandardErrorContent)),
	}
}
