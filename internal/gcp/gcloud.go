package gcp

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/vietdv277/nimbus/internal/ssh"
	"github.com/vietdv277/nimbus/pkg/provider"
)

// GcloudRunner runs commands on instances with `gcloud compute ssh`
type GcloudRunner struct {
	project string
	zone    string
	iap     bool
	proc    ssh.Process
}

// NewGcloudRunner creates a runner for instances in project and zone. A nil
// proc runs the real gcloud binary.
func NewGcloudRunner(project, zone string, iap bool, proc ssh.Process) *GcloudRunner {
	if proc == nil {
		proc = ssh.ExecProcess{}
	}
	return &GcloudRunner{project: project, zone: zone, iap: iap, proc: proc}
}

// RunCommand runs command on the instance named instanceID
func (r *GcloudRunner) RunCommand(ctx context.Context, instanceID, command string) (string, error) {
	out, err := r.proc.Run(ctx, "gcloud", r.args(instanceID, command)...)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), &provider.ExitError{
				Code:   exitErr.ExitCode(),
				Stderr: strings.TrimSpace(string(out)),
			}
		}
		return string(out), err
	}
	return string(out), nil
}

func (r *GcloudRunner) args(instanceID, command string) []string {
	args := []string{
		"compute", "ssh", instanceID,
		"--project", r.project,
		"--zone", r.zone,
		"--quiet",
	}
	if r.iap {
		args = append(args, "--tunnel-through-iap")
	}
	return append(args, "--command", command)
}
