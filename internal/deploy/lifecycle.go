package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vietdv277/nimbus/internal/transfer"
	"github.com/vietdv277/nimbus/pkg/types"
)

// Executor runs a single command on a remote instance
type Executor interface {
	Execute(ctx context.Context, instanceID, command string) (string, error)
}

// StartCommands returns the commands run after a fresh provision: make the
// scripts executable, provision, then stop and start the app
func StartCommands() []string {
	app := transfer.LiveAppPath
	return []string{
		fmt.Sprintf("cd %s; chmod +x ./provision.sh; chmod +x ./stop.sh; chmod +x ./start.sh;", app),
		fmt.Sprintf("cd %s; ./provision.sh;", app),
		fmt.Sprintf("cd %s; ./stop.sh; nohup ./start.sh > /dev/null 2>&1 &", app),
	}
}

// RestartCommands returns the commands run after updating an existing
// instance: run the update script, then stop and start the app
func RestartCommands() []string {
	app := transfer.LiveAppPath
	return []string{
		fmt.Sprintf("cd %s; chmod +x ./update.sh; ./update.sh", app),
		fmt.Sprintf("cd %s; chmod +x ./stop.sh; chmod +x ./start.sh; ./stop.sh; nohup ./start.sh > /dev/null 2>&1 &", app),
	}
}

// AppCommand returns command prefixed to run inside the live app directory
func AppCommand(command string) string {
	return fmt.Sprintf("cd %s; %s", transfer.LiveAppPath, command)
}

// CleanCommand removes the live app directory
func CleanCommand() string {
	return fmt.Sprintf("rm -rf %s;", transfer.LiveAppPath)
}

// Checkout describes a repository provisioned into a scratch directory
// under the staging root
type Checkout struct {
	Repo   string // clone URL
	Dir    string // directory name under /opt
	Script string // npm script run after cloning, e.g. "provision"
	GitKey string // private key added to an ssh-agent for the clone, optional
}

// Validate checks that the checkout has a repository and a scratch directory
// that is a single path element other than the live app directory
func (c Checkout) Validate() error {
	if c.Repo == "" {
		return fmt.Errorf("checkout repository is required")
	}
	switch {
	case c.Dir == "", c.Dir == ".", c.Dir == "..", strings.ContainsAny(c.Dir, "/ '"):
		return fmt.Errorf("invalid checkout directory %q", c.Dir)
	case transfer.StagingRoot+"/"+c.Dir == transfer.LiveAppPath:
		return fmt.Errorf("checkout directory %q would replace the live app", c.Dir)
	}
	return nil
}

// CheckoutCommands returns the commands that clear the scratch directory,
// clone the repository into it, run the npm script and install dependencies
func CheckoutCommands(c Checkout) []string {
	dir := transfer.StagingRoot + "/" + c.Dir

	clone := fmt.Sprintf("git clone %s %s", c.Repo, c.Dir)
	if c.GitKey != "" {
		clone = fmt.Sprintf("ssh-agent bash -c 'ssh-add %s; %s'", c.GitKey, clone)
	}

	commands := []string{
		fmt.Sprintf("rm -rf %s", dir),
		fmt.Sprintf("cd %s; %s", transfer.StagingRoot, clone),
	}
	if script := strings.TrimSpace(c.Script); script != "" {
		commands = append(commands, fmt.Sprintf("cd %s; npm run-script %s", dir, script))
	}
	return append(commands, fmt.Sprintf("cd %s; npm install --unsafe-perm", dir))
}

// RunSequence executes commands in order and stops at the first failure
func RunSequence(ctx context.Context, exec Executor, instanceID string, commands []string) error {
	for i, cmd := range commands {
		if _, err := exec.Execute(ctx, instanceID, cmd); err != nil {
			return fmt.Errorf("lifecycle step %d/%d failed: %w", i+1, len(commands), err)
		}
	}
	return nil
}

// LifecycleScripts returns the default scripts followed by any extra names
// not already among them. The start and restart sequences call the defaults,
// so they are always included.
func LifecycleScripts(extra []string) []string {
	names := append([]string(nil), types.DefaultLifecycleScripts...)
	for _, name := range extra {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	return names
}

// EnsureLifecycleScripts creates every named script missing from dir as an
// empty file, so each one exists at the live path after transfer. It returns
// the scripts it created.
func EnsureLifecycleScripts(dir string, names []string) ([]string, error) {
	var created []string
	for _, name := range names {
		p := filepath.Join(dir, name)
		_, err := os.Stat(p)
		if err == nil {
			continue
		}
		if !os.IsNotExist(err) {
			return created, fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if err := os.WriteFile(p, nil, 0o755); err != nil {
			return created, fmt.Errorf("failed to create %s: %w", p, err)
		}
		created = append(created, name)
	}
	return created, nil
}
