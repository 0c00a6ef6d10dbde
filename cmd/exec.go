package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/ui"
)

var execCmd = &cobra.Command{
	Use:   "exec [subdomain] -- <command>",
	Short: "Run a command in the deployed app directory",
	Long: `Run a shell command on the instance serving <subdomain>, from inside
the live app directory.

Examples:
  nmb exec web -- ls -la
  nmb exec web -- ./update.sh
  nmb exec -i -- tail -n 50 app.log`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var execInteractive bool

func init() {
	rootCmd.AddCommand(execCmd)

	execCmd.Flags().BoolVarP(&execInteractive, "interactive", "i", false, "pick the instance interactively")
}

func runExec(cmd *cobra.Command, args []string) error {
	var subdomain string
	command := args
	if dash := cmd.ArgsLenAtDash(); dash > 0 {
		subdomain = args[0]
		command = args[dash:]
	} else if !execInteractive {
		subdomain, command = args[0], args[1:]
	}
	if len(command) == 0 {
		return fmt.Errorf("no command given")
	}

	ctx := cmd.Context()
	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	instanceName := s.cfg.InstanceName(subdomain)
	if execInteractive {
		instances, err := s.cloud.Lister().List(ctx)
		if err != nil {
			return err
		}
		instanceName, err = ui.Pick("Select instance", ui.InstanceItems(instances))
		if err != nil {
			return err
		}
	}

	inst, err := s.directory.FindByName(ctx, instanceName)
	if err != nil {
		return err
	}
	if inst == nil {
		return fmt.Errorf("%w: %s", errInstanceNotFound, instanceName)
	}

	out, err := s.executor.Execute(ctx, inst.ID, deploy.AppCommand(strings.Join(command, " ")))
	fmt.Fprint(cmd.OutOrStdout(), out)
	return err
}

