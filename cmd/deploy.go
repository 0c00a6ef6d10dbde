package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/ui"
)

var deployCmd = &cobra.Command{
	Use:   "deploy <subdomain> <build-path>",
	Short: "Deploy a build directory to a subdomain",
	Long: `Deploy a local build directory to the instance serving <subdomain>.

When no instance exists for <subdomain>.<hostname> one is provisioned,
registered in DNS and started. Otherwise the build is copied to the
existing instance and the app is restarted.

Examples:
  nmb deploy web ./dist
  nmb deploy api ./build --script start.sh --script stop.sh`,
	Args: cobra.ExactArgs(2),
	RunE: runDeploy,
}

var deployScripts []string

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().StringSliceVar(&deployScripts, "script", nil, "lifecycle scripts to ensure in the build directory (default start.sh, stop.sh, update.sh, provision.sh)")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := s.deploy(ctx, args[0], args[1], deployScripts)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderReport(report))
	}
	return err
}
