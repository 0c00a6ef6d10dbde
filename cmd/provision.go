package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
	"github.com/vietdv277/nimbus/internal/ui"
)

var provisionCmd = &cobra.Command{
	Use:   "provision <subdomain>",
	Short: "Create and register an instance without deploying a build",
	Long: `Make sure an instance serves <subdomain>.<hostname> without copying a
build. A missing instance is provisioned from the context's bootstrap
scripts, its known host entry is purged and its DNS record registered.
An existing instance is left as it is.

With --repo the repository is then cloned into /opt/<dir> on the instance,
the npm script named by --script is run there and dependencies installed.

Examples:
  nmb provision web
  nmb provision web --repo git@github.com:acme/web.git --git-key /root/.ssh/github.priv`,
	Args: cobra.ExactArgs(1),
	RunE: runProvision,
}

var provisionCheckout deploy.Checkout

func init() {
	rootCmd.AddCommand(provisionCmd)

	f := provisionCmd.Flags()
	f.StringVar(&provisionCheckout.Repo, "repo", "", "repository to clone onto the instance")
	f.StringVar(&provisionCheckout.Dir, "dir", "nimbus-checkout", "directory under /opt the repository is cloned into")
	f.StringVar(&provisionCheckout.Script, "script", "provision", "npm script to run in the clone")
	f.StringVar(&provisionCheckout.GitKey, "git-key", "", "private key on the instance used for the clone")
}

func runProvision(cmd *cobra.Command, args []string) error {
	checkout := provisionCheckout
	if checkout.Repo != "" {
		if err := checkout.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	req, err := s.cfg.DeploymentRequest(args[0], "", nil)
	if err != nil {
		return err
	}

	report, err := s.pipeline().Provision(ctx, req)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), ui.RenderReport(report))
	}
	if err != nil || checkout.Repo == "" {
		return err
	}

	level.Info(s.logger).Log("msg", "provisioning checkout", "instance", report.Instance.ID, "repo", checkout.Repo, "dir", checkout.Dir)
	if err := deploy.RunSequence(ctx, s.executor, report.Instance.ID, deploy.CheckoutCommands(checkout)); err != nil {
		return fmt.Errorf("failed to provision %s from %s: %w", report.Instance.ID, checkout.Repo, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Provisioned %s from %s\n", report.Instance.Name, checkout.Repo)
	return nil
}
