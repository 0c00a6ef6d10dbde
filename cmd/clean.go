package cmd

import (
	"fmt"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/deploy"
)

var cleanCmd = &cobra.Command{
	Use:   "clean <subdomain>",
	Short: "Delete the deployed build from an instance",
	Long: `Remove the live app directory on the instance serving <subdomain>.
The instance and its DNS record are left in place; the next deploy
copies a fresh build.

Examples:
  nmb clean web`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	inst, err := s.findInstance(ctx, args[0])
	if err != nil {
		return err
	}

	if _, err := s.executor.Execute(ctx, inst.ID, deploy.CleanCommand()); err != nil {
		return fmt.Errorf("failed to delete build on %s: %w", inst.ID, err)
	}

	level.Info(s.logger).Log("msg", "build deleted", "instance", inst.ID, "name", inst.Name)
	fmt.Fprintf(cmd.OutOrStdout(), "Build deleted from %s (%s)\n", inst.Name, inst.ID)
	return nil
}
