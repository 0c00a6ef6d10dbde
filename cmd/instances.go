package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/ui"
)

var instancesCmd = &cobra.Command{
	Use:     "instances",
	Aliases: []string{"ls"},
	Short:   "List instances managed by nimbus",
	Long: `List the instances nimbus provisioned in the current context.

Examples:
  nmb instances
  nmb instances -i       # pick one and print its details`,
	Args: cobra.NoArgs,
	RunE: runInstances,
}

var instancesInteractive bool

func init() {
	rootCmd.AddCommand(instancesCmd)

	instancesCmd.Flags().BoolVarP(&instancesInteractive, "interactive", "i", false, "pick an instance interactively")
}

func runInstances(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := openSession(ctx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	instances, err := s.cloud.Lister().List(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !instancesInteractive {
		if len(instances) == 0 {
			fmt.Fprintln(out, "No managed instances found.")
			return nil
		}
		fmt.Fprint(out, ui.RenderInstanceTable(instances))
		return nil
	}

	name, err := ui.Pick("Select instance", ui.InstanceItems(instances))
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if inst.Name == name {
			fmt.Fprintf(out, "Name:       %s\n", ui.NameStyle.Render(inst.Name))
			fmt.Fprintf(out, "ID:         %s\n", ui.IDStyle.Render(inst.ID))
			fmt.Fprintf(out, "State:      %s\n", inst.State)
			fmt.Fprintf(out, "Public IP:  %s\n", inst.PublicIP)
			fmt.Fprintf(out, "Private IP: %s\n", inst.PrivateIP)
			fmt.Fprintf(out, "Type:       %s\n", inst.Type)
			fmt.Fprintf(out, "Zone:       %s\n", inst.Zone)
			if !inst.LaunchedAt.IsZero() {
				fmt.Fprintf(out, "Launched:   %s\n", inst.LaunchedAt.Format("2006-01-02 15:04:05"))
			}
		}
	}
	return nil
}
