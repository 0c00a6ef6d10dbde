package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/ui"
)

var contextsCmd = &cobra.Command{
	Use:     "contexts",
	Aliases: []string{"ctx"},
	Short:   "List all configured contexts",
	Long: `List all configured contexts.

The current active context is marked with an asterisk (*).

Examples:
  nmb contexts
  nmb ctx`,
	Args: cobra.NoArgs,
	RunE: runContexts,
}

func init() {
	rootCmd.AddCommand(contextsCmd)
}

func runContexts(cmd *cobra.Command, args []string) error {
	s := store()
	out := cmd.OutOrStdout()

	cfg, err := s.Load()
	if err != nil {
		return fmt.Errorf("failed to list contexts: %w", err)
	}
	names, current, err := s.Names()
	if err != nil {
		return fmt.Errorf("failed to list contexts: %w", err)
	}

	if len(names) == 0 {
		printAddHint(out)
		return nil
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %s  %s  %s  %s\n",
		ui.HeaderStyle.Render(fmt.Sprintf("%-20s", "CONTEXT")),
		ui.HeaderStyle.Render(fmt.Sprintf("%-8s", "PROVIDER")),
		ui.HeaderStyle.Render(fmt.Sprintf("%-20s", "PROFILE/PROJECT")),
		ui.HeaderStyle.Render("HOSTNAME"))
	fmt.Fprintln(out, ui.MutedStyle.Render("  "+strings.Repeat("─", 75)))

	for _, name := range names {
		ctx := cfg.Contexts[name]

		marker := "  "
		nameStr := fmt.Sprintf("%-20s", name)
		if name == current {
			marker = "* "
			nameStr = ui.RunningStyle.Render(nameStr)
		}

		credential := ctx.Profile
		if ctx.Project != "" {
			credential = ctx.Project
		}

		fmt.Fprintf(out, "%s%s  %s  %-20s  %s\n",
			marker,
			nameStr,
			ui.ProviderStyle(ctx.Provider).Render(fmt.Sprintf("%-8s", strings.ToUpper(ctx.Provider))),
			formatDefault(credential),
			ctx.Hostname)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "  %d contexts configured", len(names))
	if current != "" {
		fmt.Fprintf(out, ", current: %s", ui.RunningStyle.Render(current))
	}
	fmt.Fprintln(out)
	return nil
}
