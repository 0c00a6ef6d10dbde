package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/ui"
)

var useCmd = &cobra.Command{
	Use:   "use [context-name]",
	Short: "Set the active context",
	Long: `Set the active context for subsequent commands.

Context names follow the pattern: <provider>:<name>
Examples: aws:prod, aws:dev, gcp:staging

Without a name an interactive picker is shown.

Examples:
  nmb use aws:prod          # Switch to AWS production context
  nmb use gcp:staging       # Switch to GCP staging context
  nmb use                   # Pick a context interactively`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUse,
}

var useAddCmd = &cobra.Command{
	Use:   "add <context-name>",
	Short: "Add a new context",
	Long: `Add a new context configuration. The first context added becomes
the current one.

Examples:
  nmb use add aws:prod --profile prod --region us-east-1 \
    --hostname apps.example.com --zone-id Z123 --image ami-0abc --size t3.small
  nmb use add gcp:staging --project acme-staging --region us-central1-a \
    --hostname apps.example.com --zone-id apps-zone --image debian-12 --size e2-small`,
	Args: cobra.ExactArgs(1),
	RunE: runUseAdd,
}

var useDeleteCmd = &cobra.Command{
	Use:   "delete <context-name>",
	Short: "Delete a context",
	Long: `Delete a context configuration.

Examples:
  nmb use rm aws:old-env`,
	Args:    cobra.ExactArgs(1),
	Aliases: []string{"rm", "remove"},
	RunE:    runUseDelete,
}

// Flags for use add
var useAdd config.Context

func init() {
	rootCmd.AddCommand(useCmd)
	useCmd.AddCommand(useAddCmd)
	useCmd.AddCommand(useDeleteCmd)

	f := useAddCmd.Flags()
	f.StringVar(&useAdd.Profile, "profile", "", "AWS profile name")
	f.StringVar(&useAdd.Project, "project", "", "GCP project ID")
	f.StringVar(&useAdd.Region, "region", "", "AWS region or GCP zone")
	f.StringVar(&useAdd.Hostname, "hostname", "", "base hostname subdomains are created under")
	f.StringVar(&useAdd.Transport, "transport", "", "command transport: ssm, ssh or gcloud")
	f.StringVar(&useAdd.DNS.ZoneID, "zone-id", "", "DNS zone ID (Route53 hosted zone or Cloud DNS managed zone)")
	f.Int64Var(&useAdd.DNS.TTL, "ttl", 0, "TTL for created records")
	f.StringVar(&useAdd.Instance.Image, "image", "", "image for new instances")
	f.StringVar(&useAdd.Instance.Size, "size", "", "instance type for new instances")
	f.StringVar(&useAdd.Instance.ScriptsPath, "scripts-path", "", "glob of base bootstrap scripts")
	f.BoolVar(&useAdd.Instance.PrivateNetworking, "private", false, "provision instances without a public IP")
	f.StringVar(&useAdd.SSH.User, "ssh-user", "", "SSH user on instances")
	f.StringVar(&useAdd.SSH.IdentityFile, "identity-file", "", "SSH private key")
	f.StringVar(&useAdd.Listener.URL, "nats-url", "", "NATS server URL for nmb listen")
}

func runUse(cmd *cobra.Command, args []string) error {
	s := store()
	out := cmd.OutOrStdout()

	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		cfg, err := s.Load()
		if err != nil {
			return err
		}
		names, current, err := s.Names()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			printAddHint(out)
			return nil
		}
		providers := make(map[string]string, len(names))
		for _, n := range names {
			providers[n] = cfg.Contexts[n].Provider
		}
		name, err = ui.Pick("Select context", ui.ContextItems(names, providers, current))
		if errors.Is(err, ui.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	if err := s.Use(name); err != nil {
		names, current, listErr := s.Names()
		if listErr != nil {
			return err
		}

		fmt.Fprintf(out, "Context %q not found.\n\n", name)
		if len(names) == 0 {
			printAddHint(out)
			return nil
		}
		fmt.Fprintln(out, "Available contexts:")
		for _, n := range names {
			marker := "  "
			if n == current {
				marker = "* "
			}
			fmt.Fprintf(out, "  %s%s\n", marker, n)
		}
		return nil
	}

	ctx, resolved, err := s.Current(name)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Switched to context: %s\n", resolved)
	fmt.Fprintf(out, "  Provider: %s\n", ctx.Provider)
	if ctx.Profile != "" {
		fmt.Fprintf(out, "  Profile:  %s\n", ctx.Profile)
	}
	if ctx.Project != "" {
		fmt.Fprintf(out, "  Project:  %s\n", ctx.Project)
	}
	if ctx.Region != "" {
		fmt.Fprintf(out, "  Region:   %s\n", ctx.Region)
	}
	fmt.Fprintf(out, "  Hostname: %s\n", ctx.Hostname)
	return nil
}

func runUseAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	ctx := useAdd

	provider, _ := config.ParseContextName(name)
	if provider == "" {
		switch {
		case ctx.Project != "":
			provider = config.ProviderGCP
		case ctx.Profile != "" || ctx.Region != "":
			provider = config.ProviderAWS
		default:
			return fmt.Errorf("cannot determine provider. Use format 'aws:name' or 'gcp:name', or provide --profile or --project")
		}
	}
	ctx.Provider = provider

	if err := store().Add(name, &ctx); err != nil {
		return fmt.Errorf("failed to add context: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Context added: %s\n", name)
	fmt.Fprintln(out, "\nTo use this context:")
	fmt.Fprintf(out, "  nmb use %s\n", name)
	return nil
}

func runUseDelete(cmd *cobra.Command, args []string) error {
	if err := store().Delete(args[0]); err != nil {
		return fmt.Errorf("failed to delete context: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Context deleted: %s\n", args[0])
	return nil
}
