package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vietdv277/nimbus/internal/aws"
	"github.com/vietdv277/nimbus/internal/config"
	"github.com/vietdv277/nimbus/internal/gcp"
	"github.com/vietdv277/nimbus/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current context and authentication status",
	Long: `Display the current context and verify that its cloud credentials work.

Examples:
  nmb status
  nmb status --context gcp:staging`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	names, _, err := store().Names()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "Context:  "+ui.MutedStyle.Render("(not set)"))
		fmt.Fprintln(out)
		printAddHint(out)
		return nil
	}

	ctx, name, err := currentContext()
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Current Status")
	fmt.Fprintln(out, ui.MutedStyle.Render("─────────────────────────────────"))
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Context:   %s\n", ui.HeaderStyle.Render(name))
	fmt.Fprintf(out, "Provider:  %s\n", formatProvider(ctx.Provider))
	fmt.Fprintf(out, "Hostname:  %s\n", ctx.Hostname)
	fmt.Fprintf(out, "Zone ID:   %s\n", ctx.DNS.ZoneID)
	fmt.Fprintf(out, "Transport: %s\n", ctx.Transport)

	switch ctx.Provider {
	case config.ProviderAWS:
		displayAWSStatus(cmd.Context(), out, ctx)
	case config.ProviderGCP:
		displayGCPStatus(cmd.Context(), out, ctx)
	}
	return nil
}

func displayAWSStatus(ctx context.Context, out io.Writer, c *config.Context) {
	fmt.Fprintf(out, "Profile:   %s\n", ui.AWSStyle.Render(formatDefault(c.Profile)))
	fmt.Fprintf(out, "Region:    %s\n", formatDefault(c.Region))
	fmt.Fprintln(out)

	fmt.Fprint(out, "Auth:      ")
	client, err := aws.NewClient(ctx, aws.WithProfile(c.Profile), aws.WithRegion(c.Region))
	if err == nil {
		var identity *aws.CallerIdentity
		identity, err = aws.GetCallerIdentity(ctx, client.STS)
		if err == nil {
			fmt.Fprintln(out, ui.RunningStyle.Render("✓ Authenticated"))
			fmt.Fprintf(out, "Account:   %s\n", identity.Account)
			fmt.Fprintf(out, "User:      %s\n", identity.UserID)
			if identity.Arn != "" {
				fmt.Fprintf(out, "ARN:       %s\n", ui.MutedStyle.Render(identity.Arn))
			}
			return
		}
	}

	fmt.Fprintln(out, ui.FailedStyle.Render("✗ Not authenticated"))
	fmt.Fprintf(out, "           %s\n", ui.MutedStyle.Render(err.Error()))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To authenticate:")
	if c.Profile != "" {
		fmt.Fprintf(out, "  aws sso login --profile %s\n", c.Profile)
	} else {
		fmt.Fprintln(out, "  aws configure")
	}
}

func displayGCPStatus(ctx context.Context, out io.Writer, c *config.Context) {
	fmt.Fprintf(out, "Project:   %s\n", ui.GCPStyle.Render(c.Project))
	fmt.Fprintf(out, "Zone:      %s\n", c.Region)
	fmt.Fprintln(out)

	fmt.Fprint(out, "Auth:      ")
	client, err := gcp.NewClient(ctx, gcp.WithProject(c.Project), gcp.WithZone(c.Region))
	if err == nil {
		var identity *gcp.CallerIdentity
		identity, err = gcp.GetCallerIdentity(ctx, client)
		if err == nil {
			fmt.Fprintln(out, ui.RunningStyle.Render("✓ Authenticated"))
			fmt.Fprintf(out, "Account:   %s\n", formatDefault(identity.Email))
			fmt.Fprintf(out, "Type:      %s\n", ui.MutedStyle.Render(identity.CredentialType))
			return
		}
	}

	fmt.Fprintln(out, ui.FailedStyle.Render("✗ Not authenticated"))
	fmt.Fprintf(out, "           %s\n", ui.MutedStyle.Render(err.Error()))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To authenticate:")
	fmt.Fprintln(out, "  gcloud auth application-default login")
}

func formatProvider(provider string) string {
	switch provider {
	case config.ProviderAWS:
		return ui.AWSStyle.Render("AWS")
	case config.ProviderGCP:
		return ui.GCPStyle.Render("GCP")
	default:
		return provider
	}
}

func formatDefault(s string) string {
	if s == "" {
		return "(default)"
	}
	return s
}

func printAddHint(out io.Writer) {
	fmt.Fprintln(out, "No contexts configured. Add one with:")
	fmt.Fprintln(out, "  nmb use add aws:prod --profile <profile> --region <region> --hostname <domain> --zone-id <zone> --image <ami> --size <type>")
	fmt.Fprintln(out, "  nmb use add gcp:prod --project <project-id> --region <zone> --hostname <domain> --zone-id <zone> --image <image> --size <machine-type>")
}
