package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vietdv277/nimbus/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "nmb",
	Short: "Nimbus - deploy CI builds to per-subdomain cloud instances",
	Long: `Nimbus deploys a build directory to the instance that serves a subdomain.
The instance is created on first deploy, registered in DNS, and updated in
place on every deploy after that.

Context-Aware Commands:
  nmb use aws:prod                 # Switch to AWS production context
  nmb status                       # Show current context and auth status
  nmb contexts                     # List all configured contexts

Deployment Commands:
  nmb deploy web ./dist            # Deploy ./dist to web.<hostname>
  nmb provision web                # Create web.<hostname> without a build
  nmb listen                       # Deploy builds announced over NATS
  nmb exec web -- ls -la           # Run a command in the app directory
  nmb clean web                    # Delete the deployed build
  nmb instances                    # List managed instances`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default $XDG_CONFIG_HOME/nimbus/config.yaml)")
	rootCmd.PersistentFlags().String("context", "", "context to use instead of the current one")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("context", rootCmd.PersistentFlags().Lookup("context"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

func initConfig() {
	// NMB_CONFIG, NMB_CONTEXT, NMB_LOG_LEVEL
	viper.SetEnvPrefix("NMB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func store() *config.Store {
	path := viper.GetString("config")
	if path == "" {
		path = config.DefaultPath()
	}
	return config.NewStore(path)
}

// currentContext loads the context selected by --context or the config file
func currentContext() (*config.Context, string, error) {
	ctx, name, err := store().Current(viper.GetString("context"))
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Validate(); err != nil {
		return nil, "", fmt.Errorf("context %s: %w", name, err)
	}
	return ctx, name, nil
}

func newLogger() log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)

	var opt level.Option
	switch strings.ToLower(viper.GetString("log-level")) {
	case "debug":
		opt = level.AllowDebug()
	case "warn":
		opt = level.AllowWarn()
	case "error":
		opt = level.AllowError()
	default:
		opt = level.AllowInfo()
	}
	return level.NewFilter(logger, opt)
}
