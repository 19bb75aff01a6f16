package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chupakbra/authelia-admin-cli/internal/client"
	"github.com/chupakbra/authelia-admin-cli/internal/config"
	clierrors "github.com/chupakbra/authelia-admin-cli/internal/errors"
	"github.com/chupakbra/authelia-admin-cli/tui"
)

// version is set at build time via -X github.com/chupakbra/authelia-admin-cli/cli.version=<ver>.
var version = "0.3.0"

var (
	// global state resolved by initClient
	apiClient       *client.Client
	resolvedInstURL string
	resolvedInst    string

	// global flags
	flagInstance string
	flagURL      string
	flagToken    string
	flagSecure   bool
	flagOutput   string
	flagDebug    bool
	flagTUI      bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:     "authadm",
	Version: version,
	Short:   "An admin console for Authelia user accounts",
	Long: `authadm manages the user accounts of an Authelia authentication
server: list, create, edit, enable/disable, and delete users, and assign
group memberships.

Configure a server with:
  authadm instance add home-lab --url https://auth.example.com \
    --token <admin-token>
  authadm instance use home-lab

Run 'authadm --tui' for the interactive console.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		if flagTUI {
			if err := initClient(cmd); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			if err := tui.Launch(apiClient, resolvedInst); err != nil {
				fmt.Fprintln(os.Stderr, "Error:", err)
				os.Exit(1)
			}
			return
		}
		cmd.Help() //nolint:errcheck
	},
}

// Execute wires the command tree and runs it.
func Execute() {
	rootCmd.SetVersionTemplate("authadm {{.Version}}\n")

	// Local flags (root command only)
	rootCmd.Flags().BoolVar(&flagTUI, "tui", false, "launch interactive terminal UI")

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&flagInstance, "instance", "i", "", "named Authelia instance from config (overrides current-instance)")
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "Authelia URL (e.g. https://auth.example.com) for one-shot use without config")
	rootCmd.PersistentFlags().StringVar(&flagToken, "token", "", "admin API token")
	rootCmd.PersistentFlags().BoolVar(&flagSecure, "secure", false, "enforce TLS certificate verification (default is to skip verification)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "table", "output format: table or json")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "log API requests to stderr")

	// Sub-command groups
	rootCmd.AddCommand(instanceCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(groupCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// debugLogger builds the request logger for the client. Silent unless
// --debug is set. The TUI owns the terminal, so its debug log goes to a
// file instead of stderr.
func debugLogger() zerolog.Logger {
	if !flagDebug {
		return zerolog.Nop()
	}
	if flagTUI {
		f, err := os.OpenFile("authadm-debug.log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return zerolog.Nop()
		}
		return zerolog.New(f).With().Timestamp().Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

// initClient is called by command RunE functions that need an API client.
// It resolves the instance config and builds the client.
func initClient(cmd *cobra.Command) error {
	// Inline flags take precedence over everything when --url is provided
	if flagURL != "" {
		inst := &config.InstanceConfig{
			URL:       flagURL,
			Token:     flagToken,
			VerifyTLS: flagSecure,
		}
		resolvedInstURL = flagURL
		resolvedInst = flagURL
		c, err := client.New(inst, client.WithLogger(debugLogger()))
		if err != nil {
			return err
		}
		apiClient = c
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	inst, name, err := cfg.Resolve(flagInstance)
	if err != nil {
		return err
	}
	// --secure flag overrides config
	if flagSecure {
		inst.VerifyTLS = true
	}
	resolvedInstURL = inst.URL
	resolvedInst = name

	c, err := client.New(inst, client.WithLogger(debugLogger()))
	if err != nil {
		return err
	}
	apiClient = c
	return nil
}

// handleErr maps an error through the error handler with the resolved URL
// for connection error messages. Commands call this in their RunE return.
func handleErr(err error) error {
	return clierrors.Handle(resolvedInstURL, err)
}
