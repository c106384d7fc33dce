package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"twinkscan/pkg/config"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/store"
	"twinkscan/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	noColor       bool
	notifications bool
	storeDriver   string
	storePath     string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "twinkscan",
	Short: "Scan a faction roster for illicit multi-faction accounts",
	Long: `twinkscan walks a faction roster page in a real browser, opens every
member's character cards and flags accounts whose characters sit in factions
that must not be mixed.

Features:
  - Human-like pacing that slows down under pressure
  - Pauses on captchas and backs off on rate limits
  - Resumes where it left off after a crash or stop
  - Accumulated results with export to a text file
  - Terminal UI, desktop notifications and Prometheus metrics`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.DisableColor()
		}
		if cmd.Name() == "scan" && useTUI {
			return
		}
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintLogo()
		}
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.twinkscan.yaml or $XDG_CONFIG_HOME/twinkscan/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&notifications, "notifications", true, "enable desktop notifications")
	rootCmd.PersistentFlags().StringVar(&storeDriver, "store-driver", "", "state store engine (file, sqlite, memory)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store-path", "", "state store location")

	rootCmd.SetVersionTemplate(`twinkscan {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags the operator actually set
func globalFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if cmd.Flags().Changed("notifications") {
		flags["notifications-enabled"] = notifications
	}
	if storeDriver != "" {
		flags["store-driver"] = storeDriver
	}
	if storePath != "" {
		flags["store-path"] = storePath
	}
	return flags
}

// loadConfig loads configuration with the global flags merged in and
// initializes the global logger
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := globalFlags(cmd)
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// openState loads configuration and opens the state store
func openState(cmd *cobra.Command) (*config.Config, store.Store, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open state store: %w", err)
	}
	return cfg, st, nil
}
