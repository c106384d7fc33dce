package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
	"twinkscan/pkg/config"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage twinkscan configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (TWINKSCAN_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with every option",
	Long: `Create a configuration file holding the default value of every option.

The file is created as '.twinkscan.yaml' in the current directory unless a
different path is given with --config.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the configuration after merging flags, environment variables, the
configuration file and defaults.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Validate the merged configuration.

This command checks:
  - YAML syntax
  - Value ranges
  - The faction catalog, when one is configured
  - Path accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".twinkscan.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		return fmt.Errorf("%s already exists", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		return err
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Set site.url to the faction roster page")
	fmt.Println("2. Run 'twinkscan auth login' to store your site session")
	fmt.Println("3. Run 'twinkscan config validate' to check the configuration")
	fmt.Println("4. Start scanning with 'twinkscan scan'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		return err
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (TWINKSCAN_*)")
	fmt.Println("3. .env and ~/.twinkscan.env")
	if configFile != "" {
		fmt.Printf("4. Configuration file: %s\n", configFile)
	} else {
		fmt.Printf("4. Configuration file: .twinkscan.yaml or %s\n", filepath.Join(xdg.ConfigHome, config.AppName, "config.yaml"))
	}
	fmt.Println("5. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings, problems []string

	if cfg.Site.URL == "" {
		warnings = append(warnings, "site.url is not set, pass the roster URL to 'twinkscan scan'")
	}

	if cfg.Catalog.Path != "" {
		if _, err := factions.LoadCatalog(cfg.Catalog.Path); err != nil {
			problems = append(problems, fmt.Sprintf("Faction catalog: %v", err))
		}
	}

	if cfg.Store.Driver != "memory" {
		if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create store directory: %v", err))
		}
	} else {
		warnings = append(warnings, "memory store keeps nothing between runs, scans cannot resume")
	}

	if cfg.Export.Enabled {
		if err := os.MkdirAll(cfg.Export.Directory, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create export directory: %v", err))
		}
	}

	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("configuration has %d errors", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Roster URL: %s\n", cfg.Site.URL)
	fmt.Printf("  Store: %s (%s)\n", cfg.Store.Driver, cfg.Store.Path)
	fmt.Printf("  Delay: %s - %s\n", cfg.Pacing.MinDelay, cfg.Pacing.MaxDelay)
	fmt.Printf("  Max reloads: %d\n", cfg.Scan.MaxReloads)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}
