package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
	"twinkscan/pkg/export"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/store"
	"twinkscan/pkg/ui"
)

var (
	resultsDir  string
	autoExport  bool
	clearForced bool
)

// resultsCmd represents the results command
var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Show, export or clear accumulated results",
	Long: `Flag lines accumulate across scans until they are cleared. Each line is
ready to paste into the admin console.`,
}

var resultsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the accumulated flag lines",
	RunE:  runResultsShow,
}

var resultsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the accumulated flag lines to a text file",
	Example: `  # Export into the configured directory
  twinkscan results export

  # Export into ./reports and export automatically after every completed scan
  twinkscan results export --dir ./reports --auto`,
	RunE: runResultsExport,
}

var resultsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the accumulated flag lines",
	RunE:  runResultsClear,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsShowCmd)
	resultsCmd.AddCommand(resultsExportCmd)
	resultsCmd.AddCommand(resultsClearCmd)

	resultsExportCmd.Flags().StringVarP(&resultsDir, "dir", "d", "", "export directory")
	resultsExportCmd.Flags().BoolVar(&autoExport, "auto", false, "also export automatically when a scan completes")
	resultsClearCmd.Flags().BoolVarP(&clearForced, "yes", "y", false, "do not ask for confirmation")
}

func runResultsShow(cmd *cobra.Command, args []string) error {
	_, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	values, err := st.Get(cmd.Context(), store.KeyStoredResults)
	if err != nil {
		return fmt.Errorf("failed to read results: %w", err)
	}

	lines := factions.SplitLines(values.String(store.KeyStoredResults, ""))
	if len(lines) == 0 {
		ui.PrintInfo("Results", "nothing flagged yet")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Flagged")
	t.AppendHeader(table.Row{"#", "Line"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, WidthMax: 140},
	})
	for i, line := range lines {
		t.AppendRow(table.Row{i + 1, strings.TrimSuffix(line, factions.LineBreak)})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d lines", len(lines))})
	t.Render()
	return nil
}

func runResultsExport(cmd *cobra.Command, args []string) error {
	cfg, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	settings, err := export.LoadSettings(cmd.Context(), st, cfg.Export)
	if err != nil {
		return err
	}
	if resultsDir != "" {
		settings.Directory = resultsDir
	}
	if cmd.Flags().Changed("auto") {
		settings.AutoExport = autoExport
	}
	if resultsDir != "" || cmd.Flags().Changed("auto") {
		if err := export.SaveSettings(cmd.Context(), st, settings); err != nil {
			return fmt.Errorf("failed to save export settings: %w", err)
		}
	}

	exporter, err := export.FromConfig(cfg.Export, &settings)
	if err != nil {
		return err
	}

	path, err := exporter.FromStore(cmd.Context(), st)
	if errors.Is(err, export.ErrNothingToExport) {
		ui.PrintInfo("Results", "nothing to export")
		return nil
	}
	if err != nil {
		ui.PrintError("Export failed", err.Error())
		return err
	}

	ui.PrintSuccess("Results exported: " + path)
	if settings.AutoExport {
		ui.PrintInfo("Auto export", "on, to "+exporter.Dir())
	}
	return nil
}

func runResultsClear(cmd *cobra.Command, args []string) error {
	if !clearForced && !confirm("Drop all accumulated flag lines? (y/N): ") {
		return nil
	}

	_, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Set(cmd.Context(), map[string]any{store.KeyStoredResults: ""}); err != nil {
		return fmt.Errorf("failed to clear results: %w", err)
	}
	ui.PrintSuccess("Results cleared")
	return nil
}
