package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/scanner"
	"twinkscan/pkg/store"
	"twinkscan/pkg/ui"
)

// stopCmd represents the stop command
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Ask a running scan to stop",
	Long: `Mark the scan as not working. A running scan checks this flag before
every member, saves its position and stops.`,
	RunE: runStop,
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the saved scan state",
	RunE:  runStatus,
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the saved position and progress",
	Long: `Clear the saved position and progress so the next scan starts from the
first member. Accumulated results are kept; use 'twinkscan results clear' to
drop them.`,
	RunE: runReset,
}

// nicknameCmd represents the nickname command
var nicknameCmd = &cobra.Command{
	Use:   "nickname [name]",
	Short: "Show or set the admin nickname that signs flag lines",
	Example: `  # Show the current nickname
  twinkscan nickname

  # Sign future flag lines as alex
  twinkscan nickname alex`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNickname,
}

func init() {
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(nicknameCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	_, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Set(cmd.Context(), map[string]any{store.KeyIsWorking: false}); err != nil {
		return fmt.Errorf("failed to stop scan: %w", err)
	}
	ui.PrintSuccess("Stop requested. The scan halts before its next member.")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	values, err := st.Get(cmd.Context(),
		store.KeyIsWorking,
		store.KeySavedPosition,
		store.KeyStoredResults,
		store.KeyAdminNickname,
		store.KeyProgressData,
		store.KeyExportSettings,
	)
	if err != nil {
		return fmt.Errorf("failed to read scan state: %w", err)
	}

	var progress store.Progress
	hasProgress, _ := values.Decode(store.KeyProgressData, &progress)

	var settings store.ExportSettings
	settings.AutoExport = cfg.Export.Enabled
	settings.Directory = cfg.Export.Directory
	values.Decode(store.KeyExportSettings, &settings)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Scan State")
	t.AppendHeader(table.Row{"Key", "Value"})

	working := "no"
	if values.Bool(store.KeyIsWorking, false) {
		working = "yes"
	}
	t.AppendRow(table.Row{"Working", working})

	position := "none (next scan starts from the top)"
	if values.Has(store.KeySavedPosition) {
		position = fmt.Sprintf("%d", values.Int(store.KeySavedPosition, 0))
	}
	t.AppendRow(table.Row{"Saved position", position})

	if hasProgress {
		t.AppendRow(table.Row{"Last progress", fmt.Sprintf("%d / %d", progress.Processed, progress.Total)})
	}

	lines := factions.SplitLines(values.String(store.KeyStoredResults, ""))
	t.AppendRow(table.Row{"Flagged lines", len(lines)})
	t.AppendRow(table.Row{"Nickname", values.String(store.KeyAdminNickname, cfg.Scan.Nickname)})

	auto := "off"
	if settings.AutoExport {
		auto = "on, to " + settings.Directory
	}
	t.AppendRow(table.Row{"Auto export", auto})
	t.AppendRow(table.Row{"Store", fmt.Sprintf("%s (%s)", cfg.Store.Driver, cfg.Store.Path)})
	t.Render()
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	_, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Remove(cmd.Context(), store.KeyProgressData, store.KeySavedPosition); err != nil {
		return fmt.Errorf("failed to reset scan: %w", err)
	}
	ui.PrintSuccess("Progress reset. The next scan starts from the first member.")
	return nil
}

func runNickname(cmd *cobra.Command, args []string) error {
	_, st, err := openState(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	if len(args) == 0 {
		values, err := st.Get(cmd.Context(), store.KeyAdminNickname)
		if err != nil {
			return fmt.Errorf("failed to read nickname: %w", err)
		}
		ui.PrintInfo("Nickname", values.String(store.KeyAdminNickname, scanner.DefaultNickname))
		return nil
	}

	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("nickname cannot be empty")
	}
	if err := st.Set(cmd.Context(), map[string]any{store.KeyAdminNickname: name}); err != nil {
		return fmt.Errorf("failed to save nickname: %w", err)
	}
	ui.PrintSuccess("Flag lines will be signed by " + name)
	return nil
}
