package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
	"twinkscan/pkg/auth"
	"twinkscan/pkg/config"
	"twinkscan/pkg/export"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/metrics"
	"twinkscan/pkg/pacing"
	"twinkscan/pkg/page"
	"twinkscan/pkg/probes"
	"twinkscan/pkg/report"
	"twinkscan/pkg/scanner"
	"twinkscan/pkg/store"
	"twinkscan/pkg/ui"
	"twinkscan/pkg/ui/tui"
)

var (
	// Scan command flags
	siteURL     string
	accountName string
	nickname    string
	catalogPath string
	maxReloads  int
	headless    bool
	exportDir   string
	metricsAddr string
	useTUI      bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [roster-url]",
	Short: "Scan the faction roster for twinks",
	Long: `Open the roster page in Chrome and check every member's characters.

The scan resumes from the last saved position when one exists. It pauses when
a captcha appears (solve it in the browser and press Enter), reloads the page
when the site rate limits it, and stops cleanly on Ctrl+C or 'twinkscan stop'.

A saved session is used when available:
  - Stored sessions (use 'twinkscan auth login' to store one)
  - Environment variable TWINKSCAN_SESSION_COOKIE
  - Otherwise the browser profile given by site.user_data_dir`,
	Example: `  # Scan the roster configured in site.url
  twinkscan scan

  # Scan a specific roster page with the full screen interface
  twinkscan scan https://example.org/faction/12 --tui

  # Sign flag lines with your nickname and export on completion
  twinkscan scan --nickname alex --export-dir ./reports

  # Expose Prometheus metrics while scanning
  twinkscan scan --metrics-addr 127.0.0.1:9090`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&siteURL, "url", "u", "", "roster page URL")
	scanCmd.Flags().StringVarP(&accountName, "account", "a", "", "use a specific stored session")
	scanCmd.Flags().StringVarP(&nickname, "nickname", "n", "", "admin nickname that signs flag lines (saved for later scans)")
	scanCmd.Flags().StringVar(&catalogPath, "catalog", "", "faction catalog YAML file")
	scanCmd.Flags().IntVar(&maxReloads, "max-reloads", 5, "page reloads allowed after rate limits")
	scanCmd.Flags().BoolVar(&headless, "headless", false, "run Chrome without a window")
	scanCmd.Flags().StringVar(&exportDir, "export-dir", "", "export results to this directory on completion")
	scanCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	scanCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
}

func scanFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	if len(args) == 1 {
		flags["site-url"] = args[0]
	} else if siteURL != "" {
		flags["site-url"] = siteURL
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = headless
	}
	if cmd.Flags().Changed("max-reloads") {
		flags["max-reloads"] = maxReloads
	}
	flags["account"] = accountName
	flags["nickname"] = nickname
	flags["catalog"] = catalogPath
	flags["export-dir"] = exportDir
	flags["metrics-addr"] = metricsAddr
	return flags
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, scanFlags(cmd, args))
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		return err
	}
	if err := cfg.ValidateForScan(); err != nil {
		ui.PrintError("Configuration is not ready for a scan", err.Error())
		return err
	}
	if useTUI {
		if err := logger.InitializeDetached(&cfg.Logging); err != nil {
			return err
		}
	}

	runID := logger.NewRunID()
	log := logger.ForRun(runID, "cli")
	log.WithFields(map[string]interface{}{
		"version": version,
		"url":     cfg.Site.URL,
		"store":   cfg.Store.Driver,
	}).Info("twinkscan starting")

	catalog := factions.DefaultCatalog()
	if cfg.Catalog.Path != "" {
		catalog, err = factions.LoadCatalog(cfg.Catalog.Path)
		if err != nil {
			ui.PrintError("Failed to load faction catalog", err.Error())
			return err
		}
	}

	st, err := store.Open(cfg.Store)
	if err != nil {
		ui.PrintError("Failed to open state store", err.Error())
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if nickname != "" {
		if err := st.Set(ctx, map[string]any{store.KeyAdminNickname: nickname}); err != nil {
			return fmt.Errorf("failed to save nickname: %w", err)
		}
	}

	cookies, err := sessionCookies(cfg, log)
	if err != nil {
		ui.PrintError("Session not found", err.Error())
		ui.PrintInfo("Available sessions", "Use 'twinkscan auth list' to see stored sessions")
		return err
	}

	if !useTUI {
		ui.PrintInfo("Roster", cfg.Site.URL)
		ui.PrintHighlight("[LAUNCHING BROWSER]")
	}

	browser, err := page.NewChrome(ctx, page.ChromeOptions{
		URL:              cfg.Site.URL,
		WorklistSelector: cfg.Site.WorklistSelector,
		UserAgent:        cfg.Site.UserAgent,
		Headless:         cfg.Site.Headless,
		NoSandbox:        cfg.Site.NoSandbox,
		ChromePath:       cfg.Site.ChromePath,
		UserDataDir:      cfg.Site.UserDataDir,
		CardWait:         cfg.Site.CardWait,
		Timeout:          cfg.Site.PageTimeout,
		Cookies:          cookies,
	}, logger.ForRun(runID, "page"))
	if err != nil {
		ui.PrintError("Failed to open the roster page", err.Error())
		return err
	}
	defer browser.Close()

	g, gctx := errgroup.WithContext(ctx)
	scanCtx, cancelScan := context.WithCancel(gctx)
	defer cancelScan()
	auxCtx, stopAux := context.WithCancel(gctx)
	defer stopAux()

	resume := make(chan struct{}, 1)
	bus := report.NewBus(
		report.LogSink{Log: logger.ForRun(runID, "report")},
		report.StoreSink{Store: st},
	)

	var terminal *tui.TUI
	var notifyOut io.Writer = os.Stdout
	if useTUI {
		terminal = tui.NewTUI(cfg.Site.URL, tui.Controls{
			Quit: cancelScan,
			Resume: func() {
				select {
				case resume <- struct{}{}:
				default:
				}
			},
		})
		bus.Add(terminal)
		notifyOut = io.Discard
	} else {
		bus.Add(ui.NewProgressDisplay(os.Stdout, cfg.Site.URL, cfg.Logging.Level == "debug"))
	}
	bus.Add(ui.NewNotifier(cfg.Notifications, notifyOut))

	if cfg.Metrics.Enabled {
		collector, err := metrics.NewCollector()
		if err != nil {
			return err
		}
		bus.Add(collector)

		server, err := metrics.Listen(cfg.Metrics.Address, cfg.Metrics.Path, collector)
		if err != nil {
			ui.PrintError("Failed to start metrics endpoint", err.Error())
			return err
		}
		log.WithField("addr", server.Addr()).Info("Metrics endpoint listening")
		g.Go(func() error { return server.Serve(auxCtx) })
	}

	controller := scanner.New(scanner.Deps{
		Page:     browser,
		Store:    st,
		Sink:     bus,
		Detector: probes.NewDetector(cfg.Site.WorklistSelector),
		Pace:     pacing.New(pacing.FromConfig(cfg.Pacing)),
		Catalog:  catalog,
		Log:      logger.ForRun(runID, "scanner"),
	}, scanOptions(cfg))

	var outcome scanner.Outcome
	g.Go(func() error {
		defer stopAux()
		if terminal != nil {
			defer terminal.Stop()
		}
		var err error
		outcome, err = runUntilDone(scanCtx, controller, resume, terminal == nil, log)
		return err
	})
	if terminal != nil {
		g.Go(terminal.Start)
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Scan failed")
		ui.PrintError("SCAN FAILED", err.Error())
		return err
	}

	return summarize(cfg, st, controller, outcome)
}

// runUntilDone repeats scan passes across captcha pauses, waiting for the
// operator between them
func runUntilDone(ctx context.Context, controller *scanner.Controller, resume chan struct{}, ask bool, log logger.Logger) (scanner.Outcome, error) {
	for {
		outcome, err := controller.Run(ctx)
		if err != nil || outcome != scanner.OutcomePausedCaptcha {
			return outcome, err
		}

		if ask {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return outcome, nil
			}
			ui.PrintWarning("Captcha detected. Solve it in the browser, then press Enter to continue")
			go readLine(resume)
		}

		select {
		case <-ctx.Done():
			return outcome, nil
		case <-resume:
			log.Info("Operator resumed after captcha")
		}
	}
}

func readLine(done chan<- struct{}) {
	if _, err := stdin.ReadString('\n'); err != nil {
		return
	}
	select {
	case done <- struct{}{}:
	default:
	}
}

func scanOptions(cfg *config.Config) scanner.Options {
	opts := scanner.DefaultOptions()
	opts.CheckpointInterval = cfg.Scan.CheckpointInterval
	opts.MaxReloads = cfg.Scan.MaxReloads
	if cfg.Scan.RateLimitPause > 0 {
		opts.RateLimitPause = cfg.Scan.RateLimitPause
	}
	if cfg.Scan.Nickname != "" {
		opts.DefaultNickname = cfg.Scan.Nickname
	}
	return opts
}

// sessionCookies resolves the saved session for the browser. Without a
// saved session the scan relies on the browser profile; a named account
// that cannot be found is an error.
func sessionCookies(cfg *config.Config, log logger.Logger) ([]page.Cookie, error) {
	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Warn("Session storage unavailable")
		return nil, nil
	}

	account, err := manager.Resolve(cfg.Scan.Account)
	if err != nil {
		if cfg.Scan.Account != "" {
			return nil, err
		}
		log.Info("No saved session, relying on the browser profile")
		return nil, nil
	}

	if account.UserAgent != "" {
		cfg.Site.UserAgent = account.UserAgent
	}
	log.WithField("account", account.Name).Info("Using saved session")
	return account.PageCookies(), nil
}

func summarize(cfg *config.Config, st store.Store, controller *scanner.Controller, outcome scanner.Outcome) error {
	state := controller.State()
	flagged := len(controller.Flagged())

	switch outcome {
	case scanner.OutcomeCompleted:
		path, err := export.AutoExport(context.Background(), st, cfg.Export)
		if err != nil {
			ui.PrintWarning("Export failed", err)
		} else if path != "" {
			ui.PrintInfo("Results exported", path)
		}
		ui.PrintSuccess(fmt.Sprintf("[SCAN COMPLETE] %d members, %d lines flagged", state.TotalCount, flagged))
	case scanner.OutcomePausedCaptcha:
		ui.PrintWarning(fmt.Sprintf("Scan paused on a captcha at %d of %d. Run 'twinkscan scan' again to resume", state.CurrentIndex, state.TotalCount))
	case scanner.OutcomePausedRateLimit:
		ui.PrintWarning(fmt.Sprintf("Scan paused by rate limits at %d of %d. Run 'twinkscan scan' later to resume", state.CurrentIndex, state.TotalCount))
	default:
		ui.PrintWarning(fmt.Sprintf("Scan stopped at %d of %d, %d lines flagged so far", state.CurrentIndex, state.TotalCount, flagged))
	}
	return nil
}
