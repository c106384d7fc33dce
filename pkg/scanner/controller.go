package scanner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	errs "twinkscan/pkg/errors"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/pacing"
	"twinkscan/pkg/page"
	"twinkscan/pkg/probes"
	"twinkscan/pkg/report"
	"twinkscan/pkg/retry"
	"twinkscan/pkg/store"
)

// DefaultNickname signs flag lines when no admin nickname is stored
const DefaultNickname = "kenny"

// Options tunes the controller
type Options struct {
	CheckpointInterval int
	MaxReloads         int
	RateLimitPause     time.Duration
	SuspiciousPause    time.Duration
	InteractionChance  float64
	DefaultNickname    string
}

// DefaultOptions returns the stock controller settings
func DefaultOptions() Options {
	return Options{
		CheckpointInterval: 5,
		MaxReloads:         5,
		RateLimitPause:     10 * time.Second,
		SuspiciousPause:    500 * time.Millisecond,
		InteractionChance:  0.3,
		DefaultNickname:    DefaultNickname,
	}
}

// Deps are the collaborators the controller talks to
type Deps struct {
	Page     page.Adapter
	Store    store.Store
	Sink     report.Sink
	Detector *probes.Detector
	Pace     *pacing.Engine
	Sleeper  pacing.Sleeper
	Catalog  *factions.Catalog
	Log      logger.Logger
}

// Controller walks the roster one member at a time. It is single threaded:
// Run must not be called concurrently.
type Controller struct {
	page     page.Adapter
	store    store.Store
	sink     report.Sink
	detector *probes.Detector
	gestures *probes.Gestures
	pace     *pacing.Engine
	sleeper  pacing.Sleeper
	catalog  *factions.Catalog
	log      logger.Logger
	opts     Options

	state State
	items []page.Item
	rules *factions.Engine
}

// New creates a controller
func New(deps Deps, opts Options) *Controller {
	if deps.Sleeper == nil {
		deps.Sleeper = pacing.RealSleeper
	}
	if deps.Pace == nil {
		deps.Pace = pacing.New(pacing.DefaultConfig())
	}
	if deps.Catalog == nil {
		deps.Catalog = factions.DefaultCatalog()
	}
	if deps.Log == nil {
		deps.Log = logger.NewNopLogger()
	}
	if deps.Sink == nil {
		deps.Sink = report.NewBus()
	}
	if opts.CheckpointInterval <= 0 {
		opts.CheckpointInterval = 5
	}
	if opts.DefaultNickname == "" {
		opts.DefaultNickname = DefaultNickname
	}

	return &Controller{
		page:     deps.Page,
		store:    deps.Store,
		sink:     deps.Sink,
		detector: deps.Detector,
		gestures: probes.NewGestures(deps.Page, deps.Pace, deps.Sleeper),
		pace:     deps.Pace,
		sleeper:  deps.Sleeper,
		catalog:  deps.Catalog,
		log:      deps.Log.WithField("component", "scanner"),
		opts:     opts,
		state:    State{Pressure: pacing.NewPressure()},
	}
}

// State returns a copy of the current scan state
func (c *Controller) State() State {
	s := c.state
	s.Pressure.RecentRequests = append([]time.Time(nil), c.state.Pressure.RecentRequests...)
	return s
}

// Flagged returns the lines accumulated so far, including those loaded
// from the store at start
func (c *Controller) Flagged() []string {
	if c.rules == nil {
		return nil
	}
	return c.rules.Lines()
}

// Run scans until the roster is finished, the operator stops it, a
// captcha needs solving, or the reload budget for rate limits is spent.
// Pacing pressure carries over between reloads.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	reloads := 0
	for {
		outcome, err := c.Pass(ctx)
		if err != nil || outcome != OutcomePausedRateLimit {
			return outcome, err
		}
		if reloads >= c.opts.MaxReloads {
			c.log.WithField("reloads", reloads).Warn("Reload budget spent, leaving scan paused")
			return outcome, nil
		}
		reloads++
		c.log.WithField("reload", reloads).Info("Resuming scan on the reloaded page")
	}
}

// Pass runs one start-to-halt cycle against the current page
func (c *Controller) Pass(ctx context.Context) (Outcome, error) {
	if err := c.start(ctx); err != nil {
		return OutcomeStopped, err
	}

	for {
		outcome, done := c.step(ctx)
		if done {
			c.log.WithFields(map[string]interface{}{
				"outcome":  outcome.String(),
				"index":    c.state.CurrentIndex,
				"total":    c.state.TotalCount,
				"flagged":  c.rules.Count(),
				"slowdown": c.state.Pressure.SlowdownMultiplier,
			}).Info("Scan pass ended")
			c.notify(ctx, report.Finished(outcome.String(), c.state.TotalCount, c.state.CurrentIndex))
			return outcome, nil
		}
	}
}

func (c *Controller) start(ctx context.Context) error {
	if err := c.store.Set(ctx, map[string]any{store.KeyIsWorking: true}); err != nil {
		return errs.Storage("start", err)
	}

	values, err := c.store.Get(ctx, store.KeyAdminNickname, store.KeySavedPosition, store.KeyStoredResults)
	if err != nil {
		return errs.Storage("start", err)
	}

	nickname := values.String(store.KeyAdminNickname, c.opts.DefaultNickname)
	c.rules = factions.NewEngine(c.catalog, nickname)
	c.rules.Seed(values.String(store.KeyStoredResults, ""))

	items, err := c.page.QueryWorklist(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture worklist: %w", err)
	}
	c.items = items

	saved := values.Int(store.KeySavedPosition, 0)
	if saved < 0 {
		saved = 0
	}
	if saved > len(items) {
		saved = len(items)
	}

	c.state.CurrentIndex = saved
	c.state.TotalCount = len(items)
	c.state.IsWorking = true

	c.log.WithFields(map[string]interface{}{
		"total":    len(items),
		"resume":   saved,
		"nickname": nickname,
		"known":    c.rules.Count(),
	}).Info("Scan started")

	c.notify(ctx, report.Progress(c.state.TotalCount, 0, c.state.Pressure.SlowdownMultiplier))
	return nil
}

// step runs one iteration and reports whether the pass is over
func (c *Controller) step(ctx context.Context) (Outcome, bool) {
	if ctx.Err() != nil {
		return c.halt(ctx, OutcomeStopped), true
	}
	idx := c.state.CurrentIndex

	if outcome, done := c.probe(ctx, idx); done {
		return outcome, true
	}

	if !c.stillWorking(ctx) {
		c.log.WithField("index", idx).Info("Scan stopped by operator")
		return c.halt(ctx, OutcomeStopped), true
	}

	if c.pace.AntiBurstDue(idx) {
		pause := c.pace.BreakDuration()
		c.notify(ctx, report.Break(pause))
		if c.sleep(ctx, pause) != nil {
			return c.halt(ctx, OutcomeStopped), true
		}
	}

	if idx >= c.state.TotalCount {
		return c.complete(ctx), true
	}

	if err := c.processItem(ctx, c.items[idx]); err != nil {
		if ctx.Err() != nil {
			return c.halt(ctx, OutcomeStopped), true
		}
		c.log.WithError(err).WithField("index", idx).Warn("Skipping member after error")
	}

	c.notify(ctx, report.Progress(c.state.TotalCount, idx+1, c.state.Pressure.SlowdownMultiplier))

	if c.sleep(ctx, c.pace.SettleDelay()) != nil {
		return c.halt(ctx, OutcomeStopped), true
	}

	c.state.CurrentIndex++
	if c.state.CurrentIndex%c.opts.CheckpointInterval == 0 {
		c.checkpoint(ctx)
	}

	if c.sleep(ctx, c.pace.NextDelay(&c.state.Pressure)) != nil {
		return c.halt(ctx, OutcomeStopped), true
	}
	return 0, false
}

// probe inspects the page before touching the next member
func (c *Controller) probe(ctx context.Context, idx int) (Outcome, bool) {
	if c.detector == nil {
		return 0, false
	}

	snap, err := c.page.Snapshot(ctx)
	if err != nil {
		c.log.WithError(err).Debug("Snapshot failed, skipping probes")
		return 0, false
	}

	switch c.detector.Classify(snap, idx) {
	case probes.SignalChallenge:
		logger.LogDetection(c.log, probes.SignalChallenge.String(), idx, c.state.Pressure.SlowdownMultiplier)
		c.checkpoint(ctx)
		c.notify(ctx, report.Captcha())
		c.setWorking(ctx, false)
		return OutcomePausedCaptcha, true

	case probes.SignalRateLimited:
		pacing.Escalate(&c.state.Pressure, 2.0, 3.0)
		logger.LogDetection(c.log, probes.SignalRateLimited.String(), idx, c.state.Pressure.SlowdownMultiplier)
		c.checkpoint(ctx)
		c.notify(ctx, report.RateLimit())
		if c.sleep(ctx, c.opts.RateLimitPause) != nil {
			return c.halt(ctx, OutcomeStopped), true
		}
		if err := c.page.Reload(ctx); err != nil {
			c.log.WithError(err).Warn("Reload after rate limit failed")
		}
		return OutcomePausedRateLimit, true

	case probes.SignalSuspicious:
		pacing.Escalate(&c.state.Pressure, 1.1, 1.3)
		logger.LogDetection(c.log, probes.SignalSuspicious.String(), idx, c.state.Pressure.SlowdownMultiplier)
		if c.sleep(ctx, c.opts.SuspiciousPause) != nil {
			return c.halt(ctx, OutcomeStopped), true
		}
	}
	return 0, false
}

func (c *Controller) processItem(ctx context.Context, item page.Item) error {
	if err := c.sleep(ctx, c.pace.RevealDelay()); err != nil {
		return err
	}

	if c.pace.Chance(c.opts.InteractionChance) {
		if err := c.gestures.SimulatePageInteraction(ctx); err != nil {
			c.log.WithError(err).Debug("Page interaction failed")
		}
	}

	if err := c.gestures.SimulateReveal(ctx, item); err != nil {
		return err
	}

	records, err := c.page.ExtractCards(ctx)
	if err != nil {
		return err
	}

	added := c.rules.Evaluate(records)
	if len(added) == 0 {
		return nil
	}

	for _, line := range added {
		subject := ""
		if len(records) > 0 {
			subject = records[0].SubjectID
		}
		logger.LogFlag(c.log, subject, line)
	}

	content := strings.Join(added, "")
	c.appendResults(ctx, content)
	c.deliverResult(ctx, content)
	return nil
}

// appendResults adds content to whatever is stored now, so a clear made
// while scanning holds.
func (c *Controller) appendResults(ctx context.Context, content string) {
	values, err := c.store.Get(ctx, store.KeyStoredResults)
	if err != nil {
		c.log.WithError(err).Warn("Failed to read stored results")
		return
	}
	stored := values.String(store.KeyStoredResults, "")
	if err := c.store.Set(ctx, map[string]any{store.KeyStoredResults: stored + content}); err != nil {
		c.log.WithError(err).Warn("Failed to persist results")
	}
}

// deliverResult retries the result message and counts a final failure as
// a connection error
func (c *Controller) deliverResult(ctx context.Context, content string) {
	cfg := retry.DeliveryConfig(ctx, c.log)
	cfg.Sleep = c.sleeper.Sleep

	if err := report.DeliverWithRetry(ctx, c.sink, report.Result(content), cfg); err != nil {
		c.pace.OnConnectionError(&c.state.Pressure)
		c.log.WithError(err).WithField("error_count", c.state.Pressure.ErrorCount).Warn("Result delivery failed")
	}
}

// notify is fire-and-forget
func (c *Controller) notify(ctx context.Context, msg report.Message) {
	if err := c.sink.Deliver(ctx, msg); err != nil {
		c.log.WithError(err).WithField("type", string(msg.Type)).Debug("Message not delivered")
	}
}

func (c *Controller) stillWorking(ctx context.Context) bool {
	values, err := c.store.Get(ctx, store.KeyIsWorking)
	if err != nil {
		c.log.WithError(err).Warn("Could not read working flag, continuing")
		return true
	}
	c.state.IsWorking = values.Bool(store.KeyIsWorking, false)
	return c.state.IsWorking
}

func (c *Controller) setWorking(ctx context.Context, working bool) {
	c.state.IsWorking = working
	if err := c.store.Set(ctx, map[string]any{store.KeyIsWorking: working}); err != nil {
		c.log.WithError(err).Warn("Failed to persist working flag")
	}
}

func (c *Controller) checkpoint(ctx context.Context) {
	if err := c.store.Set(ctx, map[string]any{store.KeySavedPosition: c.state.CurrentIndex}); err != nil {
		c.log.WithError(err).WithField("index", c.state.CurrentIndex).Warn("Checkpoint failed")
		return
	}
	c.log.WithField("index", c.state.CurrentIndex).Debug("Checkpoint saved")
}

// halt records the resume point; it runs after cancellation too
func (c *Controller) halt(ctx context.Context, outcome Outcome) Outcome {
	persist := context.WithoutCancel(ctx)
	c.checkpoint(persist)
	c.state.IsWorking = false
	if ctx.Err() != nil {
		c.setWorking(persist, false)
	}
	return outcome
}

func (c *Controller) complete(ctx context.Context) Outcome {
	if err := c.store.Remove(ctx, store.KeySavedPosition); err != nil {
		c.log.WithError(err).Warn("Failed to clear saved position")
	}
	c.setWorking(ctx, false)
	c.log.WithField("flagged", c.rules.Count()).Info("Scan completed")
	return OutcomeCompleted
}

func (c *Controller) sleep(ctx context.Context, d time.Duration) error {
	err := c.sleeper.Sleep(ctx, d)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		c.log.WithError(err).Debug("Sleep interrupted")
	}
	return err
}
