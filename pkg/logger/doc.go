// Package logger provides the structured logging interface used across twinkscan.
//
// It wraps zerolog with a small Logger interface supporting leveled output,
// attached fields, and a process-wide default instance:
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.ForRun(logger.NewRunID(), "scanner")
//	log.WithField("index", 7).Info("Resuming scan")
//
// Console output is colorized. When a log file is configured, lines are
// written to both the console and the file.
//
// TestLogger captures messages in memory so tests can assert on what was
// logged without touching stdout.
package logger
