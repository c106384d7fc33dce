package logger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// NewRunID returns an identifier attached to every log line of one scan run
func NewRunID() string {
	return uuid.NewString()
}

// ForRun returns the global logger tagged with a run id and component
func ForRun(runID, component string) Logger {
	return GetLogger().WithFields(map[string]interface{}{
		"run_id":    runID,
		"component": component,
	})
}

// LogScanProgress logs scan progress
func LogScanProgress(log Logger, processed, total int, multiplier float64) {
	percentage := 0.0
	if total > 0 {
		percentage = float64(processed) / float64(total) * 100
	}

	log.DebugWithFields("Scan progress", map[string]interface{}{
		"processed":  processed,
		"total":      total,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
		"slowdown":   multiplier,
	})
}

// LogFlag logs a flagged subject
func LogFlag(log Logger, subjectID, line string) {
	log.InfoWithFields("Twink flagged", map[string]interface{}{
		"subject_id": subjectID,
		"line":       line,
	})
}

// LogDetection logs an anti-automation signal seen on the page
func LogDetection(log Logger, kind string, index int, multiplier float64) {
	log.WarnWithFields("Page interference detected", map[string]interface{}{
		"kind":     kind,
		"index":    index,
		"slowdown": multiplier,
		"action":   "backing_off",
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	log := GetLogger().WithField("component", component)
	if len(config) > 0 {
		log = log.WithFields(config)
	}
	log.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(string) {}
func (n *nopLogger) Info(string) {}
func (n *nopLogger) Warn(string) {}
func (n *nopLogger) Error(string) {}
func (n *nopLogger) Fatal(string) {}
func (n *nopLogger) WithField(string, interface{}) Logger { return n }
func (n *nopLogger) WithFields(map[string]interface{}) Logger { return n }
func (n *nopLogger) WithError(error) Logger { return n }
func (n *nopLogger) WithContext(context.Context) Logger { return n }
func (n *nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(string, map[string]interface{}) {}
func (n *nopLogger) WarnWithFields(string, map[string]interface{}) {}
func (n *nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(string, map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger { return nil }
