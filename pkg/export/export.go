package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"twinkscan/pkg/config"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/store"
)

// DefaultPattern names export files after the moment they were written
const DefaultPattern = "twink_results_{date}_{time}.txt"

// ErrNothingToExport is returned when no results have been accumulated
var ErrNothingToExport = errors.New("no results to export")

// Exporter writes accumulated flag lines to text files
type Exporter struct {
	dir     string
	pattern string
	now     func() time.Time
}

// New creates an exporter writing into dir, creating it when missing
func New(dir, pattern string) (*Exporter, error) {
	if dir == "" {
		dir = "."
	}
	if pattern == "" {
		pattern = DefaultPattern
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &Exporter{dir: dir, pattern: pattern, now: time.Now}, nil
}

// FromConfig creates an exporter for cfg. A directory saved in
// settings takes precedence.
func FromConfig(cfg config.ExportConfig, settings *store.ExportSettings) (*Exporter, error) {
	dir := cfg.Directory
	if settings != nil && settings.Directory != "" {
		dir = settings.Directory
	}
	return New(dir, cfg.FileNamePattern)
}

// Dir returns the output directory
func (e *Exporter) Dir() string {
	return e.dir
}

// FileName renders the pattern for t. {date} becomes 2006-01-02 and
// {time} becomes 15-04.
func (e *Exporter) FileName(t time.Time) string {
	r := strings.NewReplacer("{date}", t.Format("2006-01-02"), "{time}", t.Format("15-04"))
	return r.Replace(e.pattern)
}

// Render turns stored report text into one line per flag
func Render(results string) string {
	lines := factions.SplitLines(results)
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(strings.TrimSuffix(line, factions.LineBreak))
		b.WriteByte('\n')
	}
	return b.String()
}

// Write exports results and returns the file path
func (e *Exporter) Write(results string) (string, error) {
	text := Render(results)
	if text == "" {
		return "", ErrNothingToExport
	}

	path := filepath.Join(e.dir, e.FileName(e.now()))
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to rename export: %w", err)
	}
	return path, nil
}

// FromStore exports the accumulated results held in st
func (e *Exporter) FromStore(ctx context.Context, st store.Store) (string, error) {
	values, err := st.Get(ctx, store.KeyStoredResults)
	if err != nil {
		return "", fmt.Errorf("failed to read results: %w", err)
	}
	return e.Write(values.String(store.KeyStoredResults, ""))
}

// Existing lists export files already in the directory, oldest first
func (e *Exporter) Existing() ([]string, error) {
	prefix, _, _ := strings.Cut(e.pattern, "{")
	entries, err := os.ReadDir(e.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasSuffix(name, ".tmp") {
			continue
		}
		if strings.HasPrefix(name, prefix) && filepath.Ext(name) == filepath.Ext(e.pattern) {
			files = append(files, filepath.Join(e.dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// LoadSettings reads the saved export settings, falling back to cfg
func LoadSettings(ctx context.Context, st store.Store, cfg config.ExportConfig) (store.ExportSettings, error) {
	settings := store.ExportSettings{AutoExport: cfg.Enabled, Directory: cfg.Directory}

	values, err := st.Get(ctx, store.KeyExportSettings)
	if err != nil {
		return settings, fmt.Errorf("failed to read export settings: %w", err)
	}
	if _, err := values.Decode(store.KeyExportSettings, &settings); err != nil {
		return settings, fmt.Errorf("failed to decode export settings: %w", err)
	}
	return settings, nil
}

// SaveSettings persists settings for later scans
func SaveSettings(ctx context.Context, st store.Store, settings store.ExportSettings) error {
	return st.Set(ctx, map[string]any{store.KeyExportSettings: settings})
}

// AutoExport writes the results when automatic export is on. It returns
// an empty path when export is off or there is nothing to write.
func AutoExport(ctx context.Context, st store.Store, cfg config.ExportConfig) (string, error) {
	settings, err := LoadSettings(ctx, st, cfg)
	if err != nil {
		return "", err
	}
	if !settings.AutoExport {
		return "", nil
	}

	exporter, err := FromConfig(cfg, &settings)
	if err != nil {
		return "", err
	}

	path, err := exporter.FromStore(ctx, st)
	if errors.Is(err, ErrNothingToExport) {
		return "", nil
	}
	return path, err
}
