package export

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"twinkscan/pkg/config"
	"twinkscan/pkg/store"
)

const twoLines = "offwarn 1 Твинк: Bloods | LSPD // by kenny<br>offwarn 1 Твинк: LSPD | Bloods // by kenny<br>"

func fixed(e *Exporter) *Exporter {
	e.now = func() time.Time { return time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC) }
	return e
}

func TestFileName(t *testing.T) {
	e, err := New(t.TempDir(), "")
	require.NoError(t, err)

	at := time.Date(2024, 3, 9, 14, 5, 59, 0, time.UTC)
	assert.Equal(t, "twink_results_2024-03-09_14-05.txt", e.FileName(at))
}

func TestRender(t *testing.T) {
	assert.Equal(t,
		"offwarn 1 Твинк: Bloods | LSPD // by kenny\noffwarn 1 Твинк: LSPD | Bloods // by kenny\n",
		Render(twoLines))
	assert.Empty(t, Render(""))
	assert.Empty(t, Render("<br><br>"))
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	e, err := New(dir, "")
	require.NoError(t, err)
	fixed(e)

	path, err := e.Write(twoLines)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "twink_results_2024-03-09_14-05.txt"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Render(twoLines), string(content))

	_, err = e.Write("")
	assert.ErrorIs(t, err, ErrNothingToExport)

	files, err := e.Existing()
	require.NoError(t, err)
	assert.Equal(t, []string{path}, files)
}

func TestFromStore(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	e, err := New(t.TempDir(), "")
	require.NoError(t, err)

	_, err = e.FromStore(ctx, st)
	assert.ErrorIs(t, err, ErrNothingToExport)

	require.NoError(t, st.Set(ctx, map[string]any{store.KeyStoredResults: twoLines}))
	path, err := fixed(e).FromStore(ctx, st)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	cfg := config.ExportConfig{Enabled: false, Directory: "from-config"}

	settings, err := LoadSettings(ctx, st, cfg)
	require.NoError(t, err)
	assert.Equal(t, store.ExportSettings{AutoExport: false, Directory: "from-config"}, settings)

	require.NoError(t, SaveSettings(ctx, st, store.ExportSettings{AutoExport: true}))
	settings, err = LoadSettings(ctx, st, cfg)
	require.NoError(t, err)
	assert.True(t, settings.AutoExport)
	assert.Equal(t, "from-config", settings.Directory)
}

func TestAutoExport(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	dir := t.TempDir()
	cfg := config.ExportConfig{Directory: dir, FileNamePattern: DefaultPattern}

	path, err := AutoExport(ctx, st, cfg)
	require.NoError(t, err)
	assert.Empty(t, path, "export disabled")

	cfg.Enabled = true
	path, err = AutoExport(ctx, st, cfg)
	require.NoError(t, err)
	assert.Empty(t, path, "nothing to export")

	require.NoError(t, st.Set(ctx, map[string]any{store.KeyStoredResults: twoLines}))
	path, err = AutoExport(ctx, st, cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}
