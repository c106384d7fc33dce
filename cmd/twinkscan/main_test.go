package main

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

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(append(args, "--no-color"))
	return rootCmd.Execute()
}

func stateFile(t *testing.T) (string, *store.FileStore) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := store.NewFileStore(path)
	require.NoError(t, err)
	return path, st
}

func TestStopClearsWorkingFlag(t *testing.T) {
	path, st := stateFile(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, map[string]any{store.KeyIsWorking: true}))

	require.NoError(t, execute(t, "stop", "--store-path", path))

	values, err := st.Get(ctx, store.KeyIsWorking)
	require.NoError(t, err)
	assert.False(t, values.Bool(store.KeyIsWorking, true))
}

func TestResetKeepsResults(t *testing.T) {
	path, st := stateFile(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, map[string]any{
		store.KeySavedPosition: 7,
		store.KeyProgressData:  store.Progress{Total: 20, Processed: 7},
		store.KeyStoredResults: "offwarn 1 line<br>",
	}))

	require.NoError(t, execute(t, "reset", "--store-path", path))

	values, err := st.Get(ctx, store.KeySavedPosition, store.KeyProgressData, store.KeyStoredResults)
	require.NoError(t, err)
	assert.False(t, values.Has(store.KeySavedPosition))
	assert.False(t, values.Has(store.KeyProgressData))
	assert.Equal(t, "offwarn 1 line<br>", values.String(store.KeyStoredResults, ""))
}

func TestNicknameIsSaved(t *testing.T) {
	path, st := stateFile(t)

	require.NoError(t, execute(t, "nickname", "alex", "--store-path", path))

	values, err := st.Get(context.Background(), store.KeyAdminNickname)
	require.NoError(t, err)
	assert.Equal(t, "alex", values.String(store.KeyAdminNickname, ""))

	require.NoError(t, execute(t, "nickname", "--store-path", path))
}

func TestResultsExportAndClear(t *testing.T) {
	path, st := stateFile(t)
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, map[string]any{
		store.KeyStoredResults: "offwarn 1 a<br>offwarn 2 b<br>",
	}))

	require.NoError(t, execute(t, "results", "show", "--store-path", path))

	dir := t.TempDir()
	require.NoError(t, execute(t, "results", "export", "--dir", dir, "--auto", "--store-path", path))

	files, err := filepath.Glob(filepath.Join(dir, "twink_results_*.txt"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Equal(t, "offwarn 1 a\noffwarn 2 b\n", string(data))

	var settings store.ExportSettings
	values, err := st.Get(ctx, store.KeyExportSettings)
	require.NoError(t, err)
	ok, err := values.Decode(store.KeyExportSettings, &settings)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, settings.AutoExport)
	assert.Equal(t, dir, settings.Directory)

	require.NoError(t, execute(t, "results", "clear", "--yes", "--store-path", path))
	values, err = st.Get(ctx, store.KeyStoredResults)
	require.NoError(t, err)
	assert.Equal(t, "", values.String(store.KeyStoredResults, ""))
}

func TestStatusRenders(t *testing.T) {
	path, st := stateFile(t)
	require.NoError(t, st.Set(context.Background(), map[string]any{
		store.KeySavedPosition: 3,
		store.KeyProgressData:  store.Progress{Total: 10, Processed: 3},
	}))

	assert.NoError(t, execute(t, "status", "--store-path", path))
}

func TestScanOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Scan.CheckpointInterval = 3
	cfg.Scan.MaxReloads = 1
	cfg.Scan.RateLimitPause = 2 * time.Second
	cfg.Scan.Nickname = "alex"

	opts := scanOptions(cfg)
	assert.Equal(t, 3, opts.CheckpointInterval)
	assert.Equal(t, 1, opts.MaxReloads)
	assert.Equal(t, 2*time.Second, opts.RateLimitPause)
	assert.Equal(t, "alex", opts.DefaultNickname)
	assert.Equal(t, 500*time.Millisecond, opts.SuspiciousPause)
}

func TestCookieDomain(t *testing.T) {
	assert.Equal(t, "forum.example.org", cookieDomain("https://forum.example.org/faction/12?x=1"))
	assert.Equal(t, "", cookieDomain(""))
	assert.Equal(t, "", cookieDomain("::not a url"))
}
