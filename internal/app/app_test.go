package app

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elsieclark/superqueue/internal/config"
	"github.com/elsieclark/superqueue/internal/runner"
	"github.com/elsieclark/superqueue/internal/storage"
)

const appConfig = `{
  "logging": {"level": "error"},
  "queue": {"concurrency": 2, "paused": %t},
  "flags": [{"name": "api", "concurrency": 1}],
  "jobs": [%s],
  "storage": {"driver": "file", "path": %q}
}`

const helloJob = `{"name": "hello", "schedule": "1h", "command": ["sh", "-c", "echo hi"], "flags": ["api"]}`

func writeConfig(t *testing.T, path string, paused bool, jobs, runs string) {
	t.Helper()
	body := fmt.Sprintf(appConfig, paused, jobs, runs)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestAppRunsJobsAndReloads(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "superqueue.json")
	runs := filepath.Join(dir, "runs")
	writeConfig(t, cfgPath, false, helloJob, runs)

	a, err := New(cfgPath)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	defer a.Stop(context.Background(), StopUnknown)

	h, err := a.Trigger("hello")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := h.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, runner.Output{Output: "hi\n"}, res)

	require.Eventually(t, func() bool {
		got, err := a.store.RecentRuns(context.Background(), 10)
		return err == nil && len(got) == 1 && got[0].Name == "hello" && got[0].OK
	}, 5*time.Second, 20*time.Millisecond)

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	writeConfig(t, cfgPath, true, "", runs)
	require.Eventually(t, func() bool {
		snap := a.Queue().Snapshot()
		return len(snap.Flags) > 0 && snap.Flags[0].Paused && len(a.trig.Jobs()) == 0
	}, 5*time.Second, 20*time.Millisecond)

	_, err = a.Trigger("hello")
	require.Error(t, err)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "superqueue.json")
	writeConfig(t, cfgPath, false, `{"name": "bad", "schedule": "61 * * * *", "command": ["true"]}`, filepath.Join(dir, "runs"))

	_, err := New(cfgPath)
	require.ErrorContains(t, err, "jobs[0].schedule")
}

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		in      *config.StorageConfig
		want    storage.Config
		enabled bool
		err     string
	}{
		{name: "absent"},
		{name: "none", in: &config.StorageConfig{Driver: "none"}},
		{name: "file default path", in: &config.StorageConfig{Driver: "file"}, want: storage.Config{Driver: "file", Path: "./superqueue"}, enabled: true},
		{name: "sqlite", in: &config.StorageConfig{Driver: "SQLite", Path: "q.db", Keep: 5}, want: storage.Config{Driver: "sqlite", Path: "q.db", BusyTimeout: time.Second, Keep: 5}, enabled: true},
		{name: "sqlite busy", in: &config.StorageConfig{Driver: "sqlite", Path: "q.db", BusyTimeout: "3s"}, want: storage.Config{Driver: "sqlite", Path: "q.db", BusyTimeout: 3 * time.Second}, enabled: true},
		{name: "sqlite no path", in: &config.StorageConfig{Driver: "sqlite"}, err: "storage.path is required"},
		{name: "unknown", in: &config.StorageConfig{Driver: "redis"}, err: "unknown storage.driver"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, enabled, err := MapStorageConfig(&config.Config{Storage: tt.in})
			if tt.err != "" {
				require.ErrorContains(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.enabled, enabled)
			require.Equal(t, tt.want, got)
		})
	}
}
