package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/j-veylop/rewardgate/internal/models"
	"github.com/j-veylop/rewardgate/internal/services/schedule"
	"github.com/j-veylop/rewardgate/internal/sharedstore"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "usagemonitor", cmd.Use)
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"start", "fire", "report", "status"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
}

// setupEnv points the configuration at a temp dir and publishes a schedule
// for one entity.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "ledger.db"))
	t.Setenv("SHARED_STORE_PATH", filepath.Join(dir, "counters.db"))
	t.Setenv("SIGNAL_PATH", filepath.Join(dir, "usage.signal"))
	t.Setenv("ENTITIES_PATH", filepath.Join(dir, "entities.json"))
	t.Setenv("REPORT_PATH", filepath.Join(dir, "report.json"))
	t.Setenv("LOG_LEVEL", "error")

	store, err := sharedstore.OpenSQLite(filepath.Join(dir, "counters.db"))
	require.NoError(t, err)
	s := schedule.Build([]models.TrackedEntity{{LogicalID: "ent_words"}}, schedule.Options{MinutesPerEntity: 3})
	require.NoError(t, s.Publish(store))
	require.NoError(t, store.Close())
	return dir
}

func run(t *testing.T, opts *RootOptions, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInvalidFormat(t *testing.T) {
	_, err := run(t, &RootOptions{}, "status", "--format", "yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestFireAndStatus(t *testing.T) {
	setupEnv(t)
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local))
	opts := &RootOptions{Clock: clk}

	out, err := run(t, opts, "fire", models.WatchpointID("ent_words", 2))
	require.NoError(t, err)
	assert.Contains(t, out, "today=120s")

	out, err = run(t, opts, "status", "--format", "json")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Watchpoints  int
			SignalsFired int64
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.Watchpoints)
	assert.Equal(t, int64(1), resp.Data.SignalsFired)
}

func TestFireUnknown(t *testing.T) {
	setupEnv(t)

	_, err := run(t, &RootOptions{}, "fire", "wp_nope")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestStartAndReport(t *testing.T) {
	dir := setupEnv(t)
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 10, 19, 12, 0, 0, 0, time.Local))
	opts := &RootOptions{Clock: clk}

	out, err := run(t, opts, "start")
	require.NoError(t, err)
	assert.Contains(t, out, "monitoring started")

	_, err = run(t, opts, "fire", models.WatchpointID("ent_words", 1))
	require.NoError(t, err)

	out, err = run(t, opts, "report")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries")
	assert.FileExists(t, filepath.Join(dir, "report.json"))
}
