package cmd

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/farmhand/groundskeeper/pkg/cmd/testutil"
	"github.com/farmhand/groundskeeper/pkg/jobs"
	"github.com/farmhand/groundskeeper/pkg/orchestrator"
	"github.com/stretchr/testify/require"
)

func TestApplyCommand(t *testing.T) {
	fixture := testutil.TestProject(t).WithMigrations(testutil.FarmMigrations...)
	factory := newFactory(t, fixture)

	out, err := runApp(t, factory, "apply", "001_create_farms.sql")
	require.NoError(t, err)
	require.Contains(t, out, "Submitted job ")
	require.Contains(t, out, "✅ 001_create_farms.sql applied in")
	require.Regexp(t, `✅ Job [0-9a-f-]{36} completed`, out)
	testutil.RequireTableExists(t, fixture.DB(), "farms")

	t.Run("json", func(t *testing.T) {
		out, err := runApp(t, factory, "--json", "apply", "001_create_farms.sql")
		require.NoError(t, err)

		var job jobs.Job
		require.NoError(t, json.Unmarshal([]byte(out), &job))
		require.Equal(t, jobs.StatusCompleted, job.Status)
		require.Equal(t, "001_create_farms.sql", job.File)
		require.Equal(t, orchestrator.StatusOK, job.Result.Status)
		require.Equal(t, 1, job.Result.Ignored)
		require.NotNil(t, job.FinishedAt)
	})

	t.Run("statement error", func(t *testing.T) {
		out, err := runApp(t, factory, "apply", "003_add_crop_yield.sql")
		require.ErrorIs(t, err, errJobFailed)
		require.Contains(t, out, "❌ 003_add_crop_yield.sql failed after 0 statements")
		require.Contains(t, out, "no such table: crops")
		require.Contains(t, out, "error code: ")
	})
}

func TestApplyCommandRejections(t *testing.T) {
	fixture := testutil.TestProject(t).WithMigrations(testutil.FarmMigrations...)
	factory := newFactory(t, fixture)

	tests := []struct {
		name string
		args []string
		err  error
		msg  string
	}{
		{name: "missing argument", args: []string{"apply"}, msg: "missing migration file argument"},
		{name: "unknown file", args: []string{"apply", "099_drop_everything.sql"}, err: jobs.ErrUnknownFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runApp(t, factory, tt.args...)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
			} else {
				require.EqualError(t, err, tt.msg)
			}
			require.Empty(t, out)
		})
	}
}

func TestApplyCommandDatabaseUnreachable(t *testing.T) {
	fixture := testutil.TestProject(t).WithMigrations(testutil.FarmMigrations...)
	fixture.Config.Database.DSN = filepath.Join(fixture.Dir, "missing", "farm.db")

	out, err := runApp(t, newFactory(t, fixture), "apply", "001_create_farms.sql")
	require.ErrorIs(t, err, errJobFailed)
	require.Contains(t, out, "❌ Job ")
	require.Contains(t, out, "database unreachable: unable to open database file")
}
