//go:build !nosqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "runs.db"), Keep: 3}, logx.Nop())
	require.NoError(t, err)
	defer st.Close()

	ss := st.(*sqliteStore)
	ss.pruneEvery = 4
	for i := 1; i <= 4; i++ {
		require.NoError(t, st.AppendRun(ctx, run(i)))
	}

	got, err := st.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, []string{"itm-2", "itm-3", "itm-4"}, ids(got))
	require.Equal(t, run(3), got[1])
}
