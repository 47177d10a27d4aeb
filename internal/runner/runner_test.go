package runner

import (
	"context"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func needShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandOutput(t *testing.T) {
	t.Parallel()
	needShell(t)
	res, err := Command([]string{"sh", "-c", "echo hello"}, "")(context.Background())
	require.NoError(t, err)
	require.Equal(t, Output{ExitCode: 0, Output: "hello\n"}, res)
}

func TestCommandFailure(t *testing.T) {
	t.Parallel()
	needShell(t)
	res, err := Command([]string{"sh", "-c", "echo first; echo 'disk full' >&2; exit 3"}, "")(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, 3, res.(Output).ExitCode)
}

func TestCommandCanceled(t *testing.T) {
	t.Parallel()
	needShell(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := Command([]string{"sleep", "5"}, "")(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 3*time.Second)
}

func TestTailBufferKeepsTail(t *testing.T) {
	t.Parallel()
	var b tailBuffer
	_, _ = b.Write([]byte(strings.Repeat("a", maxOutput)))
	_, _ = b.Write([]byte("end"))
	require.Len(t, b.String(), maxOutput)
	require.True(t, strings.HasSuffix(b.String(), "end"))
}

func TestUnitName(t *testing.T) {
	t.Parallel()
	require.Equal(t, "nginx.service", UnitName(" nginx "))
	require.Equal(t, "backup.timer", UnitName("backup.timer"))
	require.Error(t, checkAction("reload"))
	require.NoError(t, checkAction("restart"))
}
