package powminer

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMiner(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake miner is a shell script")
	}
	path := filepath.Join(t.TempDir(), "pow-miner-cuda")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newInvoker(t *testing.T, binary string, timeout time.Duration) (*Invoker, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "bocs")
	inv, err := New(Config{
		BinaryPath:  binary,
		OutputDir:   out,
		Recipient:   "EQrecipient",
		BoostFactor: 64,
		Timeout:     timeout,
		Iterations:  100000000000,
	})
	require.NoError(t, err)
	return inv, out
}

func job() Job {
	return Job{Slot: 2, Giver: "EQgiver", Seed: big.NewInt(123456789), Complexity: big.NewInt(987654321)}
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "miner output should be cleaned up")
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Timeout: time.Second, OutputDir: t.TempDir()})
	assert.Error(t, err)

	_, err = New(Config{BinaryPath: "/bin/true", OutputDir: t.TempDir()})
	assert.Error(t, err)
}

func TestArgs(t *testing.T) {
	inv, _ := newInvoker(t, "/bin/true", 30*time.Second)

	got := inv.Args(job(), "data/bocs/x.boc")
	want := []string{
		"-vv", "-g", "2", "-F", "64", "-t", "30",
		"EQrecipient", "123456789", "987654321", "100000000000",
		"EQgiver", "data/bocs/x.boc",
	}
	assert.Equal(t, want, got)
}

func TestSolve_Success(t *testing.T) {
	bin := fakeMiner(t, `printf 'solution-boc' > "${13}"`)
	inv, out := newInvoker(t, bin, 5*time.Second)

	boc, err := inv.Solve(context.Background(), job())
	require.NoError(t, err)
	assert.Equal(t, []byte("solution-boc"), boc)
	assertEmptyDir(t, out)
}

func TestSolve_ReceivesParameters(t *testing.T) {
	bin := fakeMiner(t, `printf '%s|%s|%s|%s' "$3" "$9" "${10}" "${12}" > "${13}"`)
	inv, _ := newInvoker(t, bin, 5*time.Second)

	boc, err := inv.Solve(context.Background(), job())
	require.NoError(t, err)
	assert.Equal(t, "2|123456789|987654321|EQgiver", string(boc))
}

func TestSolve_ExitWithoutOutput(t *testing.T) {
	bin := fakeMiner(t, `exit 1`)
	inv, out := newInvoker(t, bin, 5*time.Second)

	_, err := inv.Solve(context.Background(), job())
	assert.ErrorIs(t, err, ErrNoSolution)
	assertEmptyDir(t, out)
}

func TestSolve_TimeoutKillsChild(t *testing.T) {
	bin := fakeMiner(t, `exec sleep 30`)
	inv, out := newInvoker(t, bin, 200*time.Millisecond)

	started := time.Now()
	_, err := inv.Solve(context.Background(), job())
	assert.ErrorIs(t, err, ErrNoSolution)
	assert.Less(t, time.Since(started), 10*time.Second)
	assertEmptyDir(t, out)
}

func TestSolve_OutputWrittenBeforeDeadline(t *testing.T) {
	bin := fakeMiner(t, `printf 'late' > "${13}"; exec sleep 30`)
	inv, out := newInvoker(t, bin, 500*time.Millisecond)

	boc, err := inv.Solve(context.Background(), job())
	require.NoError(t, err)
	assert.Equal(t, "late", string(boc))
	assertEmptyDir(t, out)
}

func TestSolve_ParentCancellation(t *testing.T) {
	bin := fakeMiner(t, `exec sleep 30`)
	inv, out := newInvoker(t, bin, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)

	_, err := inv.Solve(ctx, job())
	assert.ErrorIs(t, err, ErrNoSolution)
	assertEmptyDir(t, out)
}

func TestSolve_MissingBinary(t *testing.T) {
	inv, _ := newInvoker(t, filepath.Join(t.TempDir(), "absent"), time.Second)

	_, err := inv.Solve(context.Background(), job())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSolution)
	assert.True(t, strings.HasPrefix(err.Error(), "start miner"))
}

func TestSolve_MissingParams(t *testing.T) {
	inv, _ := newInvoker(t, "/bin/true", time.Second)

	_, err := inv.Solve(context.Background(), Job{Slot: 0, Giver: "EQgiver"})
	assert.Error(t, err)
}
