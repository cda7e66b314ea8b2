// Package powminer drives the external pow-miner-cuda executable.
package powminer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNoSolution means the miner exited or timed out without writing a BOC.
var ErrNoSolution = errors.New("miner produced no solution")

// Config is the part of the miner settings the invoker needs.
type Config struct {
	BinaryPath  string
	OutputDir   string
	Recipient   string
	BoostFactor int
	Timeout     time.Duration
	Iterations  int64

	// Stdout and Stderr receive the child's output; nil discards it.
	Stdout io.Writer
	Stderr io.Writer
}

// Job is one proof-of-work attempt for one worker slot.
type Job struct {
	Slot       int
	Giver      string
	Seed       *big.Int
	Complexity *big.Int
}

// Invoker launches one child process per Solve call.
type Invoker struct {
	cfg Config
}

func New(cfg Config) (*Invoker, error) {
	if cfg.BinaryPath == "" {
		return nil, fmt.Errorf("miner binary path cannot be empty")
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("miner timeout must be positive")
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.OutputDir, err)
	}
	return &Invoker{cfg: cfg}, nil
}

// Args builds the miner command line for job writing to output.
func (inv *Invoker) Args(job Job, output string) []string {
	return []string{
		"-vv",
		"-g", strconv.Itoa(job.Slot),
		"-F", strconv.Itoa(inv.cfg.BoostFactor),
		"-t", strconv.Itoa(int(inv.cfg.Timeout / time.Second)),
		inv.cfg.Recipient,
		job.Seed.String(),
		job.Complexity.String(),
		strconv.FormatInt(inv.cfg.Iterations, 10),
		job.Giver,
		output,
	}
}

// Solve runs the miner for job and returns the BOC it wrote. The child is
// killed when the timeout elapses or ctx is cancelled, and the output file is
// removed on every path.
func (inv *Invoker) Solve(ctx context.Context, job Job) ([]byte, error) {
	if job.Seed == nil || job.Complexity == nil {
		return nil, fmt.Errorf("job for slot %d has no pow params", job.Slot)
	}

	output := filepath.Join(inv.cfg.OutputDir, uuid.NewString()+".boc")
	defer removeQuietly(output)

	ctx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, inv.cfg.BinaryPath, inv.Args(job, output)...)
	cmd.Stdout = inv.cfg.Stdout
	cmd.Stderr = inv.cfg.Stderr
	cmd.WaitDelay = time.Second

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start miner: %w", err)
	}

	waitErr := cmd.Wait()
	logger := log.With().
		Int("slot", job.Slot).
		Str("giver", job.Giver).
		Dur("elapsed", time.Since(started)).
		Logger()
	switch {
	case ctx.Err() != nil:
		logger.Debug().Err(ctx.Err()).Msg("miner stopped at deadline")
	case waitErr != nil:
		logger.Debug().Err(waitErr).Msg("miner exited with error")
	default:
		logger.Trace().Msg("miner exited")
	}

	boc, err := os.ReadFile(output)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSolution
		}
		return nil, fmt.Errorf("read miner output: %w", err)
	}
	if len(boc) == 0 {
		return nil, ErrNoSolution
	}
	return boc, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("path", path).Msg("failed to remove miner output")
	}
}
