// Package miner runs the mining cycle: allocate givers, fetch their pow
// params, solve them with the external miner and submit the solutions.
package miner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/tensorplex-labs/giver-miner/internal/chain"
	"github.com/tensorplex-labs/giver-miner/internal/powminer"
)

// GiverAllocator hands out distinct givers for one cycle.
type GiverAllocator interface {
	Allocate(n int) ([]string, error)
}

// Solver runs one proof-of-work attempt. It returns powminer.ErrNoSolution
// when the attempt ends without a result.
type Solver interface {
	Solve(ctx context.Context, job powminer.Job) ([]byte, error)
}

// Config controls the cycle and the run loop.
type Config struct {
	Slots      int
	Concurrent bool
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// Miner owns the collaborators of the mining loop. They are injected so the
// loop can run against fakes.
type Miner struct {
	cfg    Config
	node   chain.NodeInterface
	givers GiverAllocator
	solver Solver
	stats  *Stats

	cycle atomic.Uint64
}

func New(cfg Config, node chain.NodeInterface, givers GiverAllocator, solver Solver) *Miner {
	return &Miner{
		cfg:    cfg,
		node:   node,
		givers: givers,
		solver: solver,
		stats:  NewStats(),
	}
}

// Stats exposes the session counters.
func (m *Miner) Stats() *Stats {
	return m.stats
}

// RunCycle performs one allocate -> fetch -> mine -> submit -> report pass.
// A submission failure is returned after the report has been logged.
func (m *Miner) RunCycle(ctx context.Context) (*CycleReport, error) {
	report := &CycleReport{Cycle: m.cycle.Add(1), Started: time.Now()}

	targets, err := m.givers.Allocate(m.cfg.Slots)
	if err != nil {
		return nil, errors.Wrap(err, "allocate givers")
	}

	results, err := m.runSlots(ctx, targets)
	if err != nil {
		return nil, err
	}
	report.Results = results

	transfers := ComposeTransfers(results)
	report.Transfers = len(transfers)

	var submitErr error
	if len(transfers) == 0 {
		log.Debug().Uint64("cycle", report.Cycle).Msg("no solutions this cycle, skipping submission")
	} else {
		submitErr = m.node.SubmitTransfers(ctx, transfers)
		report.Submitted = submitErr == nil
	}
	report.Duration = time.Since(report.Started)

	m.logReport(report)
	m.stats.RecordCycle(report)

	if submitErr != nil {
		return report, errors.Wrapf(submitErr, "submit %d transfers", len(transfers))
	}
	return report, nil
}

func (m *Miner) runSlots(ctx context.Context, targets []string) ([]SlotResult, error) {
	results := make([]SlotResult, len(targets))

	if !m.cfg.Concurrent {
		for i, giver := range targets {
			res, err := m.guardedSlot(ctx, i, giver)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, giver := range targets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = m.guardedSlot(ctx, i, giver)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

// guardedSlot turns a panic inside a slot into an error for the cycle.
func (m *Miner) guardedSlot(ctx context.Context, slot int, giver string) (res SlotResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("slot %d panicked: %v", slot, r)
		}
	}()
	return m.runSlot(ctx, slot, giver), nil
}

func (m *Miner) runSlot(ctx context.Context, slot int, giver string) SlotResult {
	res := SlotResult{Slot: slot, Giver: giver, Outcome: NotMined}
	started := time.Now()

	params, ok := chain.FetchPowParams(ctx, m.node, giver)
	if !ok {
		res.Outcome = ParamsUnavailable
		res.Duration = time.Since(started)
		return res
	}

	boc, err := m.solver.Solve(ctx, powminer.Job{
		Slot:       slot,
		Giver:      giver,
		Seed:       params.Seed,
		Complexity: params.Complexity,
	})
	res.Duration = time.Since(started)
	switch {
	case err == nil:
		res.Outcome = Mined
		res.Solution = boc
		res.Seed = params.Seed
	case errors.Is(err, powminer.ErrNoSolution):
	default:
		log.Error().Err(err).Int("slot", slot).Str("giver", giver).Msg("miner invocation failed")
	}
	return res
}

func (m *Miner) logReport(r *CycleReport) {
	for _, res := range r.Results {
		switch res.Outcome {
		case Mined:
			log.Info().
				Int("gpu", res.Slot).
				Str("seed", seedPrefix(res)).
				Str("giver", res.Giver).
				Dur("took", res.Duration).
				Bool("submitted", r.Submitted).
				Msgf("GPU %d, Seed %s - Mined!", res.Slot, seedPrefix(res))
		case ParamsUnavailable:
			log.Info().
				Int("gpu", res.Slot).
				Str("giver", res.Giver).
				Msgf("GPU %d, Not mined (pow params unavailable). Retrying...", res.Slot)
		default:
			log.Info().
				Int("gpu", res.Slot).
				Str("giver", res.Giver).
				Msgf("GPU %d, Not mined. Retrying...", res.Slot)
		}
	}
	log.Debug().
		Uint64("cycle", r.Cycle).
		Int("mined", r.Count(Mined)).
		Int("transfers", r.Transfers).
		Dur("duration", r.Duration).
		Msg("cycle complete")
}

func seedPrefix(res SlotResult) string {
	if res.Seed == nil {
		return ""
	}
	s := res.Seed.String()
	if len(s) > 4 {
		return s[:4]
	}
	return s
}
