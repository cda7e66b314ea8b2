package miner

import (
	"context"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Run repeats cycles until ctx is cancelled. Successful cycles follow each
// other immediately. A failed cycle is logged and followed by an exponential
// backoff between BackoffMin and BackoffMax that resets on the next success.
func (m *Miner) Run(ctx context.Context) error {
	log.Info().
		Int("slots", m.cfg.Slots).
		Bool("concurrent", m.cfg.Concurrent).
		Msg("mining loop started")

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := m.safeCycle(ctx)
		if err == nil {
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		m.stats.RecordFailure()
		wait := m.backoff(failures)
		failures++

		log.Error().
			Stack().
			Err(err).
			Int("consecutive_failures", failures).
			Dur("backoff", wait).
			Msg("cycle failed")

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (m *Miner) safeCycle(ctx context.Context) (report *CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("cycle panicked: %v", r)
		}
	}()
	return m.RunCycle(ctx)
}

func (m *Miner) backoff(failures int) time.Duration {
	return retryablehttp.DefaultBackoff(m.cfg.BackoffMin, m.cfg.BackoffMax, failures, nil)
}
