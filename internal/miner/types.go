package miner

import (
	"math/big"
	"time"
)

// Outcome is what happened in one worker slot during one cycle.
type Outcome int

const (
	// NotMined: the miner ran but wrote no solution (timeout or early exit).
	NotMined Outcome = iota
	// Mined: the miner wrote a solution BOC.
	Mined
	// ParamsUnavailable: get_pow_params failed, the miner was not started.
	ParamsUnavailable
)

func (o Outcome) String() string {
	switch o {
	case Mined:
		return "mined"
	case NotMined:
		return "not mined"
	case ParamsUnavailable:
		return "params unavailable"
	}
	return "unknown"
}

// SlotResult is the outcome of one worker slot. Solution and Seed are set
// only when Outcome is Mined.
type SlotResult struct {
	Slot     int
	Giver    string
	Outcome  Outcome
	Solution []byte
	Seed     *big.Int
	Duration time.Duration
}

// CycleReport summarises one cycle.
type CycleReport struct {
	Cycle     uint64
	Started   time.Time
	Duration  time.Duration
	Results   []SlotResult
	Transfers int
	Submitted bool
}

// Count returns how many results have outcome o.
func (r *CycleReport) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}
