package miner

import (
	"sync"
	"time"

	"gonum.org/v1/gonum/stat"
)

// keep this many solve times for the mean/stddev window
const solveWindow = 512

// Stats accumulates counters across cycles. Safe for concurrent use.
type Stats struct {
	mu sync.RWMutex

	startedAt    time.Time
	cycles       uint64
	failedCycles uint64
	mined        uint64
	notMined     uint64
	unavailable  uint64
	transfers    uint64
	solveSeconds []float64
	last         *CycleReport
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Uptime            string         `json:"uptime"`
	Cycles            uint64         `json:"cycles"`
	FailedCycles      uint64         `json:"failedCycles"`
	Mined             uint64         `json:"mined"`
	NotMined          uint64         `json:"notMined"`
	ParamsUnavailable uint64         `json:"paramsUnavailable"`
	TransfersSent     uint64         `json:"transfersSent"`
	MeanSolveSeconds  float64        `json:"meanSolveSeconds"`
	StdSolveSeconds   float64        `json:"stdSolveSeconds"`
	LastCycle         *CycleSnapshot `json:"lastCycle,omitempty"`
}

// CycleSnapshot describes the most recent cycle.
type CycleSnapshot struct {
	Cycle    uint64   `json:"cycle"`
	Started  int64    `json:"started"`
	Duration string   `json:"duration"`
	Slots    []string `json:"slots"`
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

// RecordCycle folds a completed cycle into the counters.
func (s *Stats) RecordCycle(r *CycleReport) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles++
	for _, res := range r.Results {
		switch res.Outcome {
		case Mined:
			s.mined++
			s.solveSeconds = append(s.solveSeconds, res.Duration.Seconds())
		case NotMined:
			s.notMined++
		case ParamsUnavailable:
			s.unavailable++
		}
	}
	if over := len(s.solveSeconds) - solveWindow; over > 0 {
		s.solveSeconds = append(s.solveSeconds[:0], s.solveSeconds[over:]...)
	}
	if r.Submitted {
		s.transfers += uint64(r.Transfers)
	}
	s.last = r
}

// RecordFailure counts a cycle that ended in an error.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	s.failedCycles++
	s.mu.Unlock()
}

// Snapshot copies the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		Uptime:            time.Since(s.startedAt).Truncate(time.Second).String(),
		Cycles:            s.cycles,
		FailedCycles:      s.failedCycles,
		Mined:             s.mined,
		NotMined:          s.notMined,
		ParamsUnavailable: s.unavailable,
		TransfersSent:     s.transfers,
	}
	switch len(s.solveSeconds) {
	case 0:
	case 1:
		snap.MeanSolveSeconds = s.solveSeconds[0]
	default:
		snap.MeanSolveSeconds, snap.StdSolveSeconds = stat.MeanStdDev(s.solveSeconds, nil)
	}

	if s.last != nil {
		slots := make([]string, len(s.last.Results))
		for i, res := range s.last.Results {
			slots[i] = res.Outcome.String()
		}
		snap.LastCycle = &CycleSnapshot{
			Cycle:    s.last.Cycle,
			Started:  s.last.Started.Unix(),
			Duration: s.last.Duration.String(),
			Slots:    slots,
		}
	}
	return snap
}
