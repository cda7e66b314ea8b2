package givers

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var ErrNotEnoughGivers = errors.New("not enough givers")

// Allocator draws distinct givers for the worker slots of one cycle.
type Allocator struct {
	pool []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAllocator builds an allocator over pool. A nil rng means a randomly
// seeded one.
func NewAllocator(pool []string, rng *rand.Rand) *Allocator {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Allocator{pool: append([]string(nil), pool...), rng: rng}
}

// Size is the number of candidates.
func (a *Allocator) Size() int {
	return len(a.pool)
}

// Allocate picks n givers without replacement, each uniformly from what is
// left. It fails instead of repeating when n exceeds the pool.
func (a *Allocator) Allocate(n int) ([]string, error) {
	if n <= 0 || n > len(a.pool) {
		return nil, fmt.Errorf("%w: need %d, pool has %d", ErrNotEnoughGivers, n, len(a.pool))
	}

	remaining := append([]string(nil), a.pool...)
	picked := make([]string, 0, n)

	a.mu.Lock()
	defer a.mu.Unlock()
	for range n {
		i := a.rng.IntN(len(remaining))
		picked = append(picked, remaining[i])
		last := len(remaining) - 1
		remaining[i] = remaining[last]
		remaining = remaining[:last]
	}
	return picked, nil
}
