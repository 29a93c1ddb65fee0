package sybilrank

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vertex-lab/sybilrank/pkg/utils/counter"
)

// propagator moves the trust along the edges of a snapshot, one synchronous
// round at a time. The receivers are split in contiguous chunks, one per worker,
// and each worker only writes the entries of its own receivers.
type propagator struct {
	s      *snapshot
	chunks [][2]int

	// the number of edge slots read, over all rounds
	transfers *xsync.Counter
}

func newPropagator(s *snapshot, workers int) *propagator {
	return &propagator{
		s:         s,
		chunks:    chunks(s.size(), workers),
		transfers: xsync.NewCounter(),
	}
}

// chunks() splits [0, size) into at most `workers` contiguous ranges of similar length.
func chunks(size, workers int) [][2]int {
	if size == 0 {
		return nil
	}

	workers = max(min(workers, size), 1)
	chunkSize := (size + workers - 1) / workers

	ranges := make([][2]int, 0, workers)
	for start := 0; start < size; start += chunkSize {
		ranges = append(ranges, [2]int{start, min(start+chunkSize, size)})
	}
	return ranges
}

/*
run() propagates the initial trust for the specified number of rounds, and returns
the final trust vector together with the total trust after each round.

If accumulative, the trust of every round is added to a running total, which
starts from the initial trust and is returned instead of the last round.

The context is checked before every round; the initial vector is never modified.
*/
func (p *propagator) run(ctx context.Context, initial []float64, rounds int, accumulative bool) ([]float64, []float64, error) {
	current := make([]float64, len(initial))
	next := make([]float64, len(initial))
	copy(current, initial)

	var total []float64
	if accumulative {
		total = make([]float64, len(initial))
		copy(total, initial)
	}

	masses := make([]float64, 0, rounds)
	for range rounds {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		mass := p.round(current, next)
		current, next = next, current

		if accumulative {
			mass = 0
			for i, t := range current {
				total[i] += t
				mass += total[i]
			}
		}

		masses = append(masses, mass)
	}

	if accumulative {
		return total, masses, nil
	}
	return current, masses, nil
}

// round() computes next from current and returns the total trust of next.
// It returns only after every worker is done, so next can be read right away.
func (p *propagator) round(current, next []float64) float64 {
	mass := counter.NewFloatCounter()

	var wg sync.WaitGroup
	for _, chunk := range p.chunks {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			var chunkMass float64
			var transfers int64
			for v := start; v < end; v++ {
				next[v] = p.receive(v, current)
				chunkMass += next[v]
				transfers += int64(p.s.degree(v))
			}

			mass.Add(chunkMass)
			p.transfers.Add(transfers)
		}(chunk[0], chunk[1])
	}

	wg.Wait()
	return mass.Load()
}

// receive() returns the trust of node v after the round, which is what v kept
// plus what each neighbor sent to it.
func (p *propagator) receive(v int, current []float64) float64 {
	s := p.s
	trust := current[v] * (1 - s.outFractions[v])

	for k := s.offsets[v]; k < s.offsets[v+1]; k++ {
		u := s.neighbors[k]
		trust += current[u] * s.outFractions[u] * s.inShares[k]
	}
	return trust
}
