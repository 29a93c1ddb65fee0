package sybilrank

import (
	"fmt"
	"math"
	"runtime"

	"github.com/vertex-lab/sybilrank/pkg/metrics"
	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/utils/logger"
)

// The configuration parameters of the ranking algorithms.
type Config struct {
	// Nodes with fewer neighbors are excluded from the ranking, or weakened
	// if WeakenUnderMin is set.
	MinDegree int

	// If true, the trust of every round is summed up, instead of keeping only the last.
	Accumulative bool

	// If true, nodes under MinDegree stay ranked, but their rank is divided by
	// MinDegree instead of their degree, and they only send out degree/MinDegree
	// of their trust each round (the rest stays with them).
	WeakenUnderMin bool

	// The multiplier of the edges whose endpoints share a group.
	// Only used by the group-aware algorithm.
	GroupEdgeWeight float64

	// If true, the trust is split proportionally to degree^(-NonlinearExponent)
	// of the receivers, instead of uniformly.
	NonlinearDistribution bool
	NonlinearExponent     float64

	// The number of rounds is ceil(RoundFactor * log2(nodes)), unless Rounds is positive.
	RoundFactor float64
	Rounds      int

	// The number of goroutines that propagate the trust in each round.
	Workers int

	Log     *logger.Aggregate
	Metrics *metrics.Registry
}

// NewConfig() returns a config with default parameters.
func NewConfig() Config {
	return Config{
		MinDegree:             0,
		Accumulative:          false,
		WeakenUnderMin:        false,
		GroupEdgeWeight:       1,
		NonlinearDistribution: false,
		NonlinearExponent:     0.5,
		RoundFactor:           1,
		Rounds:                0,
		Workers:               runtime.NumCPU(),
	}
}

func (c Config) Print() {
	fmt.Println("SybilRank:")
	fmt.Printf("  MinDegree: %d\n", c.MinDegree)
	fmt.Printf("  Accumulative: %t\n", c.Accumulative)
	fmt.Printf("  WeakenUnderMin: %t\n", c.WeakenUnderMin)
	fmt.Printf("  GroupEdgeWeight: %v\n", c.GroupEdgeWeight)
	fmt.Printf("  NonlinearDistribution: %t\n", c.NonlinearDistribution)
	fmt.Printf("  NonlinearExponent: %v\n", c.NonlinearExponent)
	fmt.Printf("  RoundFactor: %v\n", c.RoundFactor)
	fmt.Printf("  Rounds: %d\n", c.Rounds)
	fmt.Printf("  Workers: %d\n", c.Workers)
}

// Validate() returns an error wrapping models.ErrConfiguration if the config is invalid.
func (c Config) Validate() error {
	if c.MinDegree < 0 {
		return fmt.Errorf("%w: min degree must be non-negative, got %d", models.ErrConfiguration, c.MinDegree)
	}

	if c.Rounds < 0 {
		return fmt.Errorf("%w: rounds must be non-negative, got %d", models.ErrConfiguration, c.Rounds)
	}

	if c.Rounds == 0 && !(c.RoundFactor > 0) {
		return fmt.Errorf("%w: round factor must be positive, got %v", models.ErrConfiguration, c.RoundFactor)
	}

	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", models.ErrConfiguration, c.Workers)
	}

	if !(c.GroupEdgeWeight > 0) || math.IsInf(c.GroupEdgeWeight, 0) {
		return fmt.Errorf("%w: group edge weight must be positive and finite, got %v", models.ErrConfiguration, c.GroupEdgeWeight)
	}

	if c.NonlinearDistribution && (!(c.NonlinearExponent > 0) || math.IsInf(c.NonlinearExponent, 0)) {
		return fmt.Errorf("%w: nonlinear exponent must be positive and finite, got %v", models.ErrConfiguration, c.NonlinearExponent)
	}

	return nil
}

// RoundsFor() returns the number of propagation rounds for a graph of the specified size.
// It's ceil(RoundFactor * log2(size)), which is the mixing time of short random walks
// in fast-mixing social graphs, and at least 1.
func (c Config) RoundsFor(size int) int {
	if c.Rounds > 0 {
		return c.Rounds
	}

	if size <= 1 {
		return 1
	}

	rounds := int(math.Ceil(c.RoundFactor * math.Log2(float64(size))))
	return max(rounds, 1)
}

// workersFor() returns the number of goroutines to use for a graph of the specified size.
func (c Config) workersFor(size int) int {
	workers := c.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(min(workers, size), 1)
}
