package sybilrank

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/vertex-lab/sybilrank/pkg/graph"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

// TestRankingInvariants uses property-based testing to verify that the trust
// is conserved and the ranks are well defined on random graphs.
func TestRankingInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("trust is conserved in every round", prop.ForAll(
		func(nodesNum, seedsNum, edgesPerNode, workers int, seed uint64) bool {
			g := graph.GenerateGraph(nodesNum, min(seedsNum, nodesNum), min(edgesPerNode, nodesNum-1), rand.New(rand.NewPCG(seed, 1)))

			config := NewConfig()
			config.Workers = workers
			algo, err := NewSybilRank(config)
			if err != nil {
				return false
			}

			report, err := algo.Rank(context.Background(), g)
			if err != nil {
				return false
			}

			for _, mass := range report.Masses {
				if math.Abs(mass-1) > tolerance {
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 80),
		gen.IntRange(1, 5),
		gen.IntRange(0, 4),
		gen.IntRange(1, 8),
		gen.UInt64(),
	))

	properties.Property("every node gets a finite rank and a final status", prop.ForAll(
		func(nodesNum, edgesPerNode, minDegree int, weaken bool, seed uint64) bool {
			g := graph.GenerateGraph(nodesNum, 1, min(edgesPerNode, nodesNum-1), rand.New(rand.NewPCG(seed, 2)))

			config := NewConfig()
			config.MinDegree = minDegree
			config.WeakenUnderMin = weaken
			config.NonlinearDistribution = true
			algo, err := NewSybilRank(config)
			if err != nil {
				return false
			}

			if _, err := algo.Rank(context.Background(), g); err != nil {
				return false
			}

			for _, node := range g.Nodes() {
				if math.IsNaN(node.Rank) || math.IsInf(node.Rank, 0) {
					return false
				}

				switch node.Status {
				case models.StatusIsolated:
					if node.Rank != models.SentinelRank {
						return false
					}
				case models.StatusRanked:
					if node.Rank < 0 {
						return false
					}
				case models.StatusExcluded:
					if weaken || node.Rank != 0 {
						return false
					}
				default:
					return false
				}
			}
			return true
		},
		gen.IntRange(2, 60),
		gen.IntRange(0, 3),
		gen.IntRange(0, 4),
		gen.Bool(),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
