package community

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

// TestSamplingInvariants uses property-based testing to verify that sampled
// partners are bounded, distinct and never include the node itself.
func TestSamplingInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("partners are between 0 and m-1, distinct, without self", prop.ForAll(
		func(groupSize int, selfIndex int, ratio float64, seed uint64) bool {
			members := make([]*models.Node, groupSize)
			for i := range members {
				members[i] = models.NewNode(uint32(i), models.Seed)
			}

			selfID := uint32(selfIndex % groupSize)
			partners := samplePartners(members, selfID, ratio, rand.New(rand.NewPCG(seed, 0)))

			if len(partners) > groupSize-1 {
				return false
			}

			if len(partners) > PartnersCount(groupSize, ratio) {
				return false
			}

			seen := make(map[uint32]bool, len(partners))
			for _, p := range partners {
				if p == selfID || seen[p] || int(p) >= groupSize {
					return false
				}
				seen[p] = true
			}
			return true
		},
		gen.IntRange(1, 60),
		gen.IntRange(0, 1000),
		gen.OneGenOf(
			gen.Float64Range(0, 1.5),
			gen.Float64Range(1.5, math.MaxFloat64),
			gen.OneConstOf(math.Inf(1), math.NaN()),
		),
		gen.UInt64(),
	))

	properties.Property("ratios of at least 1 connect every other member", prop.ForAll(
		func(groupSize int, ratio float64, seed uint64) bool {
			members := make([]*models.Node, groupSize)
			for i := range members {
				members[i] = models.NewNode(uint32(i), models.Seed)
			}

			partners := samplePartners(members, 0, ratio, rand.New(rand.NewPCG(seed, 0)))
			return len(partners) == groupSize-1
		},
		gen.IntRange(1, 60),
		gen.OneGenOf(
			gen.Float64Range(1, 1e6),
			gen.Float64Range(1e6, math.MaxFloat64),
		),
		gen.UInt64(),
	))

	properties.Property("synthesis never creates self loops", prop.ForAll(
		func(seedsNum, honestNum, numGroups int, minRatio, span float64, seed uint64) bool {
			g := seededGraph(seedsNum, honestNum, 2)
			rng := rand.New(rand.NewPCG(seed, seed))

			if _, err := AddSeedGroups(g, numGroups, minRatio, minRatio+span, rng); err != nil {
				return false
			}

			// at most one joint node per honest node is always possible
			if _, err := IncreaseJointNodes(g, honestNum/2, minRatio, minRatio+span, rng); err != nil {
				return false
			}

			for _, node := range g.Nodes() {
				if g.ContainsEdge(node.ID, node.ID) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.IntRange(0, 30),
		gen.IntRange(1, 6),
		gen.Float64Range(0, 0.5),
		gen.Float64Range(0, 0.5),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
