/*
The community package synthesizes community structure on an existing graph:
it assigns group labels to nodes and wires intra-group edges with randomized
density. The groups are later consumed by the group-aware ranking.

Every function takes an explicit random number generator, so that a fixed
seed replays exactly the same groups and edges.
*/
package community

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/vertex-lab/sybilrank/pkg/graph"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

const SeedGroupPrefix = "seed_group_"

// The configuration parameters of the synthesis.
type Config struct {
	NumSeedGroups int
	MinRatio      float64
	MaxRatio      float64
	NumJointNodes int
}

// NewConfig() returns a config with default parameters.
func NewConfig() Config {
	return Config{
		NumSeedGroups: 5,
		MinRatio:      0.2,
		MaxRatio:      0.8,
		NumJointNodes: 0,
	}
}

func (c Config) Print() {
	fmt.Println("Community:")
	fmt.Printf("  NumSeedGroups: %d\n", c.NumSeedGroups)
	fmt.Printf("  MinRatio: %v\n", c.MinRatio)
	fmt.Printf("  MaxRatio: %v\n", c.MaxRatio)
	fmt.Printf("  NumJointNodes: %d\n", c.NumJointNodes)
}

// Validate() returns an error wrapping models.ErrConfiguration if the config is invalid.
func (c Config) Validate() error {
	if c.NumSeedGroups <= 0 {
		return fmt.Errorf("%w: number of seed groups must be positive, got %d", models.ErrConfiguration, c.NumSeedGroups)
	}

	if c.NumJointNodes < 0 {
		return fmt.Errorf("%w: number of joint nodes must be non-negative, got %d", models.ErrConfiguration, c.NumJointNodes)
	}

	return validateRatios(c.MinRatio, c.MaxRatio)
}

// Report summarizes what a synthesis changed in the graph.
type Report struct {
	SeedGroupEdges  int
	JointNodes      int
	JointNodesEdges int
}

// Synthesize() groups the seeds and then injects the joint nodes.
func Synthesize(g *graph.Graph, config Config, rng *rand.Rand) (Report, error) {
	if err := config.Validate(); err != nil {
		return Report{}, err
	}

	var report Report
	var err error

	report.SeedGroupEdges, err = AddSeedGroups(g, config.NumSeedGroups, config.MinRatio, config.MaxRatio, rng)
	if err != nil {
		return report, err
	}

	report.JointNodesEdges, err = IncreaseJointNodes(g, config.NumJointNodes, config.MinRatio, config.MaxRatio, rng)
	if err != nil {
		return report, err
	}

	report.JointNodes = config.NumJointNodes
	return report, nil
}

/*
AddSeedGroups() assigns every seed to one of numGroups groups, chosen uniformly
at random. Then, for each seed in insertion order, it draws a ratio r in
[minRatio, maxRatio] and connects the seed to floor(r * groupSize) distinct
members of its group, never itself. The number of partners is capped at
groupSize - 1, so a seed alone in its group gets no edges, and so does a seed
whose draw rounds down to zero.

It returns the number of new edges added to the graph.
*/
func AddSeedGroups(g *graph.Graph, numGroups int, minRatio, maxRatio float64, rng *rand.Rand) (int, error) {
	if err := checkInputs(g, rng, minRatio, maxRatio); err != nil {
		return 0, err
	}

	if numGroups <= 0 {
		return 0, fmt.Errorf("%w: number of seed groups must be positive, got %d", models.ErrConfiguration, numGroups)
	}

	seeds := slices.Collect(g.NodesBy(graph.ByType(models.Seed)))
	if len(seeds) == 0 {
		return 0, models.ErrNoSeeds
	}

	labels := make([]string, numGroups)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s%d", SeedGroupPrefix, i)
	}

	groupOf := make(map[uint32]string, len(seeds))
	members := make(map[string][]*models.Node, numGroups)
	for _, seed := range seeds {
		label := labels[rng.IntN(numGroups)]
		seed.Groups.Add(label)
		groupOf[seed.ID] = label
		members[label] = append(members[label], seed)
	}

	added := 0
	for _, seed := range seeds {
		partners := samplePartners(members[groupOf[seed.ID]], seed.ID, drawRatio(minRatio, maxRatio, rng), rng)
		n, err := g.AddEdges(edgesTo(seed.ID, partners)...)
		if err != nil {
			return added, err
		}
		added += n
	}

	return added, nil
}

/*
IncreaseJointNodes() turns numJoint non-sybil nodes into joint nodes, meaning
nodes that belong to one more group. The groups and their members are those of
the non-sybil nodes when the function is called.

Eligible nodes are Honest or Seed nodes that don't yet belong to every group.
They are drawn uniformly at random without replacement; each drawn node joins a
uniformly chosen group among the ones it's missing, and is connected to a sampled
subset of that group's members, as in AddSeedGroups.

If there are fewer eligible nodes than numJoint, an error wrapping
models.ErrExhaustion is returned and the graph is left unchanged.
It returns the number of new edges added to the graph.
*/
func IncreaseJointNodes(g *graph.Graph, numJoint int, minRatio, maxRatio float64, rng *rand.Rand) (int, error) {
	if err := checkInputs(g, rng, minRatio, maxRatio); err != nil {
		return 0, err
	}

	if numJoint < 0 {
		return 0, fmt.Errorf("%w: number of joint nodes must be non-negative, got %d", models.ErrConfiguration, numJoint)
	}

	if numJoint == 0 {
		return 0, nil
	}

	nonSybils := slices.Collect(g.NodesBy(graph.ByType(models.Honest, models.Seed)))
	groups := models.NewGroupSet()
	for _, node := range nonSybils {
		groups.Append(node.Groups.ToSlice()...)
	}

	labels := groups.ToSlice()
	slices.Sort(labels)

	members := make(map[string][]*models.Node, len(labels))
	for _, label := range labels {
		members[label] = g.GroupMembers(label)
	}

	eligible := make([]*models.Node, 0, len(nonSybils))
	for _, node := range nonSybils {
		if node.Groups.Cardinality() < len(labels) {
			eligible = append(eligible, node)
		}
	}

	if len(eligible) < numJoint {
		return 0, fmt.Errorf("%w: %d joint nodes requested, but only %d of %d non-sybil nodes miss a group",
			models.ErrExhaustion, numJoint, len(eligible), len(nonSybils))
	}

	rng.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})

	added := 0
	for _, node := range eligible[:numJoint] {
		missing := make([]string, 0, len(labels))
		for _, label := range labels {
			if !node.Groups.Contains(label) {
				missing = append(missing, label)
			}
		}

		label := missing[rng.IntN(len(missing))]
		node.Groups.Add(label)

		partners := samplePartners(members[label], node.ID, drawRatio(minRatio, maxRatio, rng), rng)
		n, err := g.AddEdges(edgesTo(node.ID, partners)...)
		if err != nil {
			return added, err
		}
		added += n
	}

	return added, nil
}

// drawRatio() returns a ratio uniformly distributed in [minRatio, maxRatio].
func drawRatio(minRatio, maxRatio float64, rng *rand.Rand) float64 {
	return minRatio + rng.Float64()*(maxRatio-minRatio)
}

/*
samplePartners() samples without replacement floor(ratio * len(members))
distinct members, excluding selfID. The sample size is capped at the number of
members other than selfID, so the result has between 0 and len(members) - 1 elements.
*/
func samplePartners(members []*models.Node, selfID uint32, ratio float64, rng *rand.Rand) []uint32 {
	candidates := make([]uint32, 0, len(members))
	for _, m := range members {
		if m.ID != selfID {
			candidates = append(candidates, m.ID)
		}
	}

	k := PartnersCount(len(members), ratio)
	if k > len(candidates) {
		k = len(candidates)
	}

	// partial Fisher-Yates: the first k positions are a uniform sample
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	return candidates[:k]
}

// PartnersCount() returns floor(ratio * groupSize), clamped to [0, groupSize].
// The clamp happens before the conversion, so huge ratios can't overflow.
func PartnersCount(groupSize int, ratio float64) int {
	k := ratio * float64(groupSize)
	if !(k > 0) {
		return 0
	}

	if k >= float64(groupSize) {
		return groupSize
	}
	return int(k)
}

func edgesTo(nodeID uint32, partners []uint32) []models.Edge {
	edges := make([]models.Edge, len(partners))
	for i, p := range partners {
		edges[i] = models.Edge{A: nodeID, B: p}
	}
	return edges
}

// checkInputs function is used to check whether the inputs are valid.
// If not, an appropriate error is returned
func checkInputs(g *graph.Graph, rng *rand.Rand, minRatio, maxRatio float64) error {
	if err := g.Validate(); err != nil {
		return err
	}

	if rng == nil {
		return ErrNilRNG
	}

	return validateRatios(minRatio, maxRatio)
}

func validateRatios(minRatio, maxRatio float64) error {
	if math.IsNaN(minRatio) || math.IsNaN(maxRatio) || math.IsInf(minRatio, 0) || math.IsInf(maxRatio, 0) {
		return fmt.Errorf("%w: ratios must be finite, got [%v, %v]", models.ErrConfiguration, minRatio, maxRatio)
	}

	if minRatio < 0 || maxRatio < 0 {
		return fmt.Errorf("%w: ratios must be non-negative, got [%v, %v]", models.ErrConfiguration, minRatio, maxRatio)
	}

	if minRatio > maxRatio {
		return fmt.Errorf("%w: min ratio %v is greater than max ratio %v", models.ErrConfiguration, minRatio, maxRatio)
	}

	return nil
}

//---------------------------------ERROR-CODES---------------------------------

var ErrNilRNG = fmt.Errorf("%w: nil random number generator", models.ErrConfiguration)
