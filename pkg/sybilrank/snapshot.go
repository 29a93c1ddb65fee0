package sybilrank

import (
	"math"

	"github.com/vertex-lab/sybilrank/pkg/graph"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

// snapshot is a read-only, index-based copy of the graph topology, with the
// share of trust that flows along each edge computed once before the rounds start.
// The neighbors of node i are neighbors[offsets[i]:offsets[i+1]], sorted by nodeID.
type snapshot struct {
	nodes     []*models.Node
	offsets   []int
	neighbors []int

	// inShares[k] is the fraction of the outgoing trust of neighbors[k] that
	// goes to the node owning slot k. For every sender the fractions sum to 1.
	inShares []float64

	// the fraction of its trust that a node sends out in a round. The rest stays with it.
	outFractions []float64
}

func (s *snapshot) size() int {
	return len(s.nodes)
}

func (s *snapshot) degree(i int) int {
	return s.offsets[i+1] - s.offsets[i]
}

func (s *snapshot) edgeSlots() int {
	return len(s.neighbors)
}

// newSnapshot() builds the snapshot of g. The edge weight from u to v is
// the receiver weight of v, times config.GroupEdgeWeight if groupAware and u
// and v share a group. The weights of each sender are then normalized to sum to 1.
func newSnapshot(g *graph.Graph, config Config, groupAware bool) (*snapshot, error) {
	nodes := g.Nodes()
	index := make(map[uint32]int, len(nodes))
	for i, node := range nodes {
		index[node.ID] = i
	}

	s := &snapshot{
		nodes:        nodes,
		offsets:      make([]int, len(nodes)+1),
		neighbors:    make([]int, 0, 2*g.EdgeCount()),
		outFractions: make([]float64, len(nodes)),
	}

	for i, node := range nodes {
		neighborIDs, err := g.Neighbors(node.ID)
		if err != nil {
			return nil, err
		}

		for _, ID := range neighborIDs {
			j, exist := index[ID]
			if !exist {
				return nil, models.ErrNodeNotFound
			}
			s.neighbors = append(s.neighbors, j)
		}
		s.offsets[i+1] = len(s.neighbors)
	}

	receiverWeights := make([]float64, len(nodes))
	for i := range nodes {
		receiverWeights[i] = receiverWeight(s.degree(i), config)
		s.outFractions[i] = outFraction(s.degree(i), config)
	}

	weight := func(u, v int) float64 {
		w := receiverWeights[v]
		if groupAware && nodes[u].SharesGroup(nodes[v]) {
			w *= config.GroupEdgeWeight
		}
		return w
	}

	// the total outgoing weight of each sender
	totals := make([]float64, len(nodes))
	for u := range nodes {
		for _, v := range s.neighbors[s.offsets[u]:s.offsets[u+1]] {
			totals[u] += weight(u, v)
		}
	}

	s.inShares = make([]float64, len(s.neighbors))
	for v := range nodes {
		for k := s.offsets[v]; k < s.offsets[v+1]; k++ {
			u := s.neighbors[k]
			s.inShares[k] = weight(u, v) / totals[u] // totals[u] > 0 because u has v as a neighbor
		}
	}

	return s, nil
}

// receiverWeight() returns the unnormalized weight of the edges towards a node
// with the specified degree. Uniform in the linear case, degree^(-exponent) otherwise.
func receiverWeight(degree int, config Config) float64 {
	if !config.NonlinearDistribution || degree == 0 {
		return 1
	}
	return math.Pow(float64(degree), -config.NonlinearExponent)
}

// outFraction() returns the fraction of its trust that a node of the specified
// degree sends to its neighbors in each round. Nodes without neighbors keep
// all of their trust, and weakened nodes only send degree / MinDegree of it.
func outFraction(degree int, config Config) float64 {
	if degree == 0 {
		return 0
	}

	if config.WeakenUnderMin && degree < config.MinDegree {
		return float64(degree) / float64(config.MinDegree)
	}

	return 1
}
