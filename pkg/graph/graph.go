// The graph package defines the in-memory undirected graph shared by the
// community synthesizer and the ranking engine.
package graph

import (
	"fmt"
	"iter"
	"slices"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

type NodeSet mapset.Set[uint32]

// Graph is an undirected graph of typed nodes. It's not safe for concurrent
// mutation; it's mutated by the synthesis routines, and only read during a ranking run.
type Graph struct {

	// the nodes in insertion order, which is the iteration order of the graph
	nodes []*models.Node

	// a map that associates each nodeID with its node
	NodeIndex map[uint32]*models.Node

	// a map that associates each nodeID with the set of its neighbors
	Adjacency map[uint32]NodeSet

	edgeCount int
}

// NewGraph() creates and returns a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:     []*models.Node{},
		NodeIndex: make(map[uint32]*models.Node),
		Adjacency: make(map[uint32]NodeSet),
	}
}

// Validate() returns an error if the graph is nil or has no nodes.
func (g *Graph) Validate() error {
	if g == nil {
		return models.ErrNilGraph
	}

	if len(g.nodes) == 0 {
		return models.ErrEmptyGraph
	}

	return nil
}

// AddNode() adds a node of the specified type to the graph.
func (g *Graph) AddNode(nodeID uint32, nodeType models.NodeType) (*models.Node, error) {
	if g == nil {
		return nil, models.ErrNilGraph
	}

	if !nodeType.Valid() {
		return nil, fmt.Errorf("%w: %q", models.ErrInvalidNodeType, nodeType)
	}

	if _, exist := g.NodeIndex[nodeID]; exist {
		return nil, fmt.Errorf("%w: %d", models.ErrNodeAlreadyInGraph, nodeID)
	}

	node := models.NewNode(nodeID, nodeType)
	g.nodes = append(g.nodes, node)
	g.NodeIndex[nodeID] = node
	g.Adjacency[nodeID] = mapset.NewThreadUnsafeSet[uint32]()
	return node, nil
}

// AddEdges() adds the undirected edges to the graph and returns how many of
// them were new. The whole batch is validated first, so if an edge is a
// self-loop or references an unknown node, the graph is left unchanged.
func (g *Graph) AddEdges(edges ...models.Edge) (int, error) {
	if g == nil {
		return 0, models.ErrNilGraph
	}

	for _, edge := range edges {
		if edge.A == edge.B {
			return 0, fmt.Errorf("%w: edge %v", models.ErrSelfLoop, edge)
		}

		if _, exist := g.NodeIndex[edge.A]; !exist {
			return 0, fmt.Errorf("%w: %d in edge %v", models.ErrNodeNotFound, edge.A, edge)
		}

		if _, exist := g.NodeIndex[edge.B]; !exist {
			return 0, fmt.Errorf("%w: %d in edge %v", models.ErrNodeNotFound, edge.B, edge)
		}
	}

	added := 0
	for _, edge := range edges {
		// Add returns false if the neighbor was already there
		if g.Adjacency[edge.A].Add(edge.B) {
			g.Adjacency[edge.B].Add(edge.A)
			added++
		}
	}

	g.edgeCount += added
	return added, nil
}

// ContainsNode() returns whether nodeID is found in the graph.
func (g *Graph) ContainsNode(nodeID uint32) bool {
	if g == nil {
		return false
	}

	_, exist := g.NodeIndex[nodeID]
	return exist
}

// ContainsEdge() returns whether the undirected edge {a, b} is in the graph.
func (g *Graph) ContainsEdge(a, b uint32) bool {
	if g == nil {
		return false
	}

	neighbors, exist := g.Adjacency[a]
	if !exist {
		return false
	}

	return neighbors.Contains(b)
}

// NodeByID() retrieves a node by its nodeID.
func (g *Graph) NodeByID(nodeID uint32) (*models.Node, error) {
	if g == nil {
		return nil, models.ErrNilGraph
	}

	node, exist := g.NodeIndex[nodeID]
	if !exist {
		return nil, fmt.Errorf("%w: %d", models.ErrNodeNotFound, nodeID)
	}

	return node, nil
}

// Neighbors() returns the neighbors of nodeID, sorted in ascending order.
func (g *Graph) Neighbors(nodeID uint32) ([]uint32, error) {
	if g == nil {
		return nil, models.ErrNilGraph
	}

	neighbors, exist := g.Adjacency[nodeID]
	if !exist {
		return nil, fmt.Errorf("%w: %d", models.ErrNodeNotFound, nodeID)
	}

	IDs := neighbors.ToSlice()
	slices.Sort(IDs)
	return IDs, nil
}

// Degree() returns the number of neighbors of nodeID (0 if not found).
func (g *Graph) Degree(nodeID uint32) int {
	if g == nil {
		return 0
	}

	neighbors, exist := g.Adjacency[nodeID]
	if !exist {
		return 0
	}

	return neighbors.Cardinality()
}

// Size() returns the number of nodes in the graph.
func (g *Graph) Size() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// EdgeCount() returns the number of undirected edges in the graph.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return g.edgeCount
}

// Nodes() returns all the nodes in insertion order.
// The returned slice must not be modified.
func (g *Graph) Nodes() []*models.Node {
	if g == nil {
		return nil
	}
	return g.nodes
}

// NodesBy() returns a lazy sequence of the nodes that satisfy the predicate,
// in insertion order.
func (g *Graph) NodesBy(pred func(*models.Node) bool) iter.Seq[*models.Node] {
	return func(yield func(*models.Node) bool) {
		if g == nil {
			return
		}

		for _, node := range g.nodes {
			if !pred(node) {
				continue
			}

			if !yield(node) {
				return
			}
		}
	}
}

// ByType() returns a predicate that matches the nodes of any of the types.
func ByType(types ...models.NodeType) func(*models.Node) bool {
	return func(n *models.Node) bool {
		return slices.Contains(types, n.Type())
	}
}

// InGroup() returns a predicate that matches the members of the group.
func InGroup(label string) func(*models.Node) bool {
	return func(n *models.Node) bool {
		return n.Groups != nil && n.Groups.Contains(label)
	}
}

// GroupMembers() returns the nodes whose groups contain the label, in insertion order.
func (g *Graph) GroupMembers(label string) []*models.Node {
	return slices.Collect(g.NodesBy(InGroup(label)))
}

// Groups() returns all the group labels used in the graph, sorted.
func (g *Graph) Groups() []string {
	labels := mapset.NewThreadUnsafeSet[string]()
	for _, node := range g.Nodes() {
		if node.Groups != nil {
			labels.Append(node.Groups.ToSlice()...)
		}
	}

	sorted := labels.ToSlice()
	slices.Sort(sorted)
	return sorted
}

// ResetRanks() sets the rank of every node to zero and its status to unranked.
func (g *Graph) ResetRanks() {
	for _, node := range g.Nodes() {
		node.Rank = 0
		node.Status = models.StatusUnranked
	}
}

// RankMap() returns the ranks of the nodes that are ranked or isolated.
func (g *Graph) RankMap() models.RankMap {
	ranks := make(models.RankMap, g.Size())
	for _, node := range g.Nodes() {
		if node.Status == models.StatusRanked || node.Status == models.StatusIsolated {
			ranks[node.ID] = node.Rank
		}
	}
	return ranks
}

// Results() returns the records of the ranked and isolated nodes, sorted by
// rank in ascending order (most suspicious first). Ties are broken by nodeID.
// Excluded and unranked nodes are left out.
func (g *Graph) Results() []models.Result {
	results := make([]models.Result, 0, g.Size())
	for _, node := range g.Nodes() {
		if node.Status != models.StatusRanked && node.Status != models.StatusIsolated {
			continue
		}

		results = append(results, models.Result{
			ID:     node.ID,
			Type:   node.Type(),
			Rank:   node.Rank,
			Status: node.Status,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Rank != results[j].Rank {
			return results[i].Rank < results[j].Rank
		}
		return results[i].ID < results[j].ID
	})

	return results
}
