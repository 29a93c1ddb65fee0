package graph

import (
	"math/rand/v2"

	"github.com/vertex-lab/sybilrank/pkg/models"
)

// function that returns a graph setup based on the graphType. Used in tests.
func SetupGraph(graphType string) *Graph {
	switch graphType {

	case "nil":
		return nil

	case "empty":
		return NewGraph()

	case "triangle":
		g := NewGraph()
		mustAddNodes(g, models.Seed, 0)
		mustAddNodes(g, models.Honest, 1, 2)
		mustAddEdges(g, models.Edge{A: 0, B: 1}, models.Edge{A: 1, B: 2}, models.Edge{A: 2, B: 0})
		return g

	case "no-seeds":
		g := NewGraph()
		mustAddNodes(g, models.Honest, 0, 1, 2)
		mustAddEdges(g, models.Edge{A: 0, B: 1}, models.Edge{A: 1, B: 2}, models.Edge{A: 2, B: 0})
		return g

	case "star":
		// one seed connected to 10 honest nodes
		g := NewGraph()
		mustAddNodes(g, models.Seed, 0)
		for i := uint32(1); i <= 10; i++ {
			mustAddNodes(g, models.Honest, i)
			mustAddEdges(g, models.Edge{A: 0, B: i})
		}
		return g

	case "star-with-isolated":
		g := SetupGraph("star")
		mustAddNodes(g, models.Honest, 11)
		return g

	case "isolated-seed":
		g := SetupGraph("triangle")
		mustAddNodes(g, models.Seed, 3)
		return g

	case "two-communities":
		// an honest region (0-5) and a sybil region (6-9) joined by a single attack edge 5-6
		g := NewGraph()
		mustAddNodes(g, models.Seed, 0, 1)
		mustAddNodes(g, models.Honest, 2, 3, 4, 5)
		mustAddNodes(g, models.Attacker, 6)
		mustAddNodes(g, models.Sybil, 7, 8, 9)

		for i := uint32(0); i <= 5; i++ {
			for j := i + 1; j <= 5; j++ {
				mustAddEdges(g, models.Edge{A: i, B: j})
			}
		}

		for i := uint32(6); i <= 9; i++ {
			for j := i + 1; j <= 9; j++ {
				mustAddEdges(g, models.Edge{A: i, B: j})
			}
		}

		mustAddEdges(g, models.Edge{A: 5, B: 6})
		return g

	case "grouped-square":
		// a 4-cycle 0-1-2-3-0 where 0 and 1 share a group
		g := NewGraph()
		mustAddNodes(g, models.Seed, 0)
		mustAddNodes(g, models.Honest, 1, 2, 3)
		mustAddEdges(g,
			models.Edge{A: 0, B: 1}, models.Edge{A: 1, B: 2},
			models.Edge{A: 2, B: 3}, models.Edge{A: 3, B: 0})

		g.NodeIndex[0].Groups.Add("a")
		g.NodeIndex[1].Groups.Add("a")
		return g

	default:
		return nil // default to nil
	}
}

// generates a random graph of nodesNum nodes, where the first seedsNum are seeds,
// and each node adds edgesPerNode new edges towards random other nodes. There are no self-loops.
func GenerateGraph(nodesNum, seedsNum, edgesPerNode int, rng *rand.Rand) *Graph {
	g := NewGraph()
	if edgesPerNode >= nodesNum || seedsNum > nodesNum {
		return nil
	}

	for i := 0; i < nodesNum; i++ {
		nodeType := models.Honest
		if i < seedsNum {
			nodeType = models.Seed
		}
		mustAddNodes(g, nodeType, uint32(i))
	}

	for i := 0; i < nodesNum; i++ {
		for added := 0; added < edgesPerNode; {
			j := rng.IntN(nodesNum)
			if j == i {
				continue
			}

			n, _ := g.AddEdges(models.Edge{A: uint32(i), B: uint32(j)})
			added += n
			if g.Degree(uint32(i)) >= nodesNum-1 {
				break
			}
		}
	}

	return g
}

func mustAddNodes(g *Graph, nodeType models.NodeType, nodeIDs ...uint32) {
	for _, ID := range nodeIDs {
		if _, err := g.AddNode(ID, nodeType); err != nil {
			panic(err)
		}
	}
}

func mustAddEdges(g *Graph, edges ...models.Edge) {
	if _, err := g.AddEdges(edges...); err != nil {
		panic(err)
	}
}
