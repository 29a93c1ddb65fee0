/*
The models package defines the fundamental structures used in this project.

Node:
A node of the social graph. Its type is fixed at creation, while its groups
only grow (during synthesis) and its rank is rewritten by every ranking run.

Edge:
An unordered pair of distinct nodeIDs.

Result:
The record of a ranked node, ready to be exported.
*/
package models

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

// NodeType is the role of a node in the graph. It's assigned when the graph is
// constructed and never changes.
type NodeType string

const (
	Honest   NodeType = "Honest"
	Seed     NodeType = "Seed"
	Attacker NodeType = "Attacker"
	Sybil    NodeType = "Sybil"
)

// Valid() returns whether t is one of the four known node types.
func (t NodeType) Valid() bool {
	switch t {
	case Honest, Seed, Attacker, Sybil:
		return true
	default:
		return false
	}
}

// NonSybil() returns whether t is Honest or Seed.
func (t NodeType) NonSybil() bool {
	return t == Honest || t == Seed
}

const (
	StatusUnranked string = "unranked" // no ranking run has completed since the last reset
	StatusRanked   string = "ranked"
	StatusExcluded string = "excluded" // degree below the minimum, left out of the ranking
	StatusIsolated string = "isolated" // degree zero, assigned the SentinelRank
)

// SentinelRank is the rank assigned to nodes without neighbors. Every
// other rank is non-negative, so isolated nodes are always ranked last.
const SentinelRank float64 = -1

// GroupSet is the set of group labels of a node.
type GroupSet mapset.Set[string]

// NewGroupSet() returns an empty GroupSet with the specified labels.
func NewGroupSet(labels ...string) GroupSet {
	return mapset.NewThreadUnsafeSet(labels...)
}

// Node represent the basic structure of a node in the graph.
type Node struct {
	ID     uint32
	Groups GroupSet
	Rank   float64
	Status string

	nodeType NodeType
}

// NewNode() returns a node with no groups and no rank.
func NewNode(ID uint32, nodeType NodeType) *Node {
	return &Node{
		ID:       ID,
		Groups:   NewGroupSet(),
		Status:   StatusUnranked,
		nodeType: nodeType,
	}
}

// Type() returns the immutable type of the node.
func (n *Node) Type() NodeType {
	return n.nodeType
}

// SharesGroup() returns whether the two nodes have at least one group in common.
func (n *Node) SharesGroup(other *Node) bool {
	if n.Groups == nil || other.Groups == nil {
		return false
	}

	small, big := n.Groups, other.Groups
	if small.Cardinality() > big.Cardinality() {
		small, big = big, small
	}

	shared := false
	small.Each(func(label string) bool {
		shared = big.Contains(label)
		return shared // returning true stops the iteration
	})
	return shared
}

// Edge is an undirected relationship between the nodes A and B.
type Edge struct {
	A, B uint32
}

// Canonical() returns the edge with the smaller nodeID first.
func (e Edge) Canonical() Edge {
	if e.A > e.B {
		return Edge{A: e.B, B: e.A}
	}
	return e
}

// Result is the exported record of a node after a ranking run.
type Result struct {
	ID     uint32   `json:"id"`
	Type   NodeType `json:"type"`
	Rank   float64  `json:"rank"`
	Status string   `json:"status"`
}

// String() formats the result as a row of a table.
func (r Result) String() string {
	return fmt.Sprintf("%d\t%s\t%.8f\t%s", r.ID, r.Type, r.Rank, r.Status)
}

//--------------------------ERROR-CODES--------------------------

// the taxonomy. Every error returned by this module wraps one of these.
var (
	ErrConfiguration   = errors.New("invalid configuration")
	ErrExhaustion      = errors.New("exhausted eligible candidates")
	ErrDegenerateGraph = errors.New("degenerate graph")
)

var ErrNilGraph = fmt.Errorf("%w: graph pointer is nil", ErrDegenerateGraph)
var ErrEmptyGraph = fmt.Errorf("%w: graph is empty", ErrDegenerateGraph)
var ErrNoSeeds = fmt.Errorf("%w: graph has no seed nodes", ErrDegenerateGraph)
var ErrNodeNotFound = fmt.Errorf("%w: node not found in the graph", ErrDegenerateGraph)
var ErrNodeAlreadyInGraph = fmt.Errorf("%w: node already in the graph", ErrDegenerateGraph)
var ErrSelfLoop = fmt.Errorf("%w: a node cannot be connected to itself", ErrDegenerateGraph)
var ErrInvalidNodeType = fmt.Errorf("%w: invalid node type", ErrConfiguration)
