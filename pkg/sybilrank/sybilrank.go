/*
The sybilrank package ranks the nodes of a social graph by propagating trust
from the seed nodes. Honest regions are well connected to the seeds and
accumulate trust quickly, while sybil regions are reached only through a few
attack edges and end up with low ranks.

Two algorithms share the same propagation core:
  - SybilRank, where a node splits its trust among its neighbors;
  - GroupSybilRank, where the edges between members of the same group weigh more.

# REFERENCES

[1] Q. Cao, M. Sirivianos, X. Yang, T. Pregueiro; "Aiding the Detection of Fake
Accounts in Large Scale Social Online Services"
URL: https://www.usenix.org/system/files/conference/nsdi12/nsdi12-final42_2.pdf
*/
package sybilrank

import (
	"context"
	"fmt"
	"time"

	"github.com/vertex-lab/sybilrank/pkg/graph"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

const (
	NameSybilRank      = "sybilrank"
	NameGroupSybilRank = "group-sybilrank"
)

// Algorithm ranks the nodes of a graph. Use NewSybilRank or NewGroupSybilRank.
type Algorithm struct {
	name       string
	groupAware bool
	config     Config
}

// NewSybilRank() returns the plain SybilRank algorithm. The GroupEdgeWeight is ignored.
func NewSybilRank(config Config) (*Algorithm, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Algorithm{name: NameSybilRank, config: config}, nil
}

// NewGroupSybilRank() returns the group-aware SybilRank algorithm. When no node
// has groups, it ranks exactly like NewSybilRank.
func NewGroupSybilRank(config Config) (*Algorithm, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Algorithm{name: NameGroupSybilRank, groupAware: true, config: config}, nil
}

// New() returns the algorithm with the specified name.
func New(name string, config Config) (*Algorithm, error) {
	switch name {
	case NameSybilRank:
		return NewSybilRank(config)

	case NameGroupSybilRank:
		return NewGroupSybilRank(config)

	default:
		return nil, fmt.Errorf("%w: unknown algorithm %q", models.ErrConfiguration, name)
	}
}

// Name() returns the name of the algorithm.
func (a *Algorithm) Name() string {
	return a.name
}

// Report summarizes a ranking run.
type Report struct {
	Algorithm string
	Rounds    int

	// the initial trust of each seed. The total initial trust is always 1.
	SeedTrust float64

	// the total trust after each round, or of the running total if accumulative.
	Masses []float64

	// the number of edge slots read while propagating, over all rounds.
	Transfers int64

	Ranked   int
	Excluded int
	Isolated int
	Duration time.Duration
}

// ResetRanks() sets the rank of every node of g to zero and its status to unranked.
func ResetRanks(g *graph.Graph) {
	if g == nil {
		return
	}
	g.ResetRanks()
}

/*
Rank() computes the rank of every node of g and writes it on the nodes.

 1. each seed starts with 1/|seeds| trust;
 2. the trust propagates for Config.RoundsFor(|nodes|) synchronous rounds;
 3. the trust of each node is divided by its degree (see Config.MinDegree);
 4. the ranks are reset and the new ones are written.

Nodes without neighbors receive models.SentinelRank.
The graph is only written when the whole run succeeds: if the context is
cancelled or an error occurs, the previous ranks are left untouched.
*/
func (a *Algorithm) Rank(ctx context.Context, g *graph.Graph) (*Report, error) {
	start := time.Now()
	report, err := a.rank(ctx, g)
	if err != nil {
		a.config.Log.Error("%s: ranking failed: %v", a.name, err)
		a.config.Metrics.ObserveRun(a.name, 0, time.Since(start), err)
		return nil, err
	}

	report.Duration = time.Since(start)
	a.config.Metrics.ObserveRun(a.name, report.Rounds, report.Duration, nil)
	a.config.Metrics.SetNodes(models.StatusRanked, report.Ranked)
	a.config.Metrics.SetNodes(models.StatusExcluded, report.Excluded)
	a.config.Metrics.SetNodes(models.StatusIsolated, report.Isolated)

	a.config.Log.Info("%s: ranked %d nodes (%d excluded, %d isolated) in %d rounds, %v",
		a.name, report.Ranked, report.Excluded, report.Isolated, report.Rounds, report.Duration)

	return report, nil
}

func (a *Algorithm) rank(ctx context.Context, g *graph.Graph) (*Report, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	s, err := newSnapshot(g, a.config, a.groupAware)
	if err != nil {
		return nil, err
	}

	trust, seedTrust, err := initialTrust(s)
	if err != nil {
		return nil, err
	}

	for i, node := range s.nodes {
		if node.Type() == models.Seed && s.degree(i) == 0 {
			a.config.Log.Warn("%s: seed %d has no neighbors, its trust won't propagate", a.name, node.ID)
		}
	}

	rounds := a.config.RoundsFor(s.size())
	p := newPropagator(s, a.config.workersFor(s.size()))

	final, masses, err := p.run(ctx, trust, rounds, a.config.Accumulative)
	if err != nil {
		return nil, err
	}

	ranks, statuses := normalize(s, final, a.config)

	// nothing has been written so far
	g.ResetRanks()
	report := &Report{
		Algorithm: a.name,
		Rounds:    rounds,
		SeedTrust: seedTrust,
		Masses:    masses,
		Transfers: p.transfers.Value(),
	}

	for i, node := range s.nodes {
		node.Rank = ranks[i]
		node.Status = statuses[i]

		switch statuses[i] {
		case models.StatusRanked:
			report.Ranked++
		case models.StatusExcluded:
			report.Excluded++
		case models.StatusIsolated:
			report.Isolated++
		}
	}

	return report, nil
}

// initialTrust() returns the trust vector before the first round, where each
// seed has 1/|seeds| trust and every other node has none.
func initialTrust(s *snapshot) ([]float64, float64, error) {
	seeds := 0
	for _, node := range s.nodes {
		if node.Type() == models.Seed {
			seeds++
		}
	}

	if seeds == 0 {
		return nil, 0, models.ErrNoSeeds
	}

	seedTrust := 1 / float64(seeds)
	trust := make([]float64, s.size())
	for i, node := range s.nodes {
		if node.Type() == models.Seed {
			trust[i] = seedTrust
		}
	}

	return trust, seedTrust, nil
}

// normalize() divides the trust of each node by its degree, and returns the
// ranks and statuses of the nodes.
func normalize(s *snapshot, trust []float64, config Config) ([]float64, []string) {
	ranks := make([]float64, s.size())
	statuses := make([]string, s.size())

	for i := range s.nodes {
		degree := s.degree(i)
		switch {
		case degree == 0:
			ranks[i] = models.SentinelRank
			statuses[i] = models.StatusIsolated

		case degree < config.MinDegree && !config.WeakenUnderMin:
			ranks[i] = 0
			statuses[i] = models.StatusExcluded

		case degree < config.MinDegree:
			ranks[i] = trust[i] / float64(config.MinDegree)
			statuses[i] = models.StatusRanked

		default:
			ranks[i] = trust[i] / float64(degree)
			statuses[i] = models.StatusRanked
		}
	}

	return ranks, statuses
}
