package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vertex-lab/sybilrank/pkg/community"
	"github.com/vertex-lab/sybilrank/pkg/metrics"
	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/nostrgraph"
	"github.com/vertex-lab/sybilrank/pkg/store/redistore"
	"github.com/vertex-lab/sybilrank/pkg/sybilrank"
	"github.com/vertex-lab/sybilrank/pkg/utils/logger"
	"github.com/vertex-lab/sybilrank/pkg/utils/redisutils"
)

func main() {
	fmt.Println("---------------------")
	fmt.Println("SybilRank is running")
	fmt.Println("---------------------")

	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	defer config.CloseLogs()
	config.Print()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go HandleSignals(cancel, config.Log)

	results, pubkeys, err := Run(ctx, config)
	if err != nil {
		config.Log.Error("run failed: %v", err)
		fmt.Printf("\nError: %v\n", err)
		os.Exit(1)
	}

	PrintLowest(results, pubkeys, config.PrintLowest)
}

/*
Run() executes a whole ranking run:
 1. reads (or crawls) the events and builds the follow graph;
 2. synthesizes the seed groups and joint nodes (group-aware algorithm only);
 3. ranks the graph;
 4. saves the results to Redis and the metrics to file, if configured.

It returns the results, most suspicious first, and the pubkeys indexed by nodeID.
*/
func Run(ctx context.Context, config *Config) ([]models.Result, []string, error) {
	if err := config.Validate(); err != nil {
		return nil, nil, err
	}

	registry := metrics.NewRegistry()
	config.Rank.Metrics = registry

	events, err := loadEvents(ctx, config)
	if err != nil {
		return nil, nil, err
	}

	imp, err := nostrgraph.Build(events, config.SeedPubkeys, config.Import)
	if err != nil {
		return nil, nil, err
	}
	config.Log.Info("built graph with %d nodes and %d edges from %d events (%d discarded)",
		imp.Graph.Size(), imp.Graph.EdgeCount(), len(events), imp.Discarded)

	if config.Algorithm == sybilrank.NameGroupSybilRank {
		rng := rand.New(rand.NewPCG(config.RandomSeed, config.RandomSeed))
		report, err := community.Synthesize(imp.Graph, config.Community, rng)
		if err != nil {
			return nil, nil, err
		}

		registry.AddSynthesizedEdges("seed_groups", report.SeedGroupEdges)
		registry.AddSynthesizedEdges("joint_nodes", report.JointNodesEdges)
		registry.AddJointNodes(report.JointNodes)
		config.Log.Info("synthesized %d seed group edges, %d joint nodes with %d edges",
			report.SeedGroupEdges, report.JointNodes, report.JointNodesEdges)
	}

	algo, err := sybilrank.New(config.Algorithm, config.Rank)
	if err != nil {
		return nil, nil, err
	}

	report, err := algo.Rank(ctx, imp.Graph)
	if err != nil {
		return nil, nil, err
	}

	results := imp.Graph.Results()
	if config.RedisAddr != "" {
		if err := save(ctx, config, report, results); err != nil {
			return nil, nil, err
		}
		config.Log.Info("saved %d results in run %q", len(results), config.RunID)
	}

	if config.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(config.MetricsFile, registry.Prometheus()); err != nil {
			return nil, nil, err
		}
	}

	return results, imp.Pubkeys, nil
}

// loadEvents() reads the events from the EventsFile if specified, otherwise it
// crawls the follow lists from the Relays, starting from the seeds.
func loadEvents(ctx context.Context, config *Config) ([]*nostr.Event, error) {
	if config.EventsFile != "" {
		file, err := os.Open(config.EventsFile)
		if err != nil {
			return nil, fmt.Errorf("error opening file \"%v\": %v", config.EventsFile, err)
		}
		defer file.Close()
		return nostrgraph.ReadEvents(file)
	}

	pool := nostr.NewSimplePool(ctx)
	defer nostrgraph.ClosePool(config.Log, pool)

	query := nostrgraph.RelayQuery(pool, config.Relays, 15*time.Second)
	return nostrgraph.Crawl(ctx, query, config.SeedPubkeys, config.Crawl)
}

// save() stores the run summary and the results in Redis.
func save(ctx context.Context, config *Config, report *sybilrank.Report, results []models.Result) error {
	cl := redisutils.SetupClient(config.RedisAddr)
	defer cl.Close()

	store, err := redistore.NewRankStore(cl)
	if err != nil {
		return err
	}

	if err := store.SaveResults(ctx, config.RunID, results); err != nil {
		return err
	}

	return store.SaveRun(ctx, config.RunID, redistore.RunFields{
		Algorithm: report.Algorithm,
		Rounds:    report.Rounds,
		Ranked:    report.Ranked,
		Excluded:  report.Excluded,
		Isolated:  report.Isolated,
		Timestamp: time.Now().Unix(),
	})
}

// PrintLowest() prints the n results with the lowest rank.
func PrintLowest(results []models.Result, pubkeys []string, n int) {
	n = max(min(n, len(results)), 0)
	fmt.Printf("\nLowest %d ranks:\n", n)
	for _, result := range results[:n] {
		fmt.Printf("  %s %v\n", pubkeys[result.ID], result)
	}
}

// HandleSignals() listens for OS signals and triggers context cancellation.
func HandleSignals(cancel context.CancelFunc, l *logger.Aggregate) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)

	<-signalChan // Block until a signal is received
	l.Info(" Signal received. Shutting down...")
	cancel()
}
