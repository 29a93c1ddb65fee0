package nostrgraph

import (
	"context"
	"fmt"
	"slices"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/nbd-wtf/go-nostr"
	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/utils/logger"
)

var DefaultRelays = []string{
	"wss://purplepag.es",
	"wss://relay.damus.io",
	"wss://relay.primal.net",
	"wss://relay.nostr.band",
	"wss://nostr-pub.wellorder.net",
	"wss://relay.snort.social",
}

// QueryFunc returns the follow lists authored by the pubkeys.
type QueryFunc func(ctx context.Context, pubkeys []string) ([]*nostr.Event, error)

type CrawlConfig struct {
	Log *logger.Aggregate

	// How many hops away from the seeds the follow lists are fetched.
	// With Depth 0 only the follow lists of the seeds are fetched.
	Depth int

	// The maximum number of authors per query.
	BatchSize int

	// The maximum number of follow lists to fetch.
	MaxEvents int
}

func NewCrawlConfig() CrawlConfig {
	return CrawlConfig{
		Depth:     1,
		BatchSize: 500,
		MaxEvents: 100000,
	}
}

func (c CrawlConfig) Print() {
	fmt.Println("Crawl:")
	fmt.Printf("  Depth: %d\n", c.Depth)
	fmt.Printf("  BatchSize: %d\n", c.BatchSize)
	fmt.Printf("  MaxEvents: %d\n", c.MaxEvents)
}

func (c CrawlConfig) Validate() error {
	if c.Depth < 0 {
		return fmt.Errorf("%w: crawl depth must be non-negative, got %d", models.ErrConfiguration, c.Depth)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: crawl batch size must be positive, got %d", models.ErrConfiguration, c.BatchSize)
	}

	if c.MaxEvents <= 0 {
		return fmt.Errorf("%w: crawl max events must be positive, got %d", models.ErrConfiguration, c.MaxEvents)
	}

	return nil
}

/*
Crawl() fetches the follow lists of the seeds, then the follow lists of the
pubkeys they follow, and so on for config.Depth hops (breadth first).
Every pubkey is queried at most once, in batches of config.BatchSize.
The pubkeys of each hop are queried in lexicographic order.

It stops early when config.MaxEvents follow lists have been fetched or when
there are no new pubkeys to query.
*/
func Crawl(ctx context.Context, query QueryFunc, seeds []string, config CrawlConfig) ([]*nostr.Event, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// pubkeys that have been queried or are scheduled for the next hop
	visited := mapset.NewThreadUnsafeSet(seeds...)
	frontier := visited.ToSlice()
	var events []*nostr.Event

	for hop := 0; hop <= config.Depth && len(frontier) > 0; hop++ {
		slices.Sort(frontier)
		var next []string

		for _, batch := range batches(frontier, config.BatchSize) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			fetched, err := query(ctx, batch)
			if err != nil {
				return nil, fmt.Errorf("query at hop %d: %w", hop, err)
			}

			for _, event := range fetched {
				events = append(events, event)
				for _, pubkey := range ParsePubkeys(event.Tags) {
					if visited.Add(pubkey) {
						next = append(next, pubkey)
					}
				}

				if len(events) >= config.MaxEvents {
					config.Log.Warn("Crawl(): reached %d events at hop %d, stopping", len(events), hop)
					return events, nil
				}
			}
		}

		config.Log.Info("Crawl(): hop %d done, %d events so far, %d new pubkeys", hop, len(events), len(next))
		frontier = next
	}

	return events, nil
}

// batches() splits the pubkeys in consecutive batches of at most size pubkeys.
func batches(pubkeys []string, size int) [][]string {
	result := make([][]string, 0, len(pubkeys)/size+1)
	for start := 0; start < len(pubkeys); start += size {
		result = append(result, pubkeys[start:min(start+size, len(pubkeys))])
	}
	return result
}

// RelayQuery() returns a QueryFunc that fetches the follow lists from the relays
// in the pool. Events with a wrong ID or signature are skipped, and only the
// latest follow list of each author is returned.
func RelayQuery(pool *nostr.SimplePool, relays []string, timeout time.Duration) QueryFunc {
	return func(ctx context.Context, pubkeys []string) ([]*nostr.Event, error) {
		if len(pubkeys) == 0 {
			return nil, nil
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		filter := nostr.Filter{
			Kinds:   []int{nostr.KindFollowList},
			Authors: pubkeys,
		}

		latest := make(map[string]*nostr.Event, len(pubkeys))
		for event := range pool.SubManyEose(ctx, relays, nostr.Filters{filter}) {
			if event.Event == nil {
				continue
			}

			if !isAuthentic(event.Event) {
				continue
			}

			old, exists := latest[event.PubKey]
			if !exists || event.CreatedAt > old.CreatedAt {
				latest[event.PubKey] = event.Event
			}
		}

		events := make([]*nostr.Event, 0, len(latest))
		for _, event := range latest {
			events = append(events, event)
		}
		return events, nil
	}
}

// ClosePool() iterates over the relays in the pool and closes all connections.
func ClosePool(logger *logger.Aggregate, pool *nostr.SimplePool) {
	logger.Info("closing relay connections...")
	pool.Relays.Range(func(_ string, relay *nostr.Relay) bool {
		relay.Close()
		return true
	})
}
