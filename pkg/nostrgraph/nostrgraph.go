/*
The nostrgraph package builds a social graph out of Nostr follow lists (kind 3).
Every pubkey that authors a follow list or appears in one becomes a node, and a
follow becomes an undirected edge between the two pubkeys.
*/
package nostrgraph

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/nbd-wtf/go-nostr"
	"github.com/vertex-lab/sybilrank/pkg/graph"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

// the maximum size of a line in an events file. Follow lists can be large.
const maxLineSize = 16 * 1024 * 1024

type Options struct {
	// If true, only reciprocated follows become edges.
	MutualOnly bool

	// If true, events with a wrong ID or signature are discarded.
	VerifySignatures bool
}

// Import is the graph built from the events, with the mapping between pubkeys and nodeIDs.
type Import struct {
	Graph    *graph.Graph
	KeyIndex map[string]uint32

	// Pubkeys[nodeID] is the pubkey of nodeID
	Pubkeys []string

	// the number of events that were discarded: wrong kind, invalid author, forged or outdated
	Discarded int
}

/*
Build() returns the graph of the follow lists in the events.

  - only kind 3 events with a valid author are considered;
  - for each author, only the latest event is used;
  - invalid pubkeys and self follows are dropped;
  - the seeds become Seed nodes, everyone else is Honest.

NodeIDs are assigned in the lexicographic order of the pubkeys, so the same events
always produce the same graph. Every seed must be a valid pubkey present in the graph.
*/
func Build(events []*nostr.Event, seeds []string, opts Options) (*Import, error) {
	if len(seeds) == 0 {
		return nil, models.ErrNoSeeds
	}

	for _, seed := range seeds {
		if !nostr.IsValidPublicKey(seed) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidSeed, seed)
		}
	}

	follows, discarded := latestFollowLists(events, opts.VerifySignatures)
	pubkeys := mapset.NewThreadUnsafeSet[string]()
	for author, followed := range follows {
		followed.Remove(author)
		pubkeys.Add(author)
		pubkeys.Append(followed.ToSlice()...)
	}

	for _, seed := range seeds {
		if !pubkeys.Contains(seed) {
			return nil, fmt.Errorf("%w: %q", ErrSeedNotFound, seed)
		}
	}

	sorted := pubkeys.ToSlice()
	slices.Sort(sorted)

	isSeed := mapset.NewThreadUnsafeSet(seeds...)
	imp := &Import{
		Graph:     graph.NewGraph(),
		KeyIndex:  make(map[string]uint32, len(sorted)),
		Pubkeys:   sorted,
		Discarded: discarded,
	}

	for i, pubkey := range sorted {
		nodeType := models.Honest
		if isSeed.Contains(pubkey) {
			nodeType = models.Seed
		}

		if _, err := imp.Graph.AddNode(uint32(i), nodeType); err != nil {
			return nil, err
		}
		imp.KeyIndex[pubkey] = uint32(i)
	}

	// iterate the authors in order, to add the edges deterministically
	authors := make([]string, 0, len(follows))
	for author := range follows {
		authors = append(authors, author)
	}
	slices.Sort(authors)

	for _, author := range authors {
		edges := make([]models.Edge, 0, follows[author].Cardinality())
		for _, followed := range follows[author].ToSlice() {
			if opts.MutualOnly && !follows.contains(followed, author) {
				continue
			}

			edges = append(edges, models.Edge{A: imp.KeyIndex[author], B: imp.KeyIndex[followed]})
		}

		if _, err := imp.Graph.AddEdges(edges...); err != nil {
			return nil, err
		}
	}

	return imp, nil
}

type followMap map[string]mapset.Set[string]

func (f followMap) contains(follower, followed string) bool {
	set, exists := f[follower]
	return exists && set.Contains(followed)
}

// latestFollowLists() returns the latest follow list of each valid author, and the
// number of events that were discarded.
func latestFollowLists(events []*nostr.Event, verify bool) (followMap, int) {
	latest := make(map[string]*nostr.Event, len(events))
	discarded := 0

	for _, event := range events {
		if event == nil || event.Kind != nostr.KindFollowList || !nostr.IsValidPublicKey(event.PubKey) {
			discarded++
			continue
		}

		if verify && !isAuthentic(event) {
			discarded++
			continue
		}

		old, exists := latest[event.PubKey]
		if !exists {
			latest[event.PubKey] = event
			continue
		}

		discarded++
		if event.CreatedAt > old.CreatedAt {
			latest[event.PubKey] = event
		}
	}

	lists := make(followMap, len(latest))
	for author, event := range latest {
		lists[author] = mapset.NewThreadUnsafeSet(ParsePubkeys(event.Tags)...)
	}
	return lists, discarded
}

// isAuthentic() returns whether the ID and the signature of the event match its content.
func isAuthentic(event *nostr.Event) bool {
	if !event.CheckID() {
		return false
	}

	match, err := event.CheckSignature()
	return err == nil && match
}

// ParsePubkeys returns the slice of unique pubkeys that are correctly listed in the nostr.Tags.
// Badly formatted tags are ignored.
func ParsePubkeys(tags nostr.Tags) []string {
	const followPrefix = "p"

	pubkeys := make([]string, 0, len(tags))
	seen := mapset.NewThreadUnsafeSetWithSize[string](len(tags))
	for _, tag := range tags {

		if len(tag) < 2 {
			continue
		}

		if tag[0] != followPrefix {
			continue
		}

		if !nostr.IsValidPublicKey(tag[1]) {
			continue
		}

		if !seen.Add(tag[1]) {
			continue
		}

		pubkeys = append(pubkeys, tag[1])
	}

	return pubkeys
}

// ReadEvents() reads one JSON event per line. Empty lines are skipped.
func ReadEvents(r io.Reader) ([]*nostr.Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var events []*nostr.Event
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}

		event := &nostr.Event{}
		if err := json.Unmarshal(scanner.Bytes(), event); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidEvent, line, err)
		}
		events = append(events, event)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

//---------------------------------ERROR-CODES---------------------------------

var ErrInvalidSeed = fmt.Errorf("%w: invalid seed pubkey", models.ErrConfiguration)
var ErrSeedNotFound = fmt.Errorf("%w: seed pubkey not found in the follow lists", models.ErrConfiguration)
var ErrInvalidEvent = errors.New("invalid event")
