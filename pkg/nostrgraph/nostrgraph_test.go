package nostrgraph

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/vertex-lab/sybilrank/pkg/models"
)

// in lexicographic order, hence nodeIDs 0, 1, 2, 3
const odell = "04c915daefee38317fa734444acee390a8269fe5810b2241e5e6dd343dfbecc9"
const calle = "50d94fc2d8580c682b071a542f8b1e31a200b0508bab95a33bef0855df281d63"
const gigi = "6e468422dfb74a5738702a8823b9b28168abab8655faacb6853cd0ee15deee93"
const pip = "f683e87035f7ad4f44e0b98cfbd9537e16455a92cd38cefc4cb31db7557f5ef2"

// A list of fake events used for testing.
var badlyFormattedEvent = nostr.Event{
	PubKey:    odell,
	Kind:      nostr.KindFollowList,
	CreatedAt: nostr.Timestamp(10),
	Tags: nostr.Tags{
		nostr.Tag{"p", gigi},
		nostr.Tag{"e", calle},       // not a p tag
		nostr.Tag{"p", pip + "xxx"}, // pubkey not valid
		nostr.Tag{"p"},              // too short
		nostr.Tag{"p", calle},
		nostr.Tag{"p", gigi}, // added two times
	},
}
var outdatedEvent = nostr.Event{
	PubKey:    odell,
	Kind:      nostr.KindFollowList,
	CreatedAt: nostr.Timestamp(5),
	Tags:      nostr.Tags{nostr.Tag{"p", pip}},
}
var autoFollowEvent = nostr.Event{
	PubKey:    calle,
	Kind:      nostr.KindFollowList,
	CreatedAt: nostr.Timestamp(11),
	Tags: nostr.Tags{
		nostr.Tag{"p", odell},
		nostr.Tag{"p", calle}, // autofollow
		nostr.Tag{"p", gigi}},
}
var noteEvent = nostr.Event{
	PubKey:    pip,
	Kind:      nostr.KindTextNote,
	CreatedAt: nostr.Timestamp(12),
	Tags:      nostr.Tags{nostr.Tag{"p", odell}},
}
var invalidAuthorEvent = nostr.Event{
	PubKey:    "xxx",
	Kind:      nostr.KindFollowList,
	CreatedAt: nostr.Timestamp(12),
	Tags:      nostr.Tags{nostr.Tag{"p", odell}},
}

var testEvents = []*nostr.Event{&badlyFormattedEvent, &outdatedEvent, &autoFollowEvent, &noteEvent, &invalidAuthorEvent}

func TestParsePubkeys(t *testing.T) {
	testCases := []struct {
		name            string
		event           *nostr.Event
		expectedPubkeys []string
	}{
		{
			name:            "empty tags",
			event:           &nostr.Event{Tags: nostr.Tags{}},
			expectedPubkeys: []string{},
		},
		{
			name:            "badly formatted tags",
			event:           &badlyFormattedEvent,
			expectedPubkeys: []string{gigi, calle},
		},
		{
			name:            "autofollow is kept",
			event:           &autoFollowEvent,
			expectedPubkeys: []string{odell, calle, gigi},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			pubkeys := ParsePubkeys(test.event.Tags)
			if !reflect.DeepEqual(pubkeys, test.expectedPubkeys) {
				t.Errorf("ParsePubkeys(): expected %v, got %v", test.expectedPubkeys, pubkeys)
			}
		})
	}
}

func TestParsePubkeysLargeList(t *testing.T) {
	const unique, copies = 2000, 10

	pubkeys := make([]string, unique)
	for i := range pubkeys {
		pk, err := nostr.GetPublicKey(nostr.GeneratePrivateKey())
		if err != nil {
			t.Fatalf("GetPublicKey(): expected nil, got %v", err)
		}
		pubkeys[i] = pk
	}

	// every pubkey is followed several times, interleaved with the others
	tags := make(nostr.Tags, 0, unique*copies)
	for c := 0; c < copies; c++ {
		for _, pk := range pubkeys {
			tags = append(tags, nostr.Tag{"p", pk})
		}
	}

	parsed := ParsePubkeys(tags)
	if !reflect.DeepEqual(parsed, pubkeys) {
		t.Fatalf("ParsePubkeys(): expected %d pubkeys in follow order, got %d", len(pubkeys), len(parsed))
	}
}

func BenchmarkParsePubkeys(b *testing.B) {
	tags := make(nostr.Tags, 0, 10000)
	for len(tags) < 10000 {
		pk, err := nostr.GetPublicKey(nostr.GeneratePrivateKey())
		if err != nil {
			b.Fatalf("GetPublicKey(): expected nil, got %v", err)
		}
		tags = append(tags, nostr.Tag{"p", pk}, nostr.Tag{"p", pk})
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ParsePubkeys(tags)
	}
}

func TestBuild(t *testing.T) {
	t.Run("errors", func(t *testing.T) {
		testCases := []struct {
			name          string
			seeds         []string
			expectedError error
		}{
			{
				name:          "no seeds",
				seeds:         []string{},
				expectedError: models.ErrNoSeeds,
			},
			{
				name:          "invalid seed",
				seeds:         []string{odell, "xxx"},
				expectedError: ErrInvalidSeed,
			},
			{
				name:          "seed not found",
				seeds:         []string{pip},
				expectedError: ErrSeedNotFound,
			},
		}

		for _, test := range testCases {
			t.Run(test.name, func(t *testing.T) {
				imp, err := Build(testEvents, test.seeds, Options{})
				if !errors.Is(err, test.expectedError) {
					t.Fatalf("Build(): expected %v, got %v", test.expectedError, err)
				}

				if imp != nil {
					t.Errorf("Build(): expected nil import, got %v", imp)
				}
			})
		}
	})

	t.Run("follow graph", func(t *testing.T) {
		imp, err := Build(testEvents, []string{odell}, Options{})
		if err != nil {
			t.Fatalf("Build(): expected nil, got %v", err)
		}

		expectedPubkeys := []string{odell, calle, gigi}
		if !reflect.DeepEqual(imp.Pubkeys, expectedPubkeys) {
			t.Fatalf("expected pubkeys %v, got %v", expectedPubkeys, imp.Pubkeys)
		}

		for ID, pubkey := range imp.Pubkeys {
			if imp.KeyIndex[pubkey] != uint32(ID) {
				t.Errorf("expected KeyIndex[%s] = %d, got %d", pubkey, ID, imp.KeyIndex[pubkey])
			}
		}

		if imp.Discarded != 3 {
			t.Errorf("expected 3 discarded events, got %d", imp.Discarded)
		}

		g := imp.Graph
		if g.EdgeCount() != 3 {
			t.Errorf("expected 3 edges, got %d", g.EdgeCount())
		}

		for _, edge := range [][2]uint32{{0, 1}, {0, 2}, {1, 2}} {
			if !g.ContainsEdge(edge[0], edge[1]) {
				t.Errorf("expected edge %v", edge)
			}
		}

		if g.NodeIndex[0].Type() != models.Seed || g.NodeIndex[1].Type() != models.Honest {
			t.Errorf("expected odell to be the only seed")
		}
	})

	t.Run("mutual only", func(t *testing.T) {
		imp, err := Build(testEvents, []string{odell}, Options{MutualOnly: true})
		if err != nil {
			t.Fatalf("Build(): expected nil, got %v", err)
		}

		g := imp.Graph
		if g.Size() != 3 || g.EdgeCount() != 1 {
			t.Fatalf("expected 3 nodes and 1 edge, got %d and %d", g.Size(), g.EdgeCount())
		}

		if !g.ContainsEdge(0, 1) {
			t.Errorf("expected the mutual follow odell-calle")
		}

		if g.Degree(2) != 0 {
			t.Errorf("expected gigi to be isolated, got degree %d", g.Degree(2))
		}
	})
}

func TestVerifySignatures(t *testing.T) {
	sk := nostr.GeneratePrivateKey()
	pk, err := nostr.GetPublicKey(sk)
	if err != nil {
		t.Fatalf("GetPublicKey(): expected nil, got %v", err)
	}

	signed := &nostr.Event{
		PubKey:    pk,
		Kind:      nostr.KindFollowList,
		CreatedAt: nostr.Timestamp(100),
		Tags:      nostr.Tags{nostr.Tag{"p", odell}},
	}
	if err := signed.Sign(sk); err != nil {
		t.Fatalf("Sign(): expected nil, got %v", err)
	}

	// unsigned, so it's discarded
	forged := &nostr.Event{
		PubKey:    calle,
		Kind:      nostr.KindFollowList,
		CreatedAt: nostr.Timestamp(100),
		Tags:      nostr.Tags{nostr.Tag{"p", gigi}},
	}

	imp, err := Build([]*nostr.Event{signed, forged}, []string{odell}, Options{VerifySignatures: true})
	if err != nil {
		t.Fatalf("Build(): expected nil, got %v", err)
	}

	if imp.Discarded != 1 {
		t.Errorf("expected 1 discarded event, got %d", imp.Discarded)
	}

	if _, exists := imp.KeyIndex[calle]; exists {
		t.Errorf("expected calle to be discarded")
	}

	if imp.Graph.Size() != 2 || !imp.Graph.ContainsEdge(imp.KeyIndex[pk], imp.KeyIndex[odell]) {
		t.Errorf("expected the edge between the signer and odell")
	}
}

func TestReadEvents(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		input := `{"id":"","pubkey":"` + odell + `","created_at":10,"kind":3,"tags":[["p","` + calle + `"]],"content":"","sig":""}

{"id":"","pubkey":"` + calle + `","created_at":11,"kind":3,"tags":[],"content":"","sig":""}
`
		events, err := ReadEvents(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadEvents(): expected nil, got %v", err)
		}

		if len(events) != 2 {
			t.Fatalf("ReadEvents(): expected 2 events, got %d", len(events))
		}

		if events[0].PubKey != odell || events[0].Kind != nostr.KindFollowList {
			t.Errorf("ReadEvents(): unexpected event %v", events[0])
		}

		if !reflect.DeepEqual(ParsePubkeys(events[0].Tags), []string{calle}) {
			t.Errorf("ReadEvents(): unexpected tags %v", events[0].Tags)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ReadEvents(strings.NewReader("{}\nnot json\n"))
		if !errors.Is(err, ErrInvalidEvent) {
			t.Fatalf("ReadEvents(): expected %v, got %v", ErrInvalidEvent, err)
		}
	})
}
