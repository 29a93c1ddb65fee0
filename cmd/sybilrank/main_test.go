package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vertex-lab/sybilrank/pkg/models"
	"github.com/vertex-lab/sybilrank/pkg/sybilrank"
)

// a follow graph where odell, calle and gigi follow each other, and pip only follows odell.
func writeEvents(t *testing.T) string {
	t.Helper()

	event := func(author string, createdAt string, follows ...string) string {
		tags := make([]string, len(follows))
		for i, pk := range follows {
			tags[i] = `["p","` + pk + `"]`
		}
		return `{"id":"","pubkey":"` + author + `","created_at":` + createdAt + `,"kind":3,"tags":[` + strings.Join(tags, ",") + `],"content":"","sig":""}`
	}

	lines := []string{
		event(odell, "10", calle, gigi),
		event(calle, "10", odell, gigi),
		event(gigi, "10", odell, calle),
		event(pip, "10", odell),
	}

	path := filepath.Join(t.TempDir(), "events.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("WriteFile(): expected nil, got %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	testCases := []struct {
		name      string
		algorithm string
	}{
		{name: "sybilrank", algorithm: sybilrank.NameSybilRank},
		{name: "group sybilrank", algorithm: sybilrank.NameGroupSybilRank},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			config := NewConfig()
			config.EventsFile = writeEvents(t)
			config.SeedPubkeys = []string{odell}
			config.Algorithm = test.algorithm
			config.Community.NumSeedGroups = 1
			config.MetricsFile = filepath.Join(t.TempDir(), "metrics.prom")

			results, pubkeys, err := Run(context.Background(), config)
			if err != nil {
				t.Fatalf("Run(): expected nil, got %v", err)
			}

			if len(results) != 4 || len(pubkeys) != 4 {
				t.Fatalf("Run(): expected 4 results and pubkeys, got %d and %d", len(results), len(pubkeys))
			}

			// pip only has one edge, which is towards the seed
			if pubkeys[results[len(results)-1].ID] == pip {
				t.Errorf("Run(): expected pip not to have the highest rank, got %v", results)
			}

			metrics, err := os.ReadFile(config.MetricsFile)
			if err != nil {
				t.Fatalf("ReadFile(): expected nil, got %v", err)
			}

			if !strings.Contains(string(metrics), "sybilrank_runs_total") {
				t.Errorf("expected the metrics file to contain sybilrank_runs_total")
			}

			PrintLowest(results, pubkeys, config.PrintLowest)
		})
	}

	t.Run("missing seed", func(t *testing.T) {
		config := NewConfig()
		config.EventsFile = writeEvents(t)
		config.SeedPubkeys = []string{"82341f882b6eabcd2ba7f1ef90aad961cf074af15b9ef44a09f9d2a8fbfbe6a2"}

		if _, _, err := Run(context.Background(), config); !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("Run(): expected %v, got %v", models.ErrConfiguration, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		config := NewConfig()
		config.EventsFile = filepath.Join(t.TempDir(), "missing.jsonl")
		config.SeedPubkeys = []string{odell}

		if _, _, err := Run(context.Background(), config); err == nil {
			t.Fatalf("Run(): expected error, got nil")
		}
	})
}
