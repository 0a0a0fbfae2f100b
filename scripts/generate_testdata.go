//go:build ignore

// generate_testdata.go writes conversation exports for benchmarking.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	tests/testdata/benchmark/chain.json     (2000 turns, one branch)
//	tests/testdata/benchmark/bushy.json     (fanout 4, depth 5: 1024 leaves)
//	tests/testdata/benchmark/random.json    (5000 nodes, random parents)
//	tests/testdata/benchmark/noisy.json     (5000 nodes, hidden and system mix)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

type datasetSpec struct {
	name  string
	desc  string
	build func() *model.Conversation
}

var datasets = []datasetSpec{
	{"chain", "2000 turns on a single branch", func() *model.Conversation {
		return seeded(2000).Chain(2000)
	}},
	{"bushy", "fanout 4, depth 5", func() *model.Conversation {
		return seeded(1024).Branching(5, 4)
	}},
	{"random", "5000 nodes with random parents", func() *model.Conversation {
		return seeded(5000).Random(5000)
	}},
	{"noisy", "5000 nodes, 20% hidden, 10% system", func() *model.Conversation {
		cfg := testutil.DefaultConfig()
		cfg.Seed = 5001
		cfg.HiddenRatio = 0.2
		cfg.SystemRatio = 0.1
		return testutil.New(cfg).Random(5000)
	}},
}

func seeded(seed int64) *testutil.Generator {
	cfg := testutil.DefaultConfig()
	cfg.Seed = seed
	return testutil.New(cfg)
}

func main() {
	outputDir := "tests/testdata/benchmark"
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s (%s)...\n", ds.name, ds.desc)

		conv := ds.build()
		conv.Title = fmt.Sprintf("Benchmark: %s", ds.desc)
		data := testutil.Document(conv)

		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes, %d nodes)\n", outputPath, len(data), conv.Mapping.Len())
	}

	fmt.Println("\nDone! Conversations created in", outputDir)
}
