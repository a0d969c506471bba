package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"semsearch/config"
	"semsearch/internal/adapter/embedding"
	"semsearch/internal/adapter/retriever"
	"semsearch/internal/adapter/store"
	"semsearch/internal/domain"
	"semsearch/internal/logging"
	"semsearch/internal/port"
)

// topics drive the synthetic corpus: a bio about a topic draws most of its
// words from that topic's vocabulary.
var topics = map[string][]string{
	"pets":     {"cats", "dogs", "kitten", "puppy", "veterinarian", "adopting", "rescue", "animals"},
	"outdoors": {"hiking", "climbing", "mountains", "camping", "trails", "kayaking", "backpacking", "summit"},
	"music":    {"guitar", "piano", "jazz", "concerts", "songwriting", "orchestra", "vinyl", "drums"},
	"cooking":  {"baking", "recipes", "pastry", "spices", "sourdough", "kitchen", "grilling", "chef"},
	"tech":     {"programming", "databases", "compilers", "kubernetes", "golang", "servers", "algorithms", "linux"},
}

var filler = []string{"enjoys", "weekends", "spends", "time", "passionate", "about", "loves", "learning"}

func main() {
	n := flag.Int("n", 10000, "number of synthetic records")
	queries := flag.Int("queries", 50, "number of timed queries")
	dim := flag.Int("dim", 384, "embedding dimension")
	limit := flag.Int("k", 5, "results per query")
	threshold := flag.Float64("threshold", 0.3, "similarity threshold")
	backend := flag.String("backend", "memory", "record store: memory, bolt, badger, sqlite")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if err := run(*n, *queries, *dim, *limit, *threshold, *backend, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(n, queries, dim, limit int, threshold float64, backend string, seed int64) error {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(seed))

	dir, err := os.MkdirTemp("", "semsearch-bench")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultConfig()
	cfg.Store.Backend = backend
	cfg.Store.Path = "bench.db"
	cfg.Embedding.Dimension = dim
	logger := logging.Discard()

	st, err := store.Open(ctx, cfg, dir, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	model, err := embedding.NewHashing(dim)
	if err != nil {
		return err
	}
	emb := embedding.NewSerial(model, 1, 0, logger)

	fmt.Println("SEMANTIC SEARCH BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))
	fmt.Printf("Records: %d  Dimension: %d  Backend: %s\n", n, dim, backend)
	fmt.Printf("Store:   %s\n", filepath.Join(config.DataDir(dir), cfg.Store.Path))
	fmt.Println()

	topicOf, err := load(ctx, st, emb, rng, n)
	if err != nil {
		return err
	}

	if err := timeScans(ctx, st, emb, rng, queries, threshold, limit); err != nil {
		return err
	}
	return quality(ctx, st, emb, topicOf, limit)
}

func load(ctx context.Context, st port.RecordStore, emb port.Embedder, rng *rand.Rand, n int) (map[string]string, error) {
	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	start := time.Now()
	records := make([]domain.Record, n)
	labels := make([]string, n)
	for i := range records {
		topic := names[rng.Intn(len(names))]
		bio := syntheticBio(rng, topic)
		vec, err := emb.Embed(ctx, bio)
		if err != nil {
			return nil, err
		}
		records[i] = domain.Record{
			Name:      fmt.Sprintf("user-%d", i),
			Email:     fmt.Sprintf("user-%d@example.com", i),
			Bio:       bio,
			Embedding: vec,
		}
		labels[i] = topic
	}
	embedTime := time.Since(start)

	start = time.Now()
	topicOf := make(map[string]string, n)
	const batch = 1000
	for lo := 0; lo < n; lo += batch {
		hi := min(lo+batch, n)
		ids, err := st.InsertMany(ctx, records[lo:hi])
		if err != nil {
			return nil, err
		}
		for i, id := range ids {
			topicOf[id] = labels[lo+i]
		}
	}

	fmt.Printf("Embed:   %s (%.0f records/s)\n", embedTime.Round(time.Millisecond), float64(n)/embedTime.Seconds())
	fmt.Printf("Insert:  %s\n\n", time.Since(start).Round(time.Millisecond))
	return topicOf, nil
}

func timeScans(ctx context.Context, st port.RecordStore, emb port.Embedder, rng *rand.Rand, queries int, threshold float64, limit int) error {
	r := retriever.NewBruteForce(st, logging.Discard())

	var total, worst time.Duration
	for i := 0; i < queries; i++ {
		vec, err := emb.Embed(ctx, fmt.Sprintf("query %d %s", i, filler[rng.Intn(len(filler))]))
		if err != nil {
			return err
		}
		start := time.Now()
		if _, err := r.Nearest(ctx, vec, threshold, limit); err != nil {
			return err
		}
		d := time.Since(start)
		total += d
		worst = max(worst, d)
	}

	fmt.Println("LATENCY (full scan per query):")
	fmt.Printf("  Mean: %s\n", (total / time.Duration(max(queries, 1))).Round(time.Microsecond))
	fmt.Printf("  Max:  %s\n\n", worst.Round(time.Microsecond))
	return nil
}

// quality queries each topic by its vocabulary and scores how many of the
// top results carry that topic.
func quality(ctx context.Context, st port.RecordStore, emb port.Embedder, topicOf map[string]string, limit int) error {
	r := retriever.NewBruteForce(st, logging.Discard())

	names := make([]string, 0, len(topics))
	for name := range topics {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println(strings.Repeat("=", 70))
	fmt.Println("QUALITY METRICS (threshold -1):")
	var sumP, sumMRR, sumNDCG float64
	for _, topic := range names {
		vec, err := emb.Embed(ctx, strings.Join(topics[topic][:3], " "))
		if err != nil {
			return err
		}
		results, err := r.Nearest(ctx, vec, -1, limit)
		if err != nil {
			return err
		}

		ids := make([]string, len(results))
		gains := make([]float64, len(results))
		ideal := make([]float64, len(results))
		var relevant []string
		firstRelevant := ""
		for i, res := range results {
			ids[i] = res.Record.ID
			ideal[i] = 1
			if topicOf[res.Record.ID] == topic {
				gains[i] = 1
				relevant = append(relevant, res.Record.ID)
				if firstRelevant == "" {
					firstRelevant = res.Record.ID
				}
			}
		}

		p := retriever.PrecisionAtK(ids, relevant)
		mrr := retriever.ReciprocalRank(ids, firstRelevant)
		ndcg := retriever.NDCG(gains, ideal)
		sumP += p
		sumMRR += mrr
		sumNDCG += ndcg
		fmt.Printf("  %-10s P@%d %.2f  MRR %.2f  NDCG %.2f\n", topic, limit, p, mrr, ndcg)
	}

	k := float64(len(names))
	fmt.Printf("  %-10s P@%d %.2f  MRR %.2f  NDCG %.2f\n", "mean", limit, sumP/k, sumMRR/k, sumNDCG/k)
	return nil
}

func syntheticBio(rng *rand.Rand, topic string) string {
	words := topics[topic]
	parts := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		if rng.Float64() < 0.6 {
			parts = append(parts, words[rng.Intn(len(words))])
		} else {
			parts = append(parts, filler[rng.Intn(len(filler))])
		}
	}
	return strings.Join(parts, " ")
}
