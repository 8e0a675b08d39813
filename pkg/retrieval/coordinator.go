// Package retrieval merges several weighted document collections into one
// ranked passage sequence, optionally reduced by an LLM reranking stage.
//
// The coordinator is stateless per call: it keeps no cache beyond what the
// workflow's per-turn document accumulator retains.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/vector"
)

const (
	// rrfRankConstant dampens the contribution of lower-ranked hits in
	// weighted reciprocal rank fusion.
	rrfRankConstant = 60

	// DefaultTopK results are fetched per collection when the caller
	// passes zero.
	DefaultTopK = 10
)

// Passage is one retrieved text fragment.
type Passage struct {
	ID         string
	Content    string
	Collection string
	Score      float64
}

// Collection names a searchable collection and its ensemble weight.
type Collection struct {
	Name   string
	Weight float64
}

// Coordinator performs ensemble retrieval across weighted collections.
type Coordinator struct {
	store       vector.Store
	embedder    llm.Embedder
	collections []Collection
	topK        int
	reranker    *Reranker
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	// Collections to merge with their weights (required).
	Collections []Collection

	// TopK results per collection (default DefaultTopK).
	TopK int

	// Reranker optionally reduces the merged sequence (nil disables).
	Reranker *Reranker
}

// NewCoordinator creates a retrieval coordinator.
func NewCoordinator(store vector.Store, embedder llm.Embedder, cfg CoordinatorConfig) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if len(cfg.Collections) == 0 {
		return nil, fmt.Errorf("at least one collection is required")
	}
	for _, col := range cfg.Collections {
		if col.Name == "" {
			return nil, fmt.Errorf("collection name cannot be empty")
		}
		if col.Weight <= 0 {
			return nil, fmt.Errorf("collection %q weight must be positive", col.Name)
		}
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	return &Coordinator{
		store:       store,
		embedder:    embedder,
		collections: cfg.Collections,
		topK:        topK,
		reranker:    cfg.Reranker,
	}, nil
}

// Retrieve merges ranked results from every collection into one sequence
// using weighted reciprocal rank fusion, then applies the reranking stage if
// configured.
//
// An unreachable store or embedder degrades to an empty passage set rather
// than failing the call; generation then proceeds without context.
func (c *Coordinator) Retrieve(ctx context.Context, query string, topK int) ([]Passage, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if topK <= 0 {
		topK = c.topK
	}

	vectors, err := c.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		slog.Warn("Query embedding failed, degrading to empty result set", "error", err)
		return nil, nil
	}
	queryVec := vectors[0]

	type scored struct {
		passage Passage
		fused   float64
	}
	merged := make(map[string]*scored)

	for _, col := range c.collections {
		results, err := c.store.Search(ctx, col.Name, queryVec, topK)
		if err != nil {
			slog.Warn("Collection search failed, skipping",
				"collection", col.Name,
				"error", err)
			continue
		}

		for rank, r := range results {
			contribution := col.Weight / float64(rank+1+rrfRankConstant)
			if entry, ok := merged[r.ID]; ok {
				entry.fused += contribution
				continue
			}
			merged[r.ID] = &scored{
				passage: Passage{
					ID:         r.ID,
					Content:    r.Content,
					Collection: col.Name,
					Score:      float64(r.Score),
				},
				fused: contribution,
			}
		}
	}

	fused := make([]Passage, 0, len(merged))
	order := make(map[string]float64, len(merged))
	for id, entry := range merged {
		entry.passage.Score = entry.fused
		order[id] = entry.fused
		fused = append(fused, entry.passage)
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return order[fused[i].ID] > order[fused[j].ID]
	})

	if c.reranker != nil && len(fused) > 0 {
		reranked, err := c.reranker.Rerank(ctx, query, fused)
		if err != nil {
			slog.Warn("Reranking failed, keeping fused order", "error", err)
			return fused, nil
		}
		return reranked, nil
	}

	return fused, nil
}
