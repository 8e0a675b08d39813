package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

// Reranker re-orders retrieved passages using an LLM.
//
// Reranking trades latency and token cost for deeper relevance judgment than
// vector similarity alone, so it only runs over small merged sets.
type Reranker struct {
	provider llm.Provider
	keep     int
}

// RankingDecision is the LLM's ranking for a single passage.
type RankingDecision struct {
	// Index is the original passage index.
	Index int `json:"index"`

	// Relevance is the LLM-assigned relevance score (1-10).
	Relevance int `json:"relevance"`

	// Reason explains the ranking.
	Reason string `json:"reason,omitempty"`
}

// NewReranker creates a reranker that keeps at most keep passages.
func NewReranker(provider llm.Provider, keep int) *Reranker {
	if keep <= 0 {
		keep = 5
	}
	return &Reranker{provider: provider, keep: keep}
}

// Rerank re-orders passages by LLM-assessed relevance and truncates to the
// configured keep count. Scores become position-based after reranking.
func (r *Reranker) Rerank(ctx context.Context, query string, passages []Passage) ([]Passage, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("LLM provider is required for reranking")
	}
	if len(passages) == 0 {
		return passages, nil
	}

	prompt := r.buildPrompt(query, passages)

	response, err := r.provider.Generate(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("reranking generation failed: %w", err)
	}

	rankings, err := parseRankings(response, len(passages))
	if err != nil {
		return nil, fmt.Errorf("failed to parse rankings: %w", err)
	}

	reranked := make([]Passage, 0, len(rankings))
	for i, ranking := range rankings {
		if ranking.Index >= len(passages) {
			continue
		}
		p := passages[ranking.Index]
		p.Score = 1.0 - float64(i)*0.05
		if p.Score < 0.1 {
			p.Score = 0.1
		}
		reranked = append(reranked, p)
	}

	if len(reranked) > r.keep {
		reranked = reranked[:r.keep]
	}

	slog.Debug("Reranked passages",
		"query", query,
		"original_count", len(passages),
		"kept_count", len(reranked))

	return reranked, nil
}

func (r *Reranker) buildPrompt(query string, passages []Passage) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`Given the query: "%s"

Rank the following documents by their relevance to the query.
For each document, provide a relevance score from 1-10 (10 being most relevant).

Documents:
`, strings.ReplaceAll(query, `"`, `'`)))

	for i, p := range passages {
		sb.WriteString(fmt.Sprintf("\n[%d] %s\n", i, truncate(p.Content, 500)))
	}

	sb.WriteString(`

Respond with a JSON array of rankings, ordered from most to least relevant:
[{"index": 0, "relevance": 9, "reason": "directly answers the query"}, ...]

Only include the JSON array, no other text.`)

	return sb.String()
}

// parseRankings extracts ranking decisions from the LLM response. Indices the
// model skipped are appended with minimal relevance so nothing is lost.
func parseRankings(response string, numPassages int) ([]RankingDecision, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var rankings []RankingDecision
	if err := json.Unmarshal([]byte(response[start:end+1]), &rankings); err != nil {
		return nil, fmt.Errorf("invalid rankings JSON: %w", err)
	}

	seen := make(map[int]bool)
	var valid []RankingDecision
	for _, ranking := range rankings {
		if ranking.Index >= 0 && ranking.Index < numPassages && !seen[ranking.Index] {
			seen[ranking.Index] = true
			valid = append(valid, ranking)
		}
	}

	for i := 0; i < numPassages; i++ {
		if !seen[i] {
			valid = append(valid, RankingDecision{Index: i, Relevance: 1})
		}
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Relevance > valid[j].Relevance
	})

	return valid, nil
}

// truncate shortens s to at most maxLen runes, never splitting a multibyte
// character. Hindi-collection passages make rune boundaries matter here.
func truncate(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-3]) + "..."
}
