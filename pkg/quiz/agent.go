package quiz

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sourabpanch7/sme-agent/pkg/classifier"
	"github.com/sourabpanch7/sme-agent/pkg/retrieval"
)

// Retriever finds passages for a quiz topic.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Passage, error)
}

// DefaultMaxToolCycles bounds tool use per quiz request.
const DefaultMaxToolCycles = 4

// Agent runs the quiz tool loop: retrieve source material when none is
// provided, author the quiz, and render the artifact. Every tool invocation
// spends one cycle from a fixed budget.
type Agent struct {
	generator    *Generator
	retriever    Retriever
	artifact     *ArtifactWriter
	maxCycles    int
	defaultCount int
	defaultLevel string
}

// AgentConfig configures an Agent.
type AgentConfig struct {
	Generator *Generator
	Retriever Retriever
	Artifact  *ArtifactWriter

	// MaxToolCycles bounds tool use (default DefaultMaxToolCycles).
	MaxToolCycles int

	// DefaultQuestions is used when a request doesn't specify a count
	// (default classifier.DefaultNumQuestions).
	DefaultQuestions int

	// DefaultDifficulty is used when a request doesn't specify one
	// (default MEDIUM).
	DefaultDifficulty string
}

// NewAgent creates a quiz agent.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if cfg.Artifact == nil {
		return nil, fmt.Errorf("artifact writer is required")
	}
	maxCycles := cfg.MaxToolCycles
	if maxCycles <= 0 {
		maxCycles = DefaultMaxToolCycles
	}
	defaultCount := cfg.DefaultQuestions
	if defaultCount <= 0 {
		defaultCount = classifier.DefaultNumQuestions
	}
	defaultLevel := cfg.DefaultDifficulty
	if defaultLevel == "" {
		defaultLevel = classifier.DifficultyMedium
	}
	return &Agent{
		generator:    cfg.Generator,
		retriever:    cfg.Retriever,
		artifact:     cfg.Artifact,
		maxCycles:    maxCycles,
		defaultCount: defaultCount,
		defaultLevel: defaultLevel,
	}, nil
}

// Request asks the agent for a quiz.
type Request struct {
	// Topic is the user's quiz request, used as the retrieval query.
	Topic string

	// Documents are pre-selected source fragments. When present the agent
	// skips retrieval and authors strictly from these.
	Documents []string

	// NumQuestions to generate (default classifier.DefaultNumQuestions).
	NumQuestions int

	// Difficulty of the questions (default MEDIUM).
	Difficulty string
}

// Result is the agent's outcome.
type Result struct {
	Quiz Quiz

	// ArtifactPath and Artifact are set only when a quiz was authored.
	ArtifactPath string
	Artifact     []byte
}

// Run executes the tool loop for one quiz request.
func (a *Agent) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Topic == "" {
		return nil, fmt.Errorf("quiz topic is required")
	}

	numQuestions := req.NumQuestions
	if numQuestions <= 0 {
		numQuestions = a.defaultCount
	}
	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = a.defaultLevel
	}

	// spend reports whether one more tool cycle fits the budget. Exhausting
	// the budget never fails the request: the loop answers with whatever it
	// has produced so far.
	cycles := 0
	spend := func(tool string) bool {
		if cycles >= a.maxCycles {
			slog.Warn("Quiz tool budget exhausted, answering best-effort",
				"tool", tool, "budget", a.maxCycles)
			return false
		}
		cycles++
		slog.Debug("Quiz tool cycle", "tool", tool, "cycle", cycles, "budget", a.maxCycles)
		return true
	}

	documents := req.Documents
	if len(documents) == 0 && spend("document_retriever") {
		passages, err := a.retriever.Retrieve(ctx, req.Topic, 0)
		if err != nil {
			return nil, fmt.Errorf("quiz retrieval failed: %w", err)
		}
		for _, p := range passages {
			documents = append(documents, p.Content)
		}
	}

	if !spend("generate_quiz") {
		return &Result{Quiz: Quiz{Questions: NotAvailableMessage}}, nil
	}
	authored, err := a.generator.Generate(ctx, documents, numQuestions, difficulty)
	if err != nil {
		return nil, err
	}

	result := &Result{Quiz: authored}
	if !authored.Available() {
		slog.Info("No source material for quiz, skipping artifact", "topic", req.Topic)
		return result, nil
	}

	if !spend("create_artifact") {
		return result, nil
	}
	content, err := a.artifact.Write(authored)
	if err != nil {
		return nil, err
	}
	result.ArtifactPath = a.artifact.Path()
	result.Artifact = content

	return result, nil
}
