package quiz

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/retrieval"
)

type stubProvider struct {
	response string
	err      error
	prompts  []string
}

func (s *stubProvider) Generate(ctx context.Context, messages []llm.Message) (string, error) {
	for _, m := range messages {
		s.prompts = append(s.prompts, m.Content)
	}
	return s.response, s.err
}

func (s *stubProvider) GenerateStructured(ctx context.Context, messages []llm.Message, cfg *llm.StructuredOutputConfig) (string, error) {
	return s.Generate(ctx, messages)
}

func (s *stubProvider) ModelName() string { return "stub" }
func (s *stubProvider) Close() error      { return nil }

type stubRetriever struct {
	passages []retrieval.Passage
	err      error
	queries  []string
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Passage, error) {
	s.queries = append(s.queries, query)
	return s.passages, s.err
}

const quizJSON = `{"questions": "Q1: Which application covers an improvement?\nA: Ordinary\nB: Convention\nC: Divisional\nD: Patent of Addition\n", "answer_key": "Q1: D"}`

func TestGenerator_Generate(t *testing.T) {
	provider := &stubProvider{response: quizJSON}
	gen, err := NewGenerator(provider)
	require.NoError(t, err)

	quiz, err := gen.Generate(context.Background(), []string{"patent of addition covers improvements"}, 1, "MEDIUM")
	require.NoError(t, err)

	assert.True(t, quiz.Available())
	assert.Contains(t, quiz.Questions, "Q1:")
	assert.Equal(t, "Q1: D", quiz.AnswerKey)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "patent of addition covers improvements")
	assert.Contains(t, provider.prompts[0], "MEDIUM")
}

func TestGenerator_GenerateNoDocuments(t *testing.T) {
	provider := &stubProvider{response: quizJSON}
	gen, _ := NewGenerator(provider)

	quiz, err := gen.Generate(context.Background(), nil, 2, "MEDIUM")
	require.NoError(t, err)

	assert.False(t, quiz.Available())
	assert.Equal(t, NotAvailableMessage, quiz.Questions)
	assert.Empty(t, provider.prompts, "no model call without source material")
}

func TestGenerator_GenerateBadOutput(t *testing.T) {
	gen, _ := NewGenerator(&stubProvider{response: "here are some questions..."})

	_, err := gen.Generate(context.Background(), []string{"doc"}, 2, "MEDIUM")
	assert.Error(t, err)
}

func TestArtifactWriter_WriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "quiz.txt")
	w, err := NewArtifactWriter(path)
	require.NoError(t, err)

	first, err := w.Write(Quiz{Questions: "Q1: first?", AnswerKey: "Q1: A"})
	require.NoError(t, err)
	assert.Contains(t, string(first), "Q1: first?")
	assert.Contains(t, string(first), "Answer Key")

	_, err = w.Write(Quiz{Questions: "Q1: second?", AnswerKey: "Q1: B"})
	require.NoError(t, err)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "Q1: second?")
	assert.NotContains(t, string(onDisk), "Q1: first?")
}

func newTestAgent(t *testing.T, provider *stubProvider, retriever *stubRetriever, maxCycles int) *Agent {
	t.Helper()
	gen, err := NewGenerator(provider)
	require.NoError(t, err)
	writer, err := NewArtifactWriter(filepath.Join(t.TempDir(), "quiz.txt"))
	require.NoError(t, err)
	agent, err := NewAgent(AgentConfig{
		Generator:     gen,
		Retriever:     retriever,
		Artifact:      writer,
		MaxToolCycles: maxCycles,
	})
	require.NoError(t, err)
	return agent
}

func TestAgent_RunRetrievesWhenNoDocuments(t *testing.T) {
	retriever := &stubRetriever{
		passages: []retrieval.Passage{{ID: "a", Content: "patent of addition covers improvements"}},
	}
	agent := newTestAgent(t, &stubProvider{response: quizJSON}, retriever, 4)

	result, err := agent.Run(context.Background(), Request{Topic: "quiz me on patents"})
	require.NoError(t, err)

	assert.Equal(t, []string{"quiz me on patents"}, retriever.queries)
	assert.True(t, result.Quiz.Available())
	assert.NotEmpty(t, result.ArtifactPath)
	assert.Contains(t, string(result.Artifact), "Q1:")
}

func TestAgent_RunSkipsRetrievalWithDocuments(t *testing.T) {
	retriever := &stubRetriever{}
	agent := newTestAgent(t, &stubProvider{response: quizJSON}, retriever, 4)

	result, err := agent.Run(context.Background(), Request{
		Topic:     "quiz me on our conversation",
		Documents: []string{"types of patent applications..."},
	})
	require.NoError(t, err)

	assert.Empty(t, retriever.queries, "provided documents suppress retrieval")
	assert.True(t, result.Quiz.Available())
}

func TestAgent_RunNotAvailableWithoutMaterial(t *testing.T) {
	agent := newTestAgent(t, &stubProvider{response: quizJSON}, &stubRetriever{}, 4)

	result, err := agent.Run(context.Background(), Request{Topic: "quiz me on patents"})
	require.NoError(t, err)

	assert.False(t, result.Quiz.Available())
	assert.Empty(t, result.ArtifactPath)
	assert.Empty(t, result.Artifact)
}

func TestAgent_RunBudgetSkipsArtifact(t *testing.T) {
	retriever := &stubRetriever{
		passages: []retrieval.Passage{{ID: "a", Content: "doc"}},
	}

	// Retrieval + generation fit a budget of two; the artifact render does
	// not, so the authored quiz comes back without one.
	agent := newTestAgent(t, &stubProvider{response: quizJSON}, retriever, 2)

	result, err := agent.Run(context.Background(), Request{Topic: "quiz me"})
	require.NoError(t, err)

	assert.True(t, result.Quiz.Available())
	assert.Empty(t, result.ArtifactPath)
	assert.Empty(t, result.Artifact)
}

func TestAgent_RunBudgetTooSmallToAuthor(t *testing.T) {
	retriever := &stubRetriever{
		passages: []retrieval.Passage{{ID: "a", Content: "doc"}},
	}
	provider := &stubProvider{response: quizJSON}
	agent := newTestAgent(t, provider, retriever, 1)

	result, err := agent.Run(context.Background(), Request{Topic: "quiz me"})
	require.NoError(t, err)

	assert.False(t, result.Quiz.Available())
	assert.Equal(t, NotAvailableMessage, result.Quiz.Questions)
	assert.Empty(t, provider.prompts, "no generation call past the budget")
}

func TestAgent_RunRetrievalFailure(t *testing.T) {
	retriever := &stubRetriever{err: fmt.Errorf("store unavailable")}
	agent := newTestAgent(t, &stubProvider{response: quizJSON}, retriever, 4)

	_, err := agent.Run(context.Background(), Request{Topic: "quiz me"})
	assert.Error(t, err)
}

func TestAgent_RunAppliesDefaults(t *testing.T) {
	provider := &stubProvider{response: quizJSON}
	agent := newTestAgent(t, provider, &stubRetriever{
		passages: []retrieval.Passage{{ID: "a", Content: "doc"}},
	}, 4)

	_, err := agent.Run(context.Background(), Request{Topic: "quiz me"})
	require.NoError(t, err)

	require.Len(t, provider.prompts, 1)
	assert.Contains(t, provider.prompts[0], "Generate 2 distinct")
	assert.Contains(t, provider.prompts[0], "MEDIUM")
}
