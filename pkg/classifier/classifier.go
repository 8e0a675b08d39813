// Package classifier implements the structured yes/no judgments and value
// extractors that steer the conversation workflow.
//
// Every judgment is a single LLM call constrained to a one-key JSON object.
// A malformed verdict is a hard failure: routing on a guessed value would
// silently send the turn down the wrong path, so callers surface
// ErrInvalidOutput instead.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

// ErrInvalidOutput reports that a classifier produced output that could not
// be interpreted as its declared schema.
var ErrInvalidOutput = errors.New("invalid classifier output")

// Difficulty levels for quiz generation.
const (
	DifficultyEasy   = "EASY"
	DifficultyMedium = "MEDIUM"
	DifficultyHard   = "HARD"
)

// DefaultNumQuestions is used when the request does not state a count.
const DefaultNumQuestions = 2

// Classifier runs decision judgments against an LLM provider. The provider
// is typically a smaller, cheaper model than the one used for generation.
type Classifier struct {
	provider llm.Provider
}

// New creates a Classifier backed by the given provider.
func New(provider llm.Provider) (*Classifier, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider is required")
	}
	return &Classifier{provider: provider}, nil
}

// ValidQuestion decides whether the question is on-topic, judged against the
// conversation history.
func (c *Classifier) ValidQuestion(ctx context.Context, question string, history []llm.Message) (bool, error) {
	prompt := fmt.Sprintf(questionValidatorPrompt, question)
	return c.judge(ctx, prompt, history, "valid_question")
}

// ValidQuizTopic decides whether a quiz request targets an on-topic subject,
// judged against the conversation history.
func (c *Classifier) ValidQuizTopic(ctx context.Context, question string, history []llm.Message) (bool, error) {
	prompt := fmt.Sprintf(quizTopicValidatorPrompt, question)
	return c.judge(ctx, prompt, history, "valid_quiz_topic")
}

// QuizRequested decides whether the message asks for a quiz at all. This is
// the first branch of every turn.
func (c *Classifier) QuizRequested(ctx context.Context, question string) (bool, error) {
	prompt := fmt.Sprintf(quizRouterPrompt, question)
	return c.judge(ctx, prompt, nil, "generate_quiz")
}

// WebSearchRequired decides whether the question needs a web search because
// the given documents cannot answer it.
func (c *Classifier) WebSearchRequired(ctx context.Context, question, documents string) (bool, error) {
	prompt := fmt.Sprintf(questionRouterPrompt, documents, question)
	return c.judge(ctx, prompt, nil, "web_search_required")
}

// RelevantDocsExist decides whether the accumulated documents can answer the
// contextualized question.
func (c *Classifier) RelevantDocsExist(ctx context.Context, question, documents string) (bool, error) {
	prompt := fmt.Sprintf(relevantDocCheckerPrompt, documents, question)
	return c.judge(ctx, prompt, nil, "relevant_docs_exist")
}

// GradeGroundedness scores whether the generation is supported by the facts.
func (c *Classifier) GradeGroundedness(ctx context.Context, documents, generation string) (bool, error) {
	prompt := fmt.Sprintf(groundednessGraderPrompt, documents, generation)
	return c.score(ctx, prompt)
}

// GradeUsefulness scores whether the generation resolves the question.
func (c *Classifier) GradeUsefulness(ctx context.Context, question, generation string) (bool, error) {
	prompt := fmt.Sprintf(usefulnessGraderPrompt, generation, question)
	return c.score(ctx, prompt)
}

// NumQuestions extracts the requested quiz question count, defaulting to
// DefaultNumQuestions when the request does not state one.
func (c *Classifier) NumQuestions(ctx context.Context, input string) (int, error) {
	prompt := fmt.Sprintf(numQuestionsPrompt, DefaultNumQuestions, input)

	raw, err := c.generate(ctx, prompt, nil, &llm.StructuredOutputConfig{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"num_questions": map[string]any{"type": "string"},
			},
			"required": []string{"num_questions"},
		},
	})
	if err != nil {
		return 0, err
	}

	var out struct {
		NumQuestions any `json:"num_questions"`
	}
	if err := llm.ParseJSON(raw, &out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	n, ok := coerceInt(out.NumQuestions)
	if !ok || n <= 0 {
		return DefaultNumQuestions, nil
	}
	return n, nil
}

// DifficultyLevel extracts the requested difficulty, defaulting to MEDIUM
// for anything unrecognized.
func (c *Classifier) DifficultyLevel(ctx context.Context, input string) (string, error) {
	prompt := fmt.Sprintf(difficultyLevelPrompt, input)

	raw, err := c.generate(ctx, prompt, nil, &llm.StructuredOutputConfig{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"difficulty_level": map[string]any{
					"type": "string",
					"enum": []string{DifficultyEasy, DifficultyMedium, DifficultyHard},
				},
			},
			"required": []string{"difficulty_level"},
		},
	})
	if err != nil {
		return "", err
	}

	var out struct {
		DifficultyLevel string `json:"difficulty_level"`
	}
	if err := llm.ParseJSON(raw, &out); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	switch strings.ToUpper(strings.TrimSpace(out.DifficultyLevel)) {
	case DifficultyEasy:
		return DifficultyEasy, nil
	case DifficultyHard:
		return DifficultyHard, nil
	default:
		return DifficultyMedium, nil
	}
}

// judge runs a single-key boolean judgment.
func (c *Classifier) judge(ctx context.Context, prompt string, history []llm.Message, key string) (bool, error) {
	raw, err := c.generate(ctx, prompt, history, &llm.StructuredOutputConfig{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				key: map[string]any{"type": "boolean"},
			},
			"required": []string{key},
		},
	})
	if err != nil {
		return false, err
	}

	var out map[string]any
	if err := llm.ParseJSON(raw, &out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	verdict, ok := coerceBool(out[key])
	if !ok {
		return false, fmt.Errorf("%w: missing or non-boolean %q in %q", ErrInvalidOutput, key, raw)
	}
	return verdict, nil
}

// score runs a yes/no grader judgment.
func (c *Classifier) score(ctx context.Context, prompt string) (bool, error) {
	raw, err := c.generate(ctx, prompt, nil, &llm.StructuredOutputConfig{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"score": map[string]any{
					"type": "string",
					"enum": []string{"yes", "no"},
				},
			},
			"required": []string{"score"},
		},
	})
	if err != nil {
		return false, err
	}

	var out struct {
		Score string `json:"score"`
	}
	if err := llm.ParseJSON(raw, &out); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}

	switch strings.ToLower(strings.TrimSpace(out.Score)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("%w: score must be yes or no, got %q", ErrInvalidOutput, out.Score)
	}
}

func (c *Classifier) generate(ctx context.Context, prompt string, history []llm.Message, cfg *llm.StructuredOutputConfig) (string, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
	return c.provider.GenerateStructured(ctx, messages, cfg)
}

func coerceBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes":
			return true, true
		case "false", "no":
			return false, true
		}
	}
	return false, false
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
