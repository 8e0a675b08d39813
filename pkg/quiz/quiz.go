// Package quiz generates multiple-choice quizzes from document fragments
// through a small tool-running agent with a hard cycle budget.
package quiz

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

// NotAvailableMessage is returned when no source material supports a quiz.
const NotAvailableMessage = "Quiz not available: no source material could be found for this topic."

// Quiz holds generated questions and their answer key.
type Quiz struct {
	// Questions is the numbered question text, options A-D inline.
	Questions string `json:"questions"`

	// AnswerKey lists answers as "Q1: A, Q2: D" style lines.
	AnswerKey string `json:"answer_key"`
}

// Available reports whether the quiz carries real questions.
func (q Quiz) Available() bool {
	return q.Questions != "" && q.Questions != NotAvailableMessage
}

const generateQuizPrompt = `Generate %d distinct multiple-choice quiz questions of %s level difficulty on Indian Intellectual Property Laws from the docs below.

<docs>
%s
</docs>

IMPORTANT RULES:
- Do NOT make up questions that you cannot make from the input docs.
- Do NOT make up information that you cannot find in the input docs.
- Do NOT add your own thoughts to the input docs.
- Ensure that the "questions" and "answer_key" are generated as properly formatted JSON-compliant strings.
- All strings must be properly terminated and escaped.
- Your response MUST contain ONLY the "questions" and "answer_key" keys.
- Number each question as Q1, Q2, Q3, etc.
- Provide four options labeled A, B, C, D for each question.
- In the answer key, list answers as: Q1: A, Q2: D, etc.

EXAMPLE FORMAT:
<example>
{
  "questions": "Q1: Which type of patent application is filed in respect of an improvement in or modification of an invention for which a patent application has already been filed or a patent has been granted?\nA: Ordinary Application\nB: Convention Application\nC: Divisional Application\nD: Patent of Addition\n\nQ2: What is the e-filing fee for a natural person, startup, or small entity when filing an application for a compulsory license?\nA: 1600\nB: 2400\nC: 3200\nD: 8000\n",
  "answer_key": "Q1: D\nQ2: B"
}
</example>

Return your response as a properly structured JSON object with exactly the "questions" and "answer_key" keys in the format shown above.`

// Generator authors quizzes from documents with an LLM.
type Generator struct {
	provider llm.Provider
}

// NewGenerator creates a quiz generator.
func NewGenerator(provider llm.Provider) (*Generator, error) {
	if provider == nil {
		return nil, fmt.Errorf("LLM provider is required")
	}
	return &Generator{provider: provider}, nil
}

// Generate authors numQuestions questions at the given difficulty, strictly
// from the documents. With no documents there is nothing to author from, so
// the degenerate not-available quiz is returned without a model call.
func (g *Generator) Generate(ctx context.Context, documents []string, numQuestions int, difficulty string) (Quiz, error) {
	if len(documents) == 0 {
		return Quiz{Questions: NotAvailableMessage}, nil
	}
	if numQuestions <= 0 {
		return Quiz{}, fmt.Errorf("question count must be positive, got %d", numQuestions)
	}

	prompt := fmt.Sprintf(generateQuizPrompt, numQuestions, difficulty, strings.Join(documents, "\n\n"))

	raw, err := g.provider.GenerateStructured(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, &llm.StructuredOutputConfig{
		Schema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"questions":  map[string]any{"type": "string"},
				"answer_key": map[string]any{"type": "string"},
			},
			"required": []string{"questions", "answer_key"},
		},
	})
	if err != nil {
		return Quiz{}, fmt.Errorf("quiz generation failed: %w", err)
	}

	var quiz Quiz
	if err := llm.ParseJSON(raw, &quiz); err != nil {
		return Quiz{}, fmt.Errorf("failed to parse quiz output: %w", err)
	}
	if quiz.Questions == "" {
		return Quiz{Questions: NotAvailableMessage}, nil
	}
	return quiz, nil
}
