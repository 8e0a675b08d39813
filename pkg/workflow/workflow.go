// Package workflow runs the turn-level conversation state machine: routing
// each user message through validation, retrieval, generation with grading,
// quiz creation, or email delivery, and persisting thread state between
// turns.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/flyt"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/mail"
	"github.com/sourabpanch7/sme-agent/pkg/quiz"
	"github.com/sourabpanch7/sme-agent/pkg/retrieval"
	"github.com/sourabpanch7/sme-agent/pkg/session"
	"github.com/sourabpanch7/sme-agent/pkg/websearch"
)

// Outcome names how a turn ended.
type Outcome string

const (
	OutcomeAnswered         Outcome = "answered"
	OutcomeInvalidQuestion  Outcome = "invalid_question"
	OutcomeInvalidQuizTopic Outcome = "invalid_quiz_topic"
	OutcomeQuizGenerated    Outcome = "quiz_generated"
	OutcomeQuizNotAvailable Outcome = "quiz_not_available"
	OutcomeEmailSent        Outcome = "email_sent"
	OutcomeEmailNotSent     Outcome = "email_not_sent"
	OutcomeMaxRetries       Outcome = "max_retries"
	OutcomeSessionEnded     Outcome = "session_ended"
)

// Decider is the set of classifier judgments the workflow routes on.
type Decider interface {
	QuizRequested(ctx context.Context, question string) (bool, error)
	ValidQuestion(ctx context.Context, question string, history []llm.Message) (bool, error)
	ValidQuizTopic(ctx context.Context, question string, history []llm.Message) (bool, error)
	WebSearchRequired(ctx context.Context, question, documents string) (bool, error)
	RelevantDocsExist(ctx context.Context, question, documents string) (bool, error)
	GradeGroundedness(ctx context.Context, documents, generation string) (bool, error)
	GradeUsefulness(ctx context.Context, question, generation string) (bool, error)
	NumQuestions(ctx context.Context, input string) (int, error)
	DifficultyLevel(ctx context.Context, input string) (string, error)
}

// Retriever finds passages for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Passage, error)
}

// QuizRunner executes a quiz request.
type QuizRunner interface {
	Run(ctx context.Context, req quiz.Request) (*quiz.Result, error)
}

// Config bounds the workflow's loops and external calls.
type Config struct {
	// MaxGradingRetries is how many times a rejected generation may fall
	// back to web search before the turn ends with OutcomeMaxRetries.
	MaxGradingRetries int

	// MaxDocuments caps the accumulated document set per thread; the
	// oldest fragments are dropped first.
	MaxDocuments int

	// ArtifactPath is where the quiz artifact is read from for email.
	ArtifactPath string

	// Deadlines applied to external calls. Zero disables the deadline.
	LLMTimeout       time.Duration
	RetrievalTimeout time.Duration
	SearchTimeout    time.Duration
	MailTimeout      time.Duration
}

// Deps are the collaborators the engine is constructed with.
type Deps struct {
	Classifier Decider
	Generator  llm.Provider
	Retriever  Retriever
	Searcher   websearch.Searcher
	Quizzes    QuizRunner
	Mailer     mail.Sender
	Sessions   session.Store
	Config     Config
}

// Engine drives one conversation turn at a time.
type Engine struct {
	classifier Decider
	generator  llm.Provider
	retriever  Retriever
	searcher   websearch.Searcher
	quizzes    QuizRunner
	mailer     mail.Sender
	sessions   session.Store
	threads    *session.Manager
	cfg        Config
}

// NewEngine creates a workflow engine. All collaborators are required.
func NewEngine(deps Deps) (*Engine, error) {
	if deps.Classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("retriever is required")
	}
	if deps.Searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	if deps.Quizzes == nil {
		return nil, fmt.Errorf("quiz runner is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}

	cfg := deps.Config
	if cfg.MaxGradingRetries <= 0 {
		cfg.MaxGradingRetries = 2
	}
	if cfg.MaxDocuments <= 0 {
		cfg.MaxDocuments = 64
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = "outputs/quiz.txt"
	}

	return &Engine{
		classifier: deps.Classifier,
		generator:  deps.Generator,
		retriever:  deps.Retriever,
		searcher:   deps.Searcher,
		quizzes:    deps.Quizzes,
		mailer:     deps.Mailer,
		sessions:   deps.Sessions,
		threads:    session.NewManager(),
		cfg:        cfg,
	}, nil
}

// TurnResult is the assistant's reply for one turn.
type TurnResult struct {
	ThreadID   string    `json:"thread_id"`
	MessageID  string    `json:"message_id"`
	Role       string    `json:"role"`
	Timestamp  time.Time `json:"timestamp"`
	Answer     string    `json:"answer"`
	SourceDocs []string  `json:"source_docs,omitempty"`
	Outcome    Outcome   `json:"outcome"`
}

// farewells end the session instead of running the workflow.
var farewells = map[string]bool{
	"bye":  true,
	"exit": true,
	"quit": true,
}

// Turn processes one user message on a thread. An empty threadID starts a
// new thread.
func (e *Engine) Turn(ctx context.Context, threadID, message string) (*TurnResult, error) {
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("message cannot be empty")
	}
	if threadID == "" {
		threadID = session.NewThreadID()
	}

	// One turn at a time per thread; other threads proceed concurrently.
	sess := e.threads.Get(threadID)
	sess.Lock()
	defer sess.Unlock()

	if farewells[strings.ToLower(strings.TrimSpace(message))] {
		if err := e.sessions.Delete(ctx, threadID); err != nil {
			return nil, fmt.Errorf("failed to end session: %w", err)
		}
		e.threads.End(threadID)
		return e.result(threadID, FarewellResponse, nil, OutcomeSessionEnded), nil
	}

	prior, err := e.sessions.Load(ctx, threadID)
	if err != nil && !errors.Is(err, session.ErrThreadNotFound) {
		return nil, fmt.Errorf("failed to load thread state: %w", err)
	}

	st := &turnState{
		ThreadID:  threadID,
		Question:  message,
		History:   prior.Messages,
		Documents: prior.Documents,
	}

	shared := flyt.NewSharedStore()
	shared.Set(stateKey, st)

	if err := e.buildFlow().Run(ctx, shared); err != nil {
		return nil, fmt.Errorf("workflow run failed: %w", err)
	}

	answer := stripAnswerPrefix(st.Generation)
	outcome := st.Outcome
	if outcome == "" {
		outcome = OutcomeAnswered
	}

	final := session.State{
		Messages: append(append(append([]llm.Message{}, st.History...),
			llm.Message{Role: llm.RoleUser, Content: message}),
			llm.Message{Role: llm.RoleAssistant, Content: answer}),
		Documents: st.Documents,
	}
	if err := e.sessions.Save(ctx, threadID, "turn_complete", final); err != nil {
		return nil, fmt.Errorf("failed to persist thread state: %w", err)
	}

	return e.result(threadID, answer, st.Documents, outcome), nil
}

func (e *Engine) result(threadID, answer string, docs []string, outcome Outcome) *TurnResult {
	return &TurnResult{
		ThreadID:   threadID,
		MessageID:  uuid.NewString(),
		Role:       "assistant",
		Timestamp:  time.Now().UTC(),
		Answer:     answer,
		SourceDocs: docs,
		Outcome:    outcome,
	}
}

// stripAnswerPrefix drops the reasoning preamble up to the final "Answer:"
// marker when the model emits one.
func stripAnswerPrefix(s string) string {
	if _, after, ok := strings.Cut(s, "Answer:"); ok {
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
