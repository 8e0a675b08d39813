package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/flyt"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/mail"
	"github.com/sourabpanch7/sme-agent/pkg/quiz"
	"github.com/sourabpanch7/sme-agent/pkg/session"
)

const stateKey = "turn"

// Routing actions between workflow steps.
const (
	actionQuiz       flyt.Action = "quiz"
	actionAnswer     flyt.Action = "answer"
	actionEmail      flyt.Action = "email"
	actionValid      flyt.Action = "valid"
	actionInvalid    flyt.Action = "invalid"
	actionGenerate   flyt.Action = "generate"
	actionRetrieve   flyt.Action = "retrieve"
	actionWebSearch  flyt.Action = "web_search"
	actionRetry      flyt.Action = "retry_search"
	actionContextual flyt.Action = "contextual"
	actionFresh      flyt.Action = "fresh"
)

// turnState is the mutable state threaded through one turn's steps.
type turnState struct {
	ThreadID  string
	Question  string
	History   []llm.Message
	Documents []string

	Generation string
	Outcome    Outcome
	Retries    int
}

// contextDocuments is the material every judgment and generation sees: the
// accumulated fragments followed by the prior conversation. Earlier turns
// count as context, which is what lets a quiz be built from conversation
// alone.
func (st *turnState) contextDocuments() []string {
	out := make([]string, 0, len(st.Documents)+len(st.History))
	out = append(out, st.Documents...)
	for _, m := range st.History {
		out = append(out, m.Content)
	}
	return out
}

func joinDocs(docs []string) string {
	return strings.Join(docs, "\n\n")
}

func (e *Engine) appendDocuments(st *turnState, docs ...string) {
	st.Documents = append(st.Documents, docs...)
	if len(st.Documents) > e.cfg.MaxDocuments {
		st.Documents = st.Documents[len(st.Documents)-e.cfg.MaxDocuments:]
	}
}

type step func(ctx context.Context, st *turnState) (flyt.Action, error)

// stepNode adapts one workflow step to the flyt Node interface: Prep pulls
// the turn state out of the shared store, Exec runs the step, Post
// checkpoints the thread before handing the routing action back to the flow.
type stepNode struct {
	*flyt.BaseNode
	engine *Engine
	name   string
	fn     step
}

func (e *Engine) node(name string, fn step) flyt.Node {
	return &stepNode{
		BaseNode: flyt.NewBaseNode(),
		engine:   e,
		name:     name,
		fn:       fn,
	}
}

func (n *stepNode) Prep(ctx context.Context, shared *flyt.SharedStore) (any, error) {
	v, ok := shared.Get(stateKey)
	if !ok {
		return nil, fmt.Errorf("turn state missing from shared store")
	}
	return v, nil
}

func (n *stepNode) Exec(ctx context.Context, prep any) (any, error) {
	st := prep.(*turnState)
	slog.Debug("Workflow step", "step", n.name, "thread_id", st.ThreadID)
	return n.fn(ctx, st)
}

func (n *stepNode) Post(ctx context.Context, shared *flyt.SharedStore, prep, execResult any) (flyt.Action, error) {
	st := prep.(*turnState)
	if err := n.engine.checkpoint(ctx, st, n.name); err != nil {
		return "", err
	}
	return execResult.(flyt.Action), nil
}

func (e *Engine) checkpoint(ctx context.Context, st *turnState, stepName string) error {
	messages := append(append([]llm.Message{}, st.History...),
		llm.Message{Role: llm.RoleUser, Content: st.Question})
	if st.Generation != "" {
		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: st.Generation})
	}
	return e.sessions.Save(ctx, st.ThreadID, stepName, session.State{
		Messages:  messages,
		Documents: st.Documents,
	})
}

// buildFlow wires the turn graph. Steps without an outgoing edge for their
// action terminate the turn.
func (e *Engine) buildFlow() *flyt.Flow {
	chooseInitialPath := e.node("choose_initial_path", e.chooseInitialPath)
	validateQuestion := e.node("validate_question", e.validateQuestion)
	validateQuizTopic := e.node("validate_quiz_topic", e.validateQuizTopic)
	invalidQuestion := e.node("invalid_question_response", e.invalidQuestion)
	invalidQuizTopic := e.node("invalid_quiz_topic_response", e.invalidQuizTopic)
	checkRelevantDocs := e.node("check_relevant_doc_exists", e.checkRelevantDocs)
	retrieve := e.node("retrieve", e.retrieve)
	routeQuestion := e.node("route_question", e.routeQuestion)
	webSearch := e.node("web_search", e.webSearch)
	generate := e.node("generate", e.generate)
	getQuizType := e.node("get_quiz_type", e.getQuizType)
	makeQuiz := e.node("make_quiz", e.makeQuiz)
	makeContextualQuiz := e.node("make_contextual_quiz", e.makeContextualQuiz)
	sendEmail := e.node("send_email", e.sendEmail)

	flow := flyt.NewFlow(chooseInitialPath)

	flow.Connect(chooseInitialPath, actionAnswer, validateQuestion)
	flow.Connect(chooseInitialPath, actionQuiz, validateQuizTopic)
	flow.Connect(chooseInitialPath, actionEmail, sendEmail)

	flow.Connect(validateQuestion, actionValid, checkRelevantDocs)
	flow.Connect(validateQuestion, actionInvalid, invalidQuestion)
	flow.Connect(checkRelevantDocs, actionGenerate, generate)
	flow.Connect(checkRelevantDocs, actionRetrieve, retrieve)
	flow.Connect(retrieve, flyt.DefaultAction, routeQuestion)
	flow.Connect(routeQuestion, actionWebSearch, webSearch)
	flow.Connect(routeQuestion, actionGenerate, generate)
	flow.Connect(webSearch, flyt.DefaultAction, generate)
	flow.Connect(generate, actionRetry, webSearch)

	flow.Connect(validateQuizTopic, actionValid, getQuizType)
	flow.Connect(validateQuizTopic, actionInvalid, invalidQuizTopic)
	flow.Connect(getQuizType, actionContextual, makeContextualQuiz)
	flow.Connect(getQuizType, actionFresh, makeQuiz)

	return flow
}

func emailIntent(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "send") ||
		strings.Contains(lower, "email") ||
		strings.Contains(lower, "@")
}

func (e *Engine) chooseInitialPath(ctx context.Context, st *turnState) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	quizRequested, err := e.classifier.QuizRequested(lctx, st.Question)
	if err != nil {
		return "", err
	}
	if quizRequested {
		return actionQuiz, nil
	}
	if emailIntent(st.Question) {
		return actionEmail, nil
	}
	return actionAnswer, nil
}

func (e *Engine) validateQuestion(ctx context.Context, st *turnState) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	valid, err := e.classifier.ValidQuestion(lctx, st.Question, st.History)
	if err != nil {
		return "", err
	}
	if valid {
		return actionValid, nil
	}
	return actionInvalid, nil
}

func (e *Engine) validateQuizTopic(ctx context.Context, st *turnState) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	valid, err := e.classifier.ValidQuizTopic(lctx, st.Question, st.History)
	if err != nil {
		return "", err
	}
	if valid {
		return actionValid, nil
	}
	return actionInvalid, nil
}

func (e *Engine) invalidQuestion(ctx context.Context, st *turnState) (flyt.Action, error) {
	st.Generation = invalidQuestionResponse
	st.Outcome = OutcomeInvalidQuestion
	return flyt.DefaultAction, nil
}

func (e *Engine) invalidQuizTopic(ctx context.Context, st *turnState) (flyt.Action, error) {
	st.Generation = invalidQuizTopicResponse
	st.Outcome = OutcomeInvalidQuizTopic
	return flyt.DefaultAction, nil
}

func (e *Engine) checkRelevantDocs(ctx context.Context, st *turnState) (flyt.Action, error) {
	material := st.contextDocuments()
	if len(material) == 0 {
		return actionRetrieve, nil
	}

	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	relevant, err := e.classifier.RelevantDocsExist(lctx, st.Question, joinDocs(material))
	if err != nil {
		return "", err
	}
	if relevant {
		return actionGenerate, nil
	}
	return actionRetrieve, nil
}

func (e *Engine) retrieve(ctx context.Context, st *turnState) (flyt.Action, error) {
	rctx, cancel := withTimeout(ctx, e.cfg.RetrievalTimeout)
	defer cancel()

	passages, err := e.retriever.Retrieve(rctx, st.Question, 0)
	if err != nil {
		return "", fmt.Errorf("retrieval failed: %w", err)
	}
	for _, p := range passages {
		e.appendDocuments(st, p.Content)
	}
	slog.Info("Retrieved documents", "thread_id", st.ThreadID, "count", len(passages))
	return flyt.DefaultAction, nil
}

func (e *Engine) routeQuestion(ctx context.Context, st *turnState) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	needsSearch, err := e.classifier.WebSearchRequired(lctx, st.Question, joinDocs(st.contextDocuments()))
	if err != nil {
		return "", err
	}
	if needsSearch {
		return actionWebSearch, nil
	}
	return actionGenerate, nil
}

func (e *Engine) webSearch(ctx context.Context, st *turnState) (flyt.Action, error) {
	sctx, cancel := withTimeout(ctx, e.cfg.SearchTimeout)
	defer cancel()

	results, err := e.searcher.Search(sctx, st.Question)
	if err != nil {
		return "", fmt.Errorf("web search failed: %w", err)
	}

	contents := make([]string, 0, len(results))
	for _, r := range results {
		contents = append(contents, r.Content)
	}
	// Search hits fold into a single fragment, keeping provider order.
	e.appendDocuments(st, strings.Join(contents, "\n"))
	slog.Info("Web search complete", "thread_id", st.ThreadID, "results", len(results))
	return flyt.DefaultAction, nil
}

func buildAnswerMessages(question string, contextDocs []string) []llm.Message {
	messages := make([]llm.Message, 0, 2*len(fewShotExamples)+2)
	messages = append(messages, llm.Message{
		Role:    llm.RoleSystem,
		Content: fmt.Sprintf(answerPrompt, joinDocs(contextDocs), question),
	})
	for _, ex := range fewShotExamples {
		messages = append(messages,
			llm.Message{Role: llm.RoleUser, Content: ex.Question},
			llm.Message{Role: llm.RoleAssistant, Content: ex.Answer})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: question})
}

// generate produces the answer and grades it. A generation that is both
// grounded in the context and useful for the question ends the turn; a
// rejected generation falls back to web search until the retry budget runs
// out.
func (e *Engine) generate(ctx context.Context, st *turnState) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	contextDocs := st.contextDocuments()
	generation, err := e.generator.Generate(lctx, buildAnswerMessages(st.Question, contextDocs))
	if err != nil {
		return "", fmt.Errorf("generation failed: %w", err)
	}
	st.Generation = generation

	grounded, err := e.classifier.GradeGroundedness(lctx, joinDocs(contextDocs), generation)
	if err != nil {
		return "", err
	}

	useful := false
	if grounded {
		useful, err = e.classifier.GradeUsefulness(lctx, st.Question, generation)
		if err != nil {
			return "", err
		}
	}

	if grounded && useful {
		st.Outcome = OutcomeAnswered
		return flyt.DefaultAction, nil
	}

	if st.Retries >= e.cfg.MaxGradingRetries {
		slog.Warn("Grading retries exhausted",
			"thread_id", st.ThreadID,
			"grounded", grounded,
			"useful", useful)
		st.Generation = maxRetriesResponse
		st.Outcome = OutcomeMaxRetries
		return flyt.DefaultAction, nil
	}

	st.Retries++
	slog.Info("Generation rejected, retrying with web search",
		"thread_id", st.ThreadID,
		"grounded", grounded,
		"useful", useful,
		"retry", st.Retries)
	return actionRetry, nil
}

// getQuizType selects the quiz source deterministically: material already on
// the thread means the quiz is authored from it, otherwise the sub-agent does
// its own retrieval.
func (e *Engine) getQuizType(ctx context.Context, st *turnState) (flyt.Action, error) {
	if len(st.contextDocuments()) == 0 {
		return actionFresh, nil
	}
	return actionContextual, nil
}

func (e *Engine) makeQuiz(ctx context.Context, st *turnState) (flyt.Action, error) {
	return e.runQuiz(ctx, st, nil)
}

func (e *Engine) makeContextualQuiz(ctx context.Context, st *turnState) (flyt.Action, error) {
	return e.runQuiz(ctx, st, st.contextDocuments())
}

func (e *Engine) runQuiz(ctx context.Context, st *turnState, documents []string) (flyt.Action, error) {
	lctx, cancel := withTimeout(ctx, e.cfg.LLMTimeout)
	defer cancel()

	numQuestions, err := e.classifier.NumQuestions(lctx, st.Question)
	if err != nil {
		return "", err
	}
	difficulty, err := e.classifier.DifficultyLevel(lctx, st.Question)
	if err != nil {
		return "", err
	}

	result, err := e.quizzes.Run(ctx, quiz.Request{
		Topic:        st.Question,
		Documents:    documents,
		NumQuestions: numQuestions,
		Difficulty:   difficulty,
	})
	if err != nil {
		return "", fmt.Errorf("quiz generation failed: %w", err)
	}

	if !result.Quiz.Available() {
		st.Generation = quiz.NotAvailableMessage
		st.Outcome = OutcomeQuizNotAvailable
		return flyt.DefaultAction, nil
	}

	st.Generation = result.Quiz.Questions
	st.Outcome = OutcomeQuizGenerated
	slog.Info("Quiz generated",
		"thread_id", st.ThreadID,
		"questions", numQuestions,
		"difficulty", difficulty,
		"artifact", result.ArtifactPath)
	return flyt.DefaultAction, nil
}

// sendEmail mails the stored quiz artifact to every address mentioned in the
// conversation. Delivery is all-or-nothing: a transport failure fails the
// turn rather than reporting partial success.
func (e *Engine) sendEmail(ctx context.Context, st *turnState) (flyt.Action, error) {
	texts := make([]string, 0, len(st.History)+1)
	for _, m := range st.History {
		texts = append(texts, m.Content)
	}
	texts = append(texts, st.Question)

	recipients := mail.ExtractRecipients(texts)
	if len(recipients) == 0 {
		st.Generation = noRecipientsResponse
		st.Outcome = OutcomeEmailNotSent
		return flyt.DefaultAction, nil
	}

	content, err := os.ReadFile(e.cfg.ArtifactPath)
	if err != nil {
		slog.Warn("Quiz artifact unavailable for email", "path", e.cfg.ArtifactPath, "error", err)
		st.Generation = noArtifactResponse
		st.Outcome = OutcomeEmailNotSent
		return flyt.DefaultAction, nil
	}

	mctx, cancel := withTimeout(ctx, e.cfg.MailTimeout)
	defer cancel()

	err = e.mailer.Send(mctx, &mail.Message{
		To:      recipients,
		Subject: mail.QuizSubject,
		Body:    mail.QuizBody,
		Attachments: []mail.Attachment{
			{Filename: filepath.Base(e.cfg.ArtifactPath), Content: content},
		},
	})
	if err != nil {
		return "", err
	}

	slog.Info("Quiz emailed", "thread_id", st.ThreadID, "recipients", len(recipients))
	st.Generation = emailSentResponse
	st.Outcome = OutcomeEmailSent
	return flyt.DefaultAction, nil
}
