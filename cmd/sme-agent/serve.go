package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourabpanch7/sme-agent/pkg/classifier"
	"github.com/sourabpanch7/sme-agent/pkg/config"
	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/mail"
	"github.com/sourabpanch7/sme-agent/pkg/quiz"
	"github.com/sourabpanch7/sme-agent/pkg/retrieval"
	"github.com/sourabpanch7/sme-agent/pkg/server"
	"github.com/sourabpanch7/sme-agent/pkg/session"
	"github.com/sourabpanch7/sme-agent/pkg/vector"
	"github.com/sourabpanch7/sme-agent/pkg/websearch"
	"github.com/sourabpanch7/sme-agent/pkg/workflow"
)

// ServeCmd starts the chat server.
type ServeCmd struct {
	Addr string `help:"Listen address (overrides config)."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}

	engine, closeFn, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.New(engine),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// buildEngine constructs the workflow engine and its collaborators from
// config. The returned func releases LLM clients.
func buildEngine(cfg *config.Config) (*workflow.Engine, func(), error) {
	generator, err := llm.NewGeminiProvider(llm.GeminiConfig{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create generator: %w", err)
	}

	grader, err := llm.NewGeminiProvider(llm.GeminiConfig{
		APIKey: cfg.LLM.APIKey,
		Model:  cfg.LLM.GraderModel,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create grader: %w", err)
	}

	closeFn := func() {
		_ = generator.Close()
		_ = grader.Close()
	}

	embedderKey := cfg.Embedder.APIKey
	if embedderKey == "" {
		embedderKey = cfg.LLM.APIKey
	}
	embedder, err := llm.NewGeminiEmbedder(llm.GeminiEmbedderConfig{
		APIKey: embedderKey,
		Model:  cfg.Embedder.Model,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.NewChromemStore(vector.ChromemConfig{
		PersistPath: cfg.Retrieval.PersistPath,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	collections := make([]retrieval.Collection, 0, len(cfg.Retrieval.Collections))
	for _, col := range cfg.Retrieval.Collections {
		collections = append(collections, retrieval.Collection{
			Name:   col.Name,
			Weight: col.Weight,
		})
	}

	var reranker *retrieval.Reranker
	if cfg.Retrieval.Rerank {
		reranker = retrieval.NewReranker(grader, cfg.Retrieval.RerankKeep)
	}

	coordinator, err := retrieval.NewCoordinator(store, embedder, retrieval.CoordinatorConfig{
		Collections: collections,
		TopK:        cfg.Retrieval.TopK,
		Reranker:    reranker,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create retrieval coordinator: %w", err)
	}

	searcher, err := websearch.NewClient(websearch.ClientConfig{
		APIKey:     cfg.Search.APIKey,
		BaseURL:    cfg.Search.BaseURL,
		MaxResults: cfg.Search.MaxResults,
		Timeout:    cfg.Search.Timeout,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create search client: %w", err)
	}

	decider, err := classifier.New(grader)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	quizGenerator, err := quiz.NewGenerator(generator)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	artifact, err := quiz.NewArtifactWriter(cfg.Quiz.ArtifactPath)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	quizAgent, err := quiz.NewAgent(quiz.AgentConfig{
		Generator:         quizGenerator,
		Retriever:         coordinator,
		Artifact:          artifact,
		MaxToolCycles:     cfg.Quiz.MaxToolCycles,
		DefaultQuestions:  cfg.Quiz.DefaultQuestions,
		DefaultDifficulty: cfg.Quiz.DefaultDifficulty,
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	mailer, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.SMTPHost,
		Port:     cfg.Mail.SMTPPort,
		From:     cfg.Mail.From,
		Password: cfg.Mail.Password,
		Timeout:  cfg.Mail.Timeout,
	})
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("failed to create mailer: %w", err)
	}

	engine, err := workflow.NewEngine(workflow.Deps{
		Classifier: decider,
		Generator:  generator,
		Retriever:  coordinator,
		Searcher:   searcher,
		Quizzes:    quizAgent,
		Mailer:     mailer,
		Sessions:   session.InMemoryStore(),
		Config: workflow.Config{
			MaxGradingRetries: cfg.Workflow.MaxGradingRetries,
			MaxDocuments:      cfg.Workflow.MaxDocuments,
			ArtifactPath:      cfg.Quiz.ArtifactPath,
			LLMTimeout:        cfg.LLM.Timeout,
			RetrievalTimeout:  cfg.Retrieval.Timeout,
			SearchTimeout:     cfg.Search.Timeout,
			MailTimeout:       cfg.Mail.Timeout,
		},
	})
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	return engine, closeFn, nil
}
