package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/vector"
)

// IngestCmd loads text documents into a collection so they can be retrieved
// during conversations.
type IngestCmd struct {
	Path       string `arg:"" help:"File or directory of .txt/.md documents." type:"path"`
	Collection string `help:"Target collection name." default:"ip_laws"`
	ChunkSize  int    `help:"Approximate chunk size in characters." default:"2000"`
}

func (c *IngestCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return err
	}
	cleanup, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	embedderKey := cfg.Embedder.APIKey
	if embedderKey == "" {
		embedderKey = cfg.LLM.APIKey
	}
	embedder, err := llm.NewGeminiEmbedder(llm.GeminiEmbedderConfig{
		APIKey: embedderKey,
		Model:  cfg.Embedder.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := vector.NewChromemStore(vector.ChromemConfig{
		PersistPath: cfg.Retrieval.PersistPath,
	})
	if err != nil {
		return fmt.Errorf("failed to open vector store: %w", err)
	}

	files, err := collectFiles(c.Path)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no .txt or .md files found under %s", c.Path)
	}

	ctx := context.Background()
	total := 0
	for _, file := range files {
		n, err := c.ingestFile(ctx, embedder, store, file)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", file, err)
		}
		total += n
		slog.Info("Ingested document", "file", file, "chunks", n, "collection", c.Collection)
	}

	count, err := store.Count(ctx, c.Collection)
	if err != nil {
		return err
	}
	fmt.Printf("Ingested %d chunks from %d files; collection %q now holds %d documents.\n",
		total, len(files), c.Collection, count)
	return nil
}

func (c *IngestCmd) ingestFile(ctx context.Context, embedder llm.Embedder, store vector.Store, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	chunks := chunkText(string(data), c.ChunkSize)
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := embedder.Embed(ctx, chunks)
	if err != nil {
		return 0, err
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	for i, chunk := range chunks {
		err := store.Upsert(ctx, c.Collection, uuid.NewString(), vectors[i], chunk, map[string]string{
			"source": filepath.Base(path),
			"chunk":  fmt.Sprintf("%d", i),
		})
		if err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

func collectFiles(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// chunkText splits text on blank lines, then packs paragraphs into chunks of
// roughly maxLen characters without splitting a paragraph.
func chunkText(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = 2000
	}

	var chunks []string
	var current strings.Builder
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(para) > maxLen {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
