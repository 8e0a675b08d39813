package vector

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemStore implements Store using chromem-go for embedded vector storage.
//
// It keeps vectors in memory with optional file persistence, requires no
// external services, and does cosine similarity search. Embeddings are always
// pre-computed by the caller; the store never embeds.
type ChromemStore struct {
	db          *chromem.DB
	persistPath string
	mu          sync.RWMutex

	// collections caches collection handles
	collections map[string]*chromem.Collection

	// embeddingFunc satisfies chromem's collection API; vectors are
	// pre-computed so it must never be called.
	embeddingFunc chromem.EmbeddingFunc
}

// ChromemConfig configures the chromem store.
type ChromemConfig struct {
	// PersistPath enables file persistence when non-empty. The directory is
	// created if missing.
	PersistPath string `yaml:"persist_path,omitempty"`
}

// NewChromemStore creates a chromem-backed store.
func NewChromemStore(cfg ChromemConfig) (*ChromemStore, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.PersistPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create persist directory: %w", err)
		}
		var err error
		db, err = chromem.NewPersistentDB(cfg.PersistPath, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector database: %w", err)
		}
		slog.Info("Opened vector database", "path", cfg.PersistPath)
	} else {
		db = chromem.NewDB()
		slog.Info("Created in-memory vector database (no persistence)")
	}

	// Identity function: vectors are always supplied pre-computed.
	identityEmbed := func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("embedding function called but vectors should be pre-computed")
	}

	return &ChromemStore{
		db:            db,
		persistPath:   cfg.PersistPath,
		collections:   make(map[string]*chromem.Collection),
		embeddingFunc: identityEmbed,
	}, nil
}

// Upsert adds or updates a document with its pre-computed embedding.
func (s *ChromemStore) Upsert(ctx context.Context, collection, id string, vector []float32, content string, metadata map[string]string) error {
	col, err := s.getCollection(collection)
	if err != nil {
		return err
	}

	doc := chromem.Document{
		ID:        id,
		Content:   content,
		Metadata:  metadata,
		Embedding: vector,
	}
	if err := col.AddDocuments(ctx, []chromem.Document{doc}, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to upsert document: %w", err)
	}
	return nil
}

// Search finds the topK most similar documents in a collection.
func (s *ChromemStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error) {
	col, err := s.getCollection(collection)
	if err != nil {
		return nil, err
	}

	// chromem rejects topK above the collection size.
	if count := col.Count(); topK > count {
		topK = count
	}
	if topK == 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("search in %q failed: %w", collection, err)
	}

	out := make([]Result, 0, len(results))
	for _, r := range results {
		out = append(out, Result{
			ID:       r.ID,
			Score:    r.Similarity,
			Content:  r.Content,
			Metadata: r.Metadata,
		})
	}
	return out, nil
}

// Count reports the number of documents in a collection.
func (s *ChromemStore) Count(ctx context.Context, collection string) (int, error) {
	col, err := s.getCollection(collection)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// getCollection returns a cached or newly created collection handle.
func (s *ChromemStore) getCollection(name string) (*chromem.Collection, error) {
	if name == "" {
		return nil, fmt.Errorf("collection name cannot be empty")
	}

	s.mu.RLock()
	col, ok := s.collections[name]
	s.mu.RUnlock()
	if ok {
		return col, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[name]; ok {
		return col, nil
	}

	col, err := s.db.GetOrCreateCollection(name, nil, s.embeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to get/create collection %q: %w", name, err)
	}
	s.collections[name] = col
	return col, nil
}
