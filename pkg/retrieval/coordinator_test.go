package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
	"github.com/sourabpanch7/sme-agent/pkg/vector"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

type fakeStore struct {
	results map[string][]vector.Result
	errors  map[string]error
	queried []string
}

func (f *fakeStore) Upsert(ctx context.Context, collection, id string, vec []float32, content string, metadata map[string]string) error {
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vec []float32, topK int) ([]vector.Result, error) {
	f.queried = append(f.queried, collection)
	if err, ok := f.errors[collection]; ok {
		return nil, err
	}
	return f.results[collection], nil
}

func (f *fakeStore) Count(ctx context.Context, collection string) (int, error) {
	return len(f.results[collection]), nil
}

func testCollections() []Collection {
	return []Collection{
		{Name: "laws", Weight: 0.7},
		{Name: "laws_extended", Weight: 0.2},
		{Name: "laws_hindi", Weight: 0.1},
	}
}

func TestNewCoordinator_Validation(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}

	tests := []struct {
		name     string
		store    vector.Store
		embedder llm.Embedder
		cfg      CoordinatorConfig
		wantErr  string
	}{
		{
			name:     "missing store",
			embedder: embedder,
			cfg:      CoordinatorConfig{Collections: testCollections()},
			wantErr:  "vector store is required",
		},
		{
			name:    "missing embedder",
			store:   store,
			cfg:     CoordinatorConfig{Collections: testCollections()},
			wantErr: "embedder is required",
		},
		{
			name:     "no collections",
			store:    store,
			embedder: embedder,
			cfg:      CoordinatorConfig{},
			wantErr:  "at least one collection",
		},
		{
			name:     "zero weight",
			store:    store,
			embedder: embedder,
			cfg: CoordinatorConfig{
				Collections: []Collection{{Name: "laws", Weight: 0}},
			},
			wantErr: "weight must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCoordinator(tt.store, tt.embedder, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCoordinator_RetrieveMergesAllCollections(t *testing.T) {
	store := &fakeStore{
		results: map[string][]vector.Result{
			"laws": {
				{ID: "a", Content: "patent term is twenty years", Score: 0.9},
				{ID: "b", Content: "trademark renewal", Score: 0.8},
			},
			"laws_extended": {
				{ID: "c", Content: "patent filing procedure", Score: 0.85},
			},
			"laws_hindi": {
				{ID: "d", Content: "copyright duration", Score: 0.7},
			},
		},
	}

	coord, err := NewCoordinator(store, &fakeEmbedder{}, CoordinatorConfig{
		Collections: testCollections(),
	})
	require.NoError(t, err)

	passages, err := coord.Retrieve(context.Background(), "how long does a patent last", 5)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"laws", "laws_extended", "laws_hindi"}, store.queried)
	require.Len(t, passages, 4)

	// The top hit from the heaviest collection must rank first.
	assert.Equal(t, "a", passages[0].ID)
	assert.Equal(t, "laws", passages[0].Collection)

	// Fused scores are descending.
	for i := 1; i < len(passages); i++ {
		assert.GreaterOrEqual(t, passages[i-1].Score, passages[i].Score)
	}
}

func TestCoordinator_RetrieveWeightsDecideTies(t *testing.T) {
	// Same rank in two collections: the heavier collection's hit wins.
	store := &fakeStore{
		results: map[string][]vector.Result{
			"laws":          {{ID: "heavy", Content: "heavy", Score: 0.5}},
			"laws_extended": {{ID: "light", Content: "light", Score: 0.99}},
			"laws_hindi":    nil,
		},
	}

	coord, err := NewCoordinator(store, &fakeEmbedder{}, CoordinatorConfig{
		Collections: testCollections(),
	})
	require.NoError(t, err)

	passages, err := coord.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "heavy", passages[0].ID)
}

func TestCoordinator_RetrieveSumsDuplicateHits(t *testing.T) {
	// A passage found by two collections fuses both contributions and beats
	// a single-collection hit at the same rank.
	store := &fakeStore{
		results: map[string][]vector.Result{
			"laws": {
				{ID: "solo", Content: "solo", Score: 0.9},
				{ID: "both", Content: "both", Score: 0.8},
			},
			"laws_extended": {
				{ID: "both", Content: "both", Score: 0.9},
			},
			"laws_hindi": {
				{ID: "both", Content: "both", Score: 0.9},
			},
		},
	}

	coord, err := NewCoordinator(store, &fakeEmbedder{}, CoordinatorConfig{
		Collections: []Collection{
			{Name: "laws", Weight: 0.4},
			{Name: "laws_extended", Weight: 0.3},
			{Name: "laws_hindi", Weight: 0.3},
		},
	})
	require.NoError(t, err)

	passages, err := coord.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	assert.Equal(t, "both", passages[0].ID)
}

func TestCoordinator_RetrieveDegradesOnEmbedFailure(t *testing.T) {
	coord, err := NewCoordinator(&fakeStore{}, &fakeEmbedder{err: fmt.Errorf("embedder down")}, CoordinatorConfig{
		Collections: testCollections(),
	})
	require.NoError(t, err)

	passages, err := coord.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, passages)
}

func TestCoordinator_RetrieveSkipsFailingCollections(t *testing.T) {
	store := &fakeStore{
		results: map[string][]vector.Result{
			"laws_extended": {{ID: "x", Content: "x", Score: 0.5}},
		},
		errors: map[string]error{
			"laws":       fmt.Errorf("collection unreachable"),
			"laws_hindi": fmt.Errorf("collection unreachable"),
		},
	}

	coord, err := NewCoordinator(store, &fakeEmbedder{}, CoordinatorConfig{
		Collections: testCollections(),
	})
	require.NoError(t, err)

	passages, err := coord.Retrieve(context.Background(), "q", 5)
	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, "x", passages[0].ID)
}

func TestCoordinator_RetrieveEmptyQuery(t *testing.T) {
	coord, err := NewCoordinator(&fakeStore{}, &fakeEmbedder{}, CoordinatorConfig{
		Collections: testCollections(),
	})
	require.NoError(t, err)

	_, err = coord.Retrieve(context.Background(), "", 5)
	assert.Error(t, err)
}
