package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourabpanch7/sme-agent/pkg/llm"
)

func TestInMemoryStore_LoadUnknownThread(t *testing.T) {
	store := InMemoryStore()

	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestInMemoryStore_SaveAndLoad(t *testing.T) {
	store := InMemoryStore()
	ctx := context.Background()

	state := State{
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: "what is a patent?"},
			{Role: llm.RoleAssistant, Content: "a patent is..."},
		},
		Documents: []string{"patent term is twenty years"},
	}
	require.NoError(t, store.Save(ctx, "t1", "generate", state))

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, state.Messages, loaded.Messages)
	assert.Equal(t, state.Documents, loaded.Documents)
}

func TestInMemoryStore_LoadIsolatesCallers(t *testing.T) {
	store := InMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "t1", "retrieve", State{
		Documents: []string{"original"},
	}))

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	loaded.Documents[0] = "mutated"

	again, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "original", again.Documents[0])
}

func TestInMemoryStore_CheckpointTrail(t *testing.T) {
	store := InMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "t1", "validate_question", State{}))
	require.NoError(t, store.Save(ctx, "t1", "retrieve", State{
		Documents: []string{"doc"},
	}))
	require.NoError(t, store.Save(ctx, "t1", "generate", State{
		Documents: []string{"doc"},
		Messages:  []llm.Message{{Role: llm.RoleAssistant, Content: "answer"}},
	}))

	trail, err := store.Checkpoints(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, "validate_question", trail[0].Step)
	assert.Equal(t, "retrieve", trail[1].Step)
	assert.Equal(t, "generate", trail[2].Step)

	// Latest state reflects the last checkpoint.
	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, loaded.Messages, 1)
}

func TestInMemoryStore_Delete(t *testing.T) {
	store := InMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "t1", "generate", State{}))
	require.NoError(t, store.Delete(ctx, "t1"))

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, ErrThreadNotFound)

	_, err = store.Checkpoints(ctx, "t1")
	assert.ErrorIs(t, err, ErrThreadNotFound)

	// Deleting a missing thread is a no-op.
	assert.NoError(t, store.Delete(ctx, "t1"))
}

func TestInMemoryStore_ThreadsAreIndependent(t *testing.T) {
	store := InMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "t1", "generate", State{Documents: []string{"a"}}))
	require.NoError(t, store.Save(ctx, "t2", "generate", State{Documents: []string{"b"}}))
	require.NoError(t, store.Delete(ctx, "t1"))

	loaded, err := store.Load(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, loaded.Documents)
}

func TestNewThreadID_Unique(t *testing.T) {
	assert.NotEqual(t, NewThreadID(), NewThreadID())
}
