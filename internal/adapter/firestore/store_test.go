package firestore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/domain"
)

// These tests run against the Firestore emulator, e.g.
//
//	gcloud emulators firestore start --host-port=localhost:8080
//	FIRESTORE_EMULATOR_HOST=localhost:8080 go test ./internal/adapter/firestore/
func openEmulator(t *testing.T) *docstore.Store {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	// a project per test keeps emulator state isolated
	project := fmt.Sprintf("relay-test-%d", time.Now().UnixNano())
	backend, err := Open(context.Background(), Config{ProjectID: project})
	require.NoError(t, err)

	store := docstore.NewStore(backend)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestHistoryRoundTrip(t *testing.T) {
	store := openEmulator(t)
	ctx := context.Background()

	history, err := store.History(ctx, "+15550001")
	require.NoError(t, err)
	assert.Empty(t, history)

	ts := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveHistory(ctx, "+15550001", []domain.Message{
		{Role: domain.RoleUser, Content: "hi", Timestamp: ts},
		{Role: domain.RoleAssistant, Content: "hello", Timestamp: ts.Add(time.Second)},
	}))

	history, err = store.History(ctx, "+15550001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[1].Content)
	assert.True(t, ts.Add(time.Second).Equal(history[1].Timestamp))

	convs, err := store.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "+15550001", convs[0].ID)
}

func TestSystemPromptMissingThenSet(t *testing.T) {
	store := openEmulator(t)
	ctx := context.Background()

	_, err := store.SystemPrompt(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SetSystemPrompt(ctx, "Be brief."))
	prompt, err := store.SystemPrompt(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Be brief.", prompt)
}

func TestExpiredSessionsPurged(t *testing.T) {
	store := openEmulator(t)
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateSession(ctx, domain.Session{
		ID: "old", Username: "admin", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour), Authenticated: true,
	}))
	require.NoError(t, store.CreateSession(ctx, domain.Session{
		ID: "live", Username: "admin", CreatedAt: now, ExpiresAt: now.Add(time.Hour), Authenticated: true,
	}))

	n, err := store.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Session(ctx, "old")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.Session(ctx, "live")
	require.NoError(t, err)
}
