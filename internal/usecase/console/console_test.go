package console

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/adapter/memory"
	"whatsapp-relay/internal/domain"
)

func m(role, content string) domain.Message {
	return domain.Message{Role: role, Content: content}
}

func TestGroupMessagesPairs(t *testing.T) {
	a, b := m(domain.RoleUser, "A"), m(domain.RoleAssistant, "B")
	c, d := m(domain.RoleUser, "C"), m(domain.RoleAssistant, "D")

	assert.Equal(t, [][]domain.Message{{a, b}, {c, d}}, GroupMessages([]domain.Message{a, b, c, d}))
	assert.Equal(t, [][]domain.Message{{a, b}, {c}}, GroupMessages([]domain.Message{a, b, c}))
}

func TestGroupMessagesIrregular(t *testing.T) {
	sys := m(domain.RoleSystem, "S")
	u1, u2 := m(domain.RoleUser, "u1"), m(domain.RoleUser, "u2")
	a1, a2 := m(domain.RoleAssistant, "a1"), m(domain.RoleAssistant, "a2")

	got := GroupMessages([]domain.Message{sys, a1, u1, u2, a2})
	assert.Equal(t, [][]domain.Message{{a1}, {u1}, {u2, a2}}, got)

	assert.Empty(t, GroupMessages(nil))
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}

	first := Paginate(items, 1, 10)
	assert.Len(t, first.Items, 10)
	assert.True(t, first.HasNextPage)
	assert.False(t, first.HasPrevPage)
	assert.Equal(t, 3, first.TotalPages)
	assert.Equal(t, 25, first.Total)

	last := Paginate(items, 3, 10)
	assert.Len(t, last.Items, 5)
	assert.False(t, last.HasNextPage)
	assert.True(t, last.HasPrevPage)
	assert.Equal(t, 20, last.Items[0])

	beyond := Paginate(items, 1<<40, 10)
	assert.Empty(t, beyond.Items)
	assert.False(t, beyond.HasNextPage)

	defaults := Paginate(items, 0, -1)
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, DefaultPerPage, defaults.PerPage)

	capped := Paginate(items, 1, 1000)
	assert.Equal(t, MaxPerPage, capped.PerPage)
	assert.Len(t, capped.Items, 25)

	empty := Paginate([]int{}, 1, 10)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
}

func newService(t *testing.T) (*Service, *docstore.Store) {
	t.Helper()
	store := docstore.NewStore(memory.NewStore())
	return NewService(store, store, zerolog.Nop()), store
}

func TestSystemPromptDefaultAndRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	assert.Equal(t, DefaultSystemPrompt, svc.SystemPrompt(ctx))

	require.NoError(t, svc.SetSystemPrompt(ctx, "You are a helpful assistant."))
	assert.Equal(t, "You are a helpful assistant.", svc.SystemPrompt(ctx))

	require.NoError(t, svc.SetSystemPrompt(ctx, ""))
	assert.Equal(t, "", svc.SystemPrompt(ctx))
}

func TestLogsSortedAndPaginated(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	base := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("+1555%04d", i)
		require.NoError(t, store.SaveHistory(ctx, id, []domain.Message{
			{Role: domain.RoleUser, Content: "q", Timestamp: base.Add(time.Duration(i) * time.Minute)},
			{Role: domain.RoleAssistant, Content: "a", Timestamp: base.Add(time.Duration(i)*time.Minute + time.Second)},
		}))
	}

	page1, err := svc.Logs(ctx, LogQuery{Page: 1, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page1.Items, 10)
	assert.True(t, page1.HasNextPage)
	assert.False(t, page1.HasPrevPage)
	assert.Equal(t, "+15550024", page1.Items[0].PhoneNumber)
	assert.Equal(t, 2, page1.Items[0].MessageCount)
	require.Len(t, page1.Items[0].Groups, 1)

	page3, err := svc.Logs(ctx, LogQuery{Page: 3, PerPage: 10})
	require.NoError(t, err)
	require.Len(t, page3.Items, 5)
	assert.False(t, page3.HasNextPage)
	assert.True(t, page3.HasPrevPage)
	assert.Equal(t, "+15550000", page3.Items[4].PhoneNumber)
}

func TestLogsFilterByPhone(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	require.NoError(t, store.SaveHistory(ctx, "+1", []domain.Message{m(domain.RoleUser, "x")}))
	require.NoError(t, store.SaveHistory(ctx, "+2", []domain.Message{m(domain.RoleUser, "y")}))

	got, err := svc.Logs(ctx, LogQuery{PhoneNumber: "+2"})
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "+2", got.Items[0].PhoneNumber)

	missing, err := svc.Logs(ctx, LogQuery{PhoneNumber: "+3"})
	require.NoError(t, err)
	assert.Empty(t, missing.Items)
}

func TestSortByActivityUndatedLast(t *testing.T) {
	now := time.Now()
	entries := []LogEntry{
		{PhoneNumber: "b"},
		{PhoneNumber: "old", LastActivity: now.Add(-time.Hour)},
		{PhoneNumber: "a"},
		{PhoneNumber: "new", LastActivity: now},
	}
	SortByActivity(entries)

	var order []string
	for _, e := range entries {
		order = append(order, e.PhoneNumber)
	}
	assert.Equal(t, []string{"new", "old", "a", "b"}, order)
}

type failingStore struct {
	*docstore.Store
}

func (failingStore) ListConversations(context.Context) ([]domain.Conversation, error) {
	return nil, errors.New("unavailable")
}

func (failingStore) SystemPrompt(context.Context) (string, error) {
	return "", errors.New("unavailable")
}

func TestStoreFailures(t *testing.T) {
	store := failingStore{Store: docstore.NewStore(memory.NewStore())}
	svc := NewService(store, store, zerolog.Nop())
	ctx := context.Background()

	assert.Equal(t, DefaultSystemPrompt, svc.SystemPrompt(ctx))

	_, err := svc.Logs(ctx, LogQuery{})
	require.Error(t, err)
}
