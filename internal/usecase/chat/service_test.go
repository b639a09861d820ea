package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-relay/internal/adapter/docstore"
	"whatsapp-relay/internal/adapter/memory"
	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/domain"
)

type fakeClient struct {
	mu    sync.Mutex
	reply string
	err   error
	reqs  []CompletionRequest
}

func (f *fakeClient) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

type sent struct {
	to   string
	text string
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (f *fakeSender) Send(_ context.Context, to, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{to: to, text: text})
	return f.err
}

type brokenStore struct {
	*docstore.Store
}

func (brokenStore) History(context.Context, string) ([]domain.Message, error) {
	return nil, errors.New("backend unavailable")
}

func (brokenStore) SaveHistory(context.Context, string, []domain.Message) error {
	return errors.New("backend unavailable")
}

func (brokenStore) SystemPrompt(context.Context) (string, error) {
	return "", errors.New("backend unavailable")
}

var testNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, client Client, sender Sender) (*Service, *docstore.Store) {
	t.Helper()
	store := docstore.NewStore(memory.NewStore())
	cfg := config.Config{Model: "gpt-test", MaxTokens: 200, Temperature: 0.7}
	svc := NewService(store, store, client, map[string]Sender{ChannelWhatsApp: sender}, cfg, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func whatsapp(number, text string) Inbound {
	return Inbound{Channel: ChannelWhatsApp, ConversationID: number, ReplyTo: number, Text: text}
}

func TestHandleMessageAppendsUserThenAssistant(t *testing.T) {
	client := &fakeClient{reply: "hello there"}
	sender := &fakeSender{}
	svc, store := newTestService(t, client, sender)
	ctx := context.Background()
	require.NoError(t, store.SetSystemPrompt(ctx, "be kind"))

	reply, err := svc.HandleMessage(ctx, whatsapp("+15551234567", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "hello there", reply)

	history, err := store.History(ctx, "+15551234567")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.Message{Role: domain.RoleUser, Content: "hi", Timestamp: testNow}, history[0])
	assert.Equal(t, domain.Message{Role: domain.RoleAssistant, Content: "hello there", Timestamp: testNow}, history[1])

	_, err = svc.HandleMessage(ctx, whatsapp("+15551234567", "again"))
	require.NoError(t, err)
	history, err = store.History(ctx, "+15551234567")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, domain.RoleUser, history[2].Role)
	assert.Equal(t, "again", history[2].Content)
	assert.Equal(t, domain.RoleAssistant, history[3].Role)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, sent{to: "+15551234567", text: "hello there"}, sender.sent[0])
}

func TestHandleMessageComposesPrompt(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	svc, store := newTestService(t, client, &fakeSender{})
	ctx := context.Background()
	require.NoError(t, store.SetSystemPrompt(ctx, "instruction"))
	require.NoError(t, store.SaveHistory(ctx, "+1", []domain.Message{
		{Role: domain.RoleUser, Content: "a"},
		{Role: domain.RoleAssistant, Content: "b"},
	}))

	_, err := svc.HandleMessage(ctx, whatsapp("+1", "c"))
	require.NoError(t, err)

	require.Len(t, client.reqs, 1)
	req := client.reqs[0]
	assert.Equal(t, "gpt-test", req.Model)
	assert.Equal(t, 200, req.MaxTokens)
	assert.InDelta(t, 0.7, req.Temperature, 0.0001)

	var got []string
	for _, m := range req.Messages {
		got = append(got, m.Role+":"+m.Content)
	}
	assert.Equal(t, []string{"system:instruction", "user:a", "assistant:b", "user:c"}, got)
}

func TestHandleMessageMissingPromptUsesEmptyInstruction(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	svc, _ := newTestService(t, client, &fakeSender{})

	_, err := svc.HandleMessage(context.Background(), whatsapp("+1", "x"))
	require.NoError(t, err)
	require.Len(t, client.reqs, 1)
	assert.Equal(t, domain.Message{Role: domain.RoleSystem}, client.reqs[0].Messages[0])
}

func TestHandleMessageCompletionFailureFallsBack(t *testing.T) {
	client := &fakeClient{err: errors.New("quota exceeded")}
	sender := &fakeSender{}
	svc, store := newTestService(t, client, sender)
	ctx := context.Background()

	reply, err := svc.HandleMessage(ctx, whatsapp("+1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, FallbackReply, reply)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, FallbackReply, sender.sent[0].text)

	history, err := store.History(ctx, "+1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, FallbackReply, history[1].Content)
}

func TestHandleMessageDispatchFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("twilio down")}
	svc, store := newTestService(t, &fakeClient{reply: "ok"}, sender)
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, whatsapp("+1", "hi"))
	require.NoError(t, err)

	history, err := store.History(ctx, "+1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestHandleMessageStoreFailuresDegrade(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	sender := &fakeSender{}
	store := brokenStore{Store: docstore.NewStore(memory.NewStore())}
	svc := NewService(store, store, client, map[string]Sender{ChannelWhatsApp: sender}, config.Config{}, zerolog.Nop())

	reply, err := svc.HandleMessage(context.Background(), whatsapp("+1", "hi"))
	require.NoError(t, err)
	assert.Equal(t, "ok", reply)

	require.Len(t, client.reqs, 1)
	require.Len(t, client.reqs[0].Messages, 2)
	assert.Equal(t, "", client.reqs[0].Messages[0].Content)
	assert.Len(t, sender.sent, 1)
}

func TestHandleMessageRejectsBadInput(t *testing.T) {
	svc, _ := newTestService(t, &fakeClient{}, &fakeSender{})
	ctx := context.Background()

	_, err := svc.HandleMessage(ctx, Inbound{Channel: ChannelWhatsApp, Text: "hi"})
	require.ErrorIs(t, err, ErrInvalidSender)

	_, err = svc.HandleMessage(ctx, Inbound{Channel: ChannelTelegram, ConversationID: "telegram:1", ReplyTo: "1"})
	require.ErrorIs(t, err, ErrUnknownChannel)
}

func TestHandleMessageAppliesWindow(t *testing.T) {
	client := &fakeClient{reply: "ok"}
	svc, store := newTestService(t, client, &fakeSender{})
	svc.window = Window{MaxMessages: 2}
	ctx := context.Background()
	require.NoError(t, store.SaveHistory(ctx, "+1", []domain.Message{
		{Role: domain.RoleUser, Content: "old"},
		{Role: domain.RoleAssistant, Content: "older reply"},
		{Role: domain.RoleUser, Content: "recent"},
		{Role: domain.RoleAssistant, Content: "recent reply"},
	}))

	_, err := svc.HandleMessage(ctx, whatsapp("+1", "now"))
	require.NoError(t, err)

	msgs := client.reqs[0].Messages
	require.Len(t, msgs, 3)
	assert.Equal(t, domain.RoleSystem, msgs[0].Role)
	assert.Equal(t, "recent reply", msgs[1].Content)
	assert.Equal(t, "now", msgs[2].Content)

	history, err := store.History(ctx, "+1")
	require.NoError(t, err)
	assert.Len(t, history, 6)
}

func TestHandleMessageSerializesSameSender(t *testing.T) {
	svc, store := newTestService(t, &fakeClient{reply: "ok"}, &fakeSender{})
	ctx := context.Background()

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.HandleMessage(ctx, whatsapp("+1", "hi"))
		}()
	}
	wg.Wait()

	history, err := store.History(ctx, "+1")
	require.NoError(t, err)
	assert.Len(t, history, 2*n)
	for i := 0; i < len(history); i += 2 {
		assert.Equal(t, domain.RoleUser, history[i].Role)
		assert.Equal(t, domain.RoleAssistant, history[i+1].Role)
	}
	assert.Empty(t, svc.locks.locks)
}

func TestWhatsAppSender(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "whatsapp:+15551234567", want: "+15551234567"},
		{in: "+15551234567", want: "+15551234567"},
		{in: " whatsapp:+1 ", want: "+1"},
		{in: "whatsapp:", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := WhatsAppSender(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSender, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
