package domain

import (
	"context"
	"errors"
	"time"
)

const (
	CollectionSettings      = "settings"
	CollectionConversations = "conversations"
	CollectionSessions      = "user_sessions"

	SettingsSystemPrompt = "system_prompt"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrMalformed = errors.New("malformed document")
)

type ConversationStore interface {
	// History returns nil and no error for a sender that was never seen.
	History(ctx context.Context, id string) ([]Message, error)
	SaveHistory(ctx context.Context, id string, history []Message) error
	Conversation(ctx context.Context, id string) (Conversation, error)
	ListConversations(ctx context.Context) ([]Conversation, error)
}

type SettingsStore interface {
	// SystemPrompt returns ErrNotFound when no instruction was ever saved.
	SystemPrompt(ctx context.Context) (string, error)
	SetSystemPrompt(ctx context.Context, prompt string) error
}

type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	Session(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes every session expired at now and
	// reports how many were removed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error)
}
