package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"whatsapp-relay/internal/domain"
)

// Store implements the conversation, settings and session stores on top of
// a single Backend.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) History(ctx context.Context, id string) ([]domain.Message, error) {
	var doc conversationDoc
	err := s.backend.Get(ctx, domain.CollectionConversations, id, &doc)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history %q: %w", id, err)
	}
	return fromMessageDocs(doc.History), nil
}

func (s *Store) SaveHistory(ctx context.Context, id string, history []domain.Message) error {
	doc := conversationDoc{History: toMessageDocs(history)}
	if err := s.backend.Set(ctx, domain.CollectionConversations, id, doc); err != nil {
		return fmt.Errorf("save history %q: %w", id, err)
	}
	return nil
}

func (s *Store) Conversation(ctx context.Context, id string) (domain.Conversation, error) {
	var doc conversationDoc
	if err := s.backend.Get(ctx, domain.CollectionConversations, id, &doc); err != nil {
		return domain.Conversation{}, fmt.Errorf("load conversation %q: %w", id, err)
	}
	return domain.Conversation{ID: id, History: fromMessageDocs(doc.History)}, nil
}

// ListConversations skips documents that cannot be decoded.
func (s *Store) ListConversations(ctx context.Context) ([]domain.Conversation, error) {
	var convs []domain.Conversation
	err := s.backend.List(ctx, domain.CollectionConversations, func(id string, decode DecodeFunc) error {
		var doc conversationDoc
		if err := decode(&doc); err != nil {
			return nil
		}
		convs = append(convs, domain.Conversation{ID: id, History: fromMessageDocs(doc.History)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return convs, nil
}

func (s *Store) SystemPrompt(ctx context.Context) (string, error) {
	var doc settingsDoc
	if err := s.backend.Get(ctx, domain.CollectionSettings, domain.SettingsSystemPrompt, &doc); err != nil {
		return "", fmt.Errorf("load system prompt: %w", err)
	}
	return doc.Prompt, nil
}

func (s *Store) SetSystemPrompt(ctx context.Context, prompt string) error {
	if err := s.backend.Set(ctx, domain.CollectionSettings, domain.SettingsSystemPrompt, settingsDoc{Prompt: prompt}); err != nil {
		return fmt.Errorf("save system prompt: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess domain.Session) error {
	if err := s.backend.Set(ctx, domain.CollectionSessions, sess.ID, toSessionDoc(sess)); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *Store) Session(ctx context.Context, id string) (domain.Session, error) {
	var doc sessionDoc
	if err := s.backend.Get(ctx, domain.CollectionSessions, id, &doc); err != nil {
		return domain.Session{}, fmt.Errorf("load session: %w", err)
	}
	return fromSessionDoc(id, doc), nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, domain.CollectionSessions, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	var expired []string
	err := s.backend.List(ctx, domain.CollectionSessions, func(id string, decode DecodeFunc) error {
		var doc sessionDoc
		if err := decode(&doc); err != nil {
			// unreadable sessions can never authenticate anyone
			expired = append(expired, id)
			return nil
		}
		if fromSessionDoc(id, doc).Expired(now) {
			expired = append(expired, id)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	removed := 0
	for _, id := range expired {
		if err := s.backend.Delete(ctx, domain.CollectionSessions, id); err != nil {
			return removed, fmt.Errorf("delete session %q: %w", id, err)
		}
		removed++
	}
	return removed, nil
}
