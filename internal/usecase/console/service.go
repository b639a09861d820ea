package console

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-relay/internal/domain"
	"whatsapp-relay/internal/metrics"
)

const (
	DefaultSystemPrompt = "Default system prompt"
	DefaultPage         = 1
	DefaultPerPage      = 10
	MaxPerPage          = 100
)

type Service struct {
	conversations domain.ConversationStore
	settings      domain.SettingsStore
	log           zerolog.Logger
}

func NewService(conversations domain.ConversationStore, settings domain.SettingsStore, log zerolog.Logger) *Service {
	return &Service{
		conversations: conversations,
		settings:      settings,
		log:           log.With().Str("component", "console").Logger(),
	}
}

// SystemPrompt returns the stored instruction, or DefaultSystemPrompt when
// none is stored or it cannot be read.
func (s *Service) SystemPrompt(ctx context.Context) string {
	prompt, err := s.settings.SystemPrompt(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error().Err(err).Msg("load system prompt failed")
			metrics.StoreErrorsTotal.WithLabelValues("load_system_prompt").Inc()
		}
		return DefaultSystemPrompt
	}
	return prompt
}

func (s *Service) SetSystemPrompt(ctx context.Context, prompt string) error {
	if err := s.settings.SetSystemPrompt(ctx, prompt); err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("save_system_prompt").Inc()
		return err
	}
	s.log.Info().Int("length", len(prompt)).Msg("system prompt updated")
	return nil
}

type LogQuery struct {
	PhoneNumber string
	Page        int
	PerPage     int
}

// LogEntry is one conversation prepared for display.
type LogEntry struct {
	PhoneNumber  string
	Groups       [][]domain.Message
	MessageCount int
	LastActivity time.Time
}

// Logs lists conversations, newest activity first, grouped into reply
// pairs and paginated.
func (s *Service) Logs(ctx context.Context, q LogQuery) (Page[LogEntry], error) {
	convs, err := s.loadConversations(ctx, strings.TrimSpace(q.PhoneNumber))
	if err != nil {
		return Page[LogEntry]{}, err
	}

	entries := make([]LogEntry, 0, len(convs))
	for _, c := range convs {
		entries = append(entries, LogEntry{
			PhoneNumber:  c.ID,
			Groups:       GroupMessages(c.History),
			MessageCount: len(c.History),
			LastActivity: c.LastActivity(),
		})
	}
	SortByActivity(entries)

	return Paginate(entries, q.Page, q.PerPage), nil
}

func (s *Service) loadConversations(ctx context.Context, phone string) ([]domain.Conversation, error) {
	if phone == "" {
		convs, err := s.conversations.ListConversations(ctx)
		if err != nil {
			metrics.StoreErrorsTotal.WithLabelValues("list_conversations").Inc()
			return nil, err
		}
		return convs, nil
	}

	conv, err := s.conversations.Conversation(ctx, phone)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		metrics.StoreErrorsTotal.WithLabelValues("load_conversation").Inc()
		return nil, fmt.Errorf("conversation %q: %w", phone, err)
	}
	return []domain.Conversation{conv}, nil
}

// SortByActivity orders entries by latest message descending. Entries
// without timestamps go last; ties are ordered by phone number.
func SortByActivity(entries []LogEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].LastActivity, entries[j].LastActivity
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].PhoneNumber < entries[j].PhoneNumber
	})
}
