package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"whatsapp-relay/internal/config"
	"whatsapp-relay/internal/domain"
	"whatsapp-relay/internal/metrics"
)

const (
	ChannelWhatsApp = "whatsapp"
	ChannelTelegram = "telegram"

	// FallbackReply is sent whenever the completion service fails.
	FallbackReply = "Sorry, I'm having trouble responding right now. Please try again later."
)

var (
	ErrInvalidSender  = errors.New("invalid sender")
	ErrUnknownChannel = errors.New("unknown channel")
)

type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

type CompletionRequest struct {
	Model       string
	Messages    []domain.Message
	MaxTokens   int
	Temperature float32
}

// Sender delivers reply text to an address on one messaging platform.
type Sender interface {
	Send(ctx context.Context, to, text string) error
}

// Inbound is one message received from a messaging platform.
type Inbound struct {
	Channel string
	// ConversationID keys the stored transcript.
	ConversationID string
	// ReplyTo is the platform address the reply is sent to.
	ReplyTo string
	Text    string
}

type Service struct {
	conversations domain.ConversationStore
	settings      domain.SettingsStore
	client        Client
	senders       map[string]Sender
	cfg           config.Config
	window        Window
	locks         *keyedMutex
	log           zerolog.Logger
	now           func() time.Time
}

func NewService(
	conversations domain.ConversationStore,
	settings domain.SettingsStore,
	client Client,
	senders map[string]Sender,
	cfg config.Config,
	log zerolog.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		settings:      settings,
		client:        client,
		senders:       senders,
		cfg:           cfg,
		window: Window{
			MaxMessages: cfg.ContextLimit,
			MaxTokens:   cfg.ContextTokenLimit,
		},
		locks: newKeyedMutex(),
		log:   log.With().Str("component", "chat").Logger(),
		now:   time.Now,
	}
}

// WhatsAppSender extracts the sender key from a Twilio "From" value such as
// "whatsapp:+15551234567".
func WhatsAppSender(from string) (string, error) {
	from = strings.TrimSpace(from)
	if idx := strings.LastIndex(from, "whatsapp:"); idx >= 0 {
		from = from[idx+len("whatsapp:"):]
	}
	if from == "" {
		return "", ErrInvalidSender
	}
	return from, nil
}

// HandleMessage runs the relay pipeline for one inbound message and returns
// the reply text that was dispatched. Store, completion and dispatch
// failures degrade rather than fail; only invalid input is returned as an
// error.
func (s *Service) HandleMessage(ctx context.Context, in Inbound) (string, error) {
	if in.ConversationID == "" || in.ReplyTo == "" {
		return "", ErrInvalidSender
	}
	sender, ok := s.senders[in.Channel]
	if !ok {
		return "", ErrUnknownChannel
	}

	log := s.log.With().Str("channel", in.Channel).Str("conversation", in.ConversationID).Logger()

	unlock := s.locks.lock(in.ConversationID)
	defer unlock()

	history, err := s.conversations.History(ctx, in.ConversationID)
	if err != nil {
		log.Error().Err(err).Msg("load history failed, continuing with empty transcript")
		metrics.StoreErrorsTotal.WithLabelValues("load_history").Inc()
		history = nil
	}

	history = append(history, domain.Message{
		Role:      domain.RoleUser,
		Content:   in.Text,
		Timestamp: s.now(),
	})

	instruction := s.systemPrompt(ctx, log)
	messages := s.window.Apply(Compose(instruction, history))

	reply, fellBack := s.complete(ctx, messages, log)

	history = append(history, domain.Message{
		Role:      domain.RoleAssistant,
		Content:   reply,
		Timestamp: s.now(),
	})

	if err := s.conversations.SaveHistory(ctx, in.ConversationID, history); err != nil {
		log.Error().Err(err).Msg("save history failed, turn not persisted")
		metrics.StoreErrorsTotal.WithLabelValues("save_history").Inc()
	}

	s.dispatch(ctx, sender, in, reply, log)

	outcome := "replied"
	if fellBack {
		outcome = "fallback"
	}
	metrics.WebhookMessagesTotal.WithLabelValues(in.Channel, outcome).Inc()

	return reply, nil
}

func (s *Service) systemPrompt(ctx context.Context, log zerolog.Logger) string {
	prompt, err := s.settings.SystemPrompt(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			log.Error().Err(err).Msg("load system prompt failed")
			metrics.StoreErrorsTotal.WithLabelValues("load_system_prompt").Inc()
		}
		return ""
	}
	return prompt
}

func (s *Service) complete(ctx context.Context, messages []domain.Message, log zerolog.Logger) (string, bool) {
	if s.cfg.CompletionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CompletionTimeout)
		defer cancel()
	}

	reply, err := s.client.Complete(ctx, CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		log.Error().Err(err).Int("messages", len(messages)).Msg("completion failed, using fallback reply")
		metrics.CompletionFailuresTotal.Inc()
		return FallbackReply, true
	}
	return reply, false
}

func (s *Service) dispatch(ctx context.Context, sender Sender, in Inbound, reply string, log zerolog.Logger) {
	if s.cfg.DispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.DispatchTimeout)
		defer cancel()
	}

	if err := sender.Send(ctx, in.ReplyTo, reply); err != nil {
		log.Error().Err(err).Msg("send reply failed")
		metrics.DispatchFailuresTotal.WithLabelValues(in.Channel).Inc()
		return
	}
	log.Info().Int("reply_len", len(reply)).Msg("reply sent")
}
