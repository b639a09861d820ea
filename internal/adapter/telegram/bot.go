package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"whatsapp-relay/internal/usecase/chat"
)

const (
	chunkSize      = 4096
	conversationNS = "telegram:"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

func NewBot(token string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api}, nil
}

// NewBotWithEndpoint talks to an alternative Bot API server. endpoint uses
// the tgbotapi.APIEndpoint format.
func NewBotWithEndpoint(token, endpoint string, client tgbotapi.HTTPClient) (*Bot, error) {
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return &Bot{api: api}, nil
}

// Send delivers text to the chat id in to, split into chunks the Bot API
// accepts.
func (b *Bot) Send(ctx context.Context, to, text string) error {
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", to, err)
	}

	for _, chunk := range splitText(text, chunkSize) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, chunk)); err != nil {
			return fmt.Errorf("telegram send to %d: %w", chatID, err)
		}
	}
	return nil
}

// ParseUpdate decodes a webhook update. ok is false for updates that carry
// no text the relay can answer.
func ParseUpdate(r io.Reader) (in chat.Inbound, ok bool, err error) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r).Decode(&update); err != nil {
		return chat.Inbound{}, false, fmt.Errorf("decode telegram update: %w", err)
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return chat.Inbound{}, false, nil
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		text = strings.TrimSpace(msg.Caption)
	}
	if text == "" {
		return chat.Inbound{}, false, nil
	}

	id := strconv.FormatInt(msg.Chat.ID, 10)
	return chat.Inbound{
		Channel:        chat.ChannelTelegram,
		ConversationID: conversationNS + id,
		ReplyTo:        id,
		Text:           text,
	}, true, nil
}

func splitText(text string, size int) []string {
	if size <= 0 {
		return []string{text}
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}

	return chunks
}
