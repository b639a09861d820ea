package chat

import (
	"unicode/utf8"

	"whatsapp-relay/internal/domain"
)

// tokenEstimateRatio approximates characters per token.
const tokenEstimateRatio = 4

// Compose returns the instruction as a system entry followed by the
// transcript in stored order.
func Compose(instruction string, transcript []domain.Message) []domain.Message {
	messages := make([]domain.Message, 0, len(transcript)+1)
	messages = append(messages, domain.Message{
		Role:    domain.RoleSystem,
		Content: instruction,
	})
	return append(messages, transcript...)
}

// Window bounds how much of a composed prompt is replayed. A zero limit
// disables that bound.
type Window struct {
	MaxMessages int
	MaxTokens   int
}

func (w Window) Unbounded() bool {
	return w.MaxMessages <= 0 && w.MaxTokens <= 0
}

// Apply drops the oldest transcript entries until the prompt fits. A leading
// system entry and the newest entry are always kept. MaxMessages counts
// transcript entries only.
func (w Window) Apply(messages []domain.Message) []domain.Message {
	if w.Unbounded() || len(messages) == 0 {
		return messages
	}

	var head []domain.Message
	body := messages
	if body[0].Role == domain.RoleSystem {
		head, body = body[:1], body[1:]
	}

	if w.MaxMessages > 0 && len(body) > w.MaxMessages {
		body = body[len(body)-w.MaxMessages:]
	}

	if w.MaxTokens > 0 {
		budget := w.MaxTokens
		for _, m := range head {
			budget -= EstimateTokens(m.Content)
		}
		total := 0
		for _, m := range body {
			total += EstimateTokens(m.Content)
		}
		for len(body) > 1 && total > budget {
			total -= EstimateTokens(body[0].Content)
			body = body[1:]
		}
	}

	out := make([]domain.Message, 0, len(head)+len(body))
	out = append(out, head...)
	return append(out, body...)
}

// EstimateTokens approximates the token count of text.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + tokenEstimateRatio - 1) / tokenEstimateRatio
}
