package docstore

import (
	"time"

	"whatsapp-relay/internal/domain"
)

type settingsDoc struct {
	Prompt string `json:"prompt" firestore:"prompt"`
}

type conversationDoc struct {
	History []messageDoc `json:"history" firestore:"history"`
}

type messageDoc struct {
	Role      string `json:"role" firestore:"role"`
	Content   string `json:"content" firestore:"content"`
	Timestamp string `json:"timestamp,omitempty" firestore:"timestamp,omitempty"`
}

type sessionDoc struct {
	SessionID     string    `json:"session_id" firestore:"session_id"`
	Username      string    `json:"username" firestore:"username"`
	CreatedAt     time.Time `json:"created_at" firestore:"created_at"`
	ExpiresAt     time.Time `json:"expires_at" firestore:"expires_at"`
	Authenticated bool      `json:"authenticated" firestore:"authenticated"`
}

// Older records carry naive isoformat timestamps without a zone.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toMessageDocs(msgs []domain.Message) []messageDoc {
	docs := make([]messageDoc, 0, len(msgs))
	for _, m := range msgs {
		docs = append(docs, messageDoc{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: formatTimestamp(m.Timestamp),
		})
	}
	return docs
}

func fromMessageDocs(docs []messageDoc) []domain.Message {
	if len(docs) == 0 {
		return nil
	}
	msgs := make([]domain.Message, 0, len(docs))
	for _, d := range docs {
		msgs = append(msgs, domain.Message{
			Role:      d.Role,
			Content:   d.Content,
			Timestamp: parseTimestamp(d.Timestamp),
		})
	}
	return msgs
}

func toSessionDoc(s domain.Session) sessionDoc {
	return sessionDoc{
		SessionID:     s.ID,
		Username:      s.Username,
		CreatedAt:     s.CreatedAt.UTC(),
		ExpiresAt:     s.ExpiresAt.UTC(),
		Authenticated: s.Authenticated,
	}
}

func fromSessionDoc(id string, d sessionDoc) domain.Session {
	if d.SessionID != "" {
		id = d.SessionID
	}
	return domain.Session{
		ID:            id,
		Username:      d.Username,
		CreatedAt:     d.CreatedAt,
		ExpiresAt:     d.ExpiresAt,
		Authenticated: d.Authenticated,
	}
}
