package domain

import "time"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged transcript entry. A zero Timestamp means the
// entry was stored without one.
type Message struct {
	Role      string
	Content   string
	Timestamp time.Time
}

// Conversation is the transcript exchanged with a single sender.
type Conversation struct {
	ID      string
	History []Message
}

// LastActivity returns the newest timestamp in the transcript, or the zero
// time when no entry carries one.
func (c Conversation) LastActivity() time.Time {
	var latest time.Time
	for _, m := range c.History {
		if m.Timestamp.After(latest) {
			latest = m.Timestamp
		}
	}
	return latest
}
