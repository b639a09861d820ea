package console

import "whatsapp-relay/internal/domain"

// GroupMessages splits a transcript into (user, assistant) reply pairs. A
// user entry opens a group and the next assistant entry closes it. Groups
// left open, by a second user entry or by the end of the transcript, are
// emitted incomplete. An assistant entry with no open group forms its own
// group; system entries are skipped.
func GroupMessages(history []domain.Message) [][]domain.Message {
	var (
		groups  [][]domain.Message
		current []domain.Message
	)
	for _, m := range history {
		switch m.Role {
		case domain.RoleUser:
			if current != nil {
				groups = append(groups, current)
			}
			current = []domain.Message{m}
		case domain.RoleAssistant:
			if current == nil {
				groups = append(groups, []domain.Message{m})
				continue
			}
			groups = append(groups, append(current, m))
			current = nil
		}
	}
	if current != nil {
		groups = append(groups, current)
	}
	return groups
}
