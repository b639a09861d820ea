package domain

import "time"

type Session struct {
	ID            string
	Username      string
	CreatedAt     time.Time
	ExpiresAt     time.Time
	Authenticated bool
}

func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
