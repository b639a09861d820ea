package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"whatsapp-relay/internal/domain"
	"whatsapp-relay/internal/metrics"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrEmptyPassword      = errors.New("empty password")
)

// Service authenticates the single console operator and manages the
// server-side sessions minted for them.
type Service struct {
	sessions     domain.SessionStore
	username     string
	passwordHash []byte
	ttl          time.Duration
	log          zerolog.Logger
	now          func() time.Time
	newID        func() string
}

func NewService(sessions domain.SessionStore, username, passwordHash string, ttl time.Duration, log zerolog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		sessions:     sessions,
		username:     username,
		passwordHash: []byte(passwordHash),
		ttl:          ttl,
		log:          log.With().Str("component", "auth").Logger(),
		now:          time.Now,
		newID:        uuid.NewString,
	}
}

func (s *Service) TTL() time.Duration {
	return s.ttl
}

// SignIn checks the operator credentials and stores a new session.
func (s *Service) SignIn(ctx context.Context, username, password string) (domain.Session, error) {
	userOK := CompareTokens(username, s.username)
	// bcrypt runs even for a wrong username so both failures cost the same
	passOK := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	if !userOK || !passOK {
		metrics.SignInsTotal.WithLabelValues("rejected").Inc()
		s.log.Warn().Str("username", username).Msg("sign-in rejected")
		return domain.Session{}, ErrInvalidCredentials
	}

	now := s.now()
	sess := domain.Session{
		ID:            s.newID(),
		Username:      s.username,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.ttl),
		Authenticated: true,
	}
	if err := s.sessions.CreateSession(ctx, sess); err != nil {
		metrics.SignInsTotal.WithLabelValues("error").Inc()
		return domain.Session{}, fmt.Errorf("store session: %w", err)
	}

	metrics.SignInsTotal.WithLabelValues("accepted").Inc()
	s.log.Info().Str("username", sess.Username).Msg("operator signed in")
	return sess, nil
}

// Lookup returns the live session for id. Expired sessions are deleted and
// reported as ErrSessionNotFound.
func (s *Service) Lookup(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, ErrSessionNotFound
	}

	sess, err := s.sessions.Session(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrMalformed) {
		return domain.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}

	if sess.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, id); err != nil {
			s.log.Error().Err(err).Msg("delete expired session failed")
		}
		return domain.Session{}, ErrSessionNotFound
	}
	if !sess.Authenticated {
		return domain.Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (s *Service) SignOut(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// PurgeExpired removes every expired session.
func (s *Service) PurgeExpired(ctx context.Context) (int, error) {
	n, err := s.sessions.DeleteExpiredSessions(ctx, s.now())
	if n > 0 {
		metrics.SessionsPurgedTotal.Add(float64(n))
	}
	return n, err
}

// HashPassword produces the value expected in OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareTokens performs timing-safe comparison by hashing both inputs
// with SHA-256 before calling ConstantTimeCompare.
func CompareTokens(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
