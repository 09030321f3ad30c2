package services

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ersonp/influence-tracker/internal/domain/entities"
)

var (
	// ErrUnauthorized is returned when a privileged call carries no valid session.
	ErrUnauthorized = errors.New("admin session required")
	// ErrWrongPassword is returned by Unlock for a bad password.
	ErrWrongPassword = errors.New("wrong admin password")
	// ErrAdminDisabled is returned by Unlock when no password is configured.
	ErrAdminDisabled = errors.New("admin access is disabled (no password configured)")
)

// sessionCleanupInterval is how often expired sessions are purged.
const sessionCleanupInterval = 10 * time.Minute

// AuthService issues and checks admin sessions. The password is a static
// demo string, not a credential store.
type AuthService struct {
	password string
	ttl      time.Duration
	sessions *gocache.Cache
}

// NewAuthService creates a new AuthService. A ttl <= 0 means sessions never
// expire.
func NewAuthService(password string, ttl time.Duration) *AuthService {
	expiration := ttl
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	return &AuthService{
		password: password,
		ttl:      ttl,
		sessions: gocache.New(expiration, sessionCleanupInterval),
	}
}

// Unlock checks password and returns a new session.
func (s *AuthService) Unlock(password string) (*entities.Session, error) {
	if s.password == "" {
		return nil, ErrAdminDisabled
	}
	// Surrounding whitespace in the entered password is ignored.
	entered := strings.TrimSpace(password)
	if subtle.ConstantTimeCompare([]byte(entered), []byte(s.password)) != 1 {
		return nil, ErrWrongPassword
	}

	session := &entities.Session{Token: generateID("sess")}
	if s.ttl > 0 {
		session.ExpiresAt = timeNow().Add(s.ttl).UTC()
	}
	s.sessions.SetDefault(session.Token, *session)
	return session, nil
}

// Authorize returns ErrUnauthorized unless token belongs to a live session.
func (s *AuthService) Authorize(token string) error {
	if token == "" {
		return ErrUnauthorized
	}
	if _, ok := s.sessions.Get(token); !ok {
		return ErrUnauthorized
	}
	return nil
}

// Lock revokes a session. Unknown tokens are ignored.
func (s *AuthService) Lock(token string) {
	s.sessions.Delete(token)
}
