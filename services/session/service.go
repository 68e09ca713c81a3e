package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"moviebuzz/models"
	"moviebuzz/services/catalog"
)

var ErrMalformedLogin = errors.New("session: malformed login response")

// Service validates, establishes and tears down the authenticated session.
// It is the only component that writes the persisted credential.
type Service struct {
	catalog *catalog.Client
	store   *Store
	logger  *slog.Logger

	mu      sync.RWMutex
	current *models.Session
}

// NewService creates a session service backed by the given catalog client
// and store.
func NewService(client *catalog.Client, store *Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: client, store: store, logger: logger}
}

// Current returns the active session, or nil when unauthenticated.
func (s *Service) Current() *models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	sess := *s.current
	return &sess
}

// Restore checks a persisted credential against a protected endpoint. Any
// failure is a hard invalidation: the persisted state is cleared and nil is
// returned. A stale credential is never retried.
func (s *Service) Restore(ctx context.Context) *models.Session {
	sess, ok := s.store.Load()
	if !ok {
		return nil
	}

	if _, err := s.catalog.Watchlist(ctx, sess.Token); err != nil {
		s.logger.Info("saved session failed revalidation, clearing", "user", sess.User.UserName)
		s.store.Clear()
		return nil
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return &sess
}

// Login exchanges credentials for a new session and persists it.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	raw, err := s.catalog.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}

	sess, err := normalizeLogin(raw, email)
	if err != nil {
		return nil, err
	}

	if err := s.store.Save(sess); err != nil {
		s.logger.Warn("could not persist session", "error", err)
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.logger.Info("logged in", "user", sess.User.UserName, "role", sess.User.Role)
	return &sess, nil
}

// Logout clears the persisted state and the active session. It has no
// network effect.
func (s *Service) Logout() {
	s.store.Clear()
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Register creates a new account. Logging in afterwards is a separate step.
func (s *Service) Register(ctx context.Context, data catalog.RegisterData) (bool, error) {
	return s.catalog.Register(ctx, data)
}

type loginUser struct {
	ID         string `json:"id"`
	UserName   string `json:"userName"`
	Email      string `json:"email"`
	PersonName string `json:"personName"`
	Role       string `json:"role"`
}

// normalizeLogin converts the heterogeneous login payload into a strict
// session. The credential may arrive as a named field or as the entire body;
// the identity may be nested or must be synthesized from whatever fields are
// present. The ambiguity stops here.
func normalizeLogin(raw json.RawMessage, email string) (models.Session, error) {
	if len(raw) == 0 {
		return models.Session{}, ErrMalformedLogin
	}

	// Oldest servers return the bare token as a JSON string body.
	var bare string
	if err := json.Unmarshal(raw, &bare); err == nil {
		bare = strings.TrimSpace(bare)
		if bare == "" {
			return models.Session{}, ErrMalformedLogin
		}
		return models.Session{Token: bare, User: synthesizeUser(loginUser{}, email, "")}, nil
	}

	var envelope struct {
		Token       string     `json:"token"`
		AccessToken string     `json:"accessToken"`
		Role        string     `json:"role"`
		User        *loginUser `json:"user"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return models.Session{}, ErrMalformedLogin
	}

	token := strings.TrimSpace(envelope.Token)
	if token == "" {
		token = strings.TrimSpace(envelope.AccessToken)
	}
	if token == "" {
		return models.Session{}, ErrMalformedLogin
	}

	var flat loginUser
	_ = json.Unmarshal(raw, &flat)

	source := flat
	if envelope.User != nil {
		source = *envelope.User
	}
	return models.Session{Token: token, User: synthesizeUser(source, email, envelope.Role)}, nil
}

func synthesizeUser(u loginUser, email, fallbackRole string) models.User {
	user := models.User{
		ID:         u.ID,
		UserName:   u.UserName,
		Email:      u.Email,
		PersonName: u.PersonName,
		Role:       u.Role,
	}
	if user.Email == "" {
		user.Email = email
	}
	if user.UserName == "" {
		user.UserName = user.Email
	}
	if user.PersonName == "" {
		if u.UserName != "" {
			user.PersonName = u.UserName
		} else {
			user.PersonName = localPart(user.Email)
		}
	}
	if user.Role == "" {
		user.Role = fallbackRole
	}
	if user.Role == "" {
		user.Role = models.RoleClient
	}
	return user
}

func localPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}
