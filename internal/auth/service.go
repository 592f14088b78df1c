package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"expensebook/internal/models"
	"expensebook/internal/storage"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrDuplicateUsername is returned when registering a taken username.
	ErrDuplicateUsername = storage.ErrDuplicateUsername
	// ErrUserNotFound is returned when logging in as an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidPassword is returned when the password does not match.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrNotAuthenticated is returned when a request carries no valid session.
	ErrNotAuthenticated = errors.New("not authenticated")
)

// DefaultSessionDuration is how long sessions last (30 days).
const DefaultSessionDuration = 30 * 24 * time.Hour

// Store is the persistence the auth service needs.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateSession(ctx context.Context, token string, userID int64, expiresAt time.Time) error
	ValidateSession(ctx context.Context, token string) (*models.Session, error)
	RenewSession(ctx context.Context, token string, expiresAt time.Time) error
	DeleteSession(ctx context.Context, token string) error
}

// Session is an established login as handed to the HTTP layer.
type Session struct {
	// Cookie is the signed value for the session cookie.
	Cookie    string
	User      *models.User
	ExpiresAt time.Time
	// Renewed is set by Resume when Cookie was reissued.
	Renewed bool
}

// Service registers users and manages their sessions.
type Service struct {
	store    Store
	signer   *Signer
	duration time.Duration
	cost     int
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithSessionDuration sets the session lifetime.
func WithSessionDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func WithHashCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates an auth service signing cookies with signer.
func NewService(store Store, signer *Signer, opts ...Option) *Service {
	s := &Service{
		store:    store,
		signer:   signer,
		duration: DefaultSessionDuration,
		cost:     bcrypt.DefaultCost,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a user. The caller is expected to send the user to login.
func (s *Service) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	hash, err := hashPassword(password, s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, hash)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateUsername) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login verifies credentials and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidPassword
	}

	token, err := GenerateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}

	expiresAt := s.now().Add(s.duration)
	if err := s.store.CreateSession(ctx, token, user.ID, expiresAt); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	cookie, err := s.signer.SignSession(token, user.ID, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}

	return &Session{
		Cookie:    cookie,
		User:      &models.User{ID: user.ID, Username: user.Username},
		ExpiresAt: expiresAt,
	}, nil
}

// Resume restores the session carried by a cookie value. Sessions in the
// second half of their lifetime are extended and get a fresh cookie.
func (s *Service) Resume(ctx context.Context, cookie string) (*Session, error) {
	if cookie == "" {
		return nil, ErrNotAuthenticated
	}

	token, err := s.signer.ParseSession(cookie)
	if err != nil {
		return nil, ErrNotAuthenticated
	}

	info, err := s.store.ValidateSession(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("validate session: %w", err)
	}

	session := &Session{
		Cookie:    cookie,
		User:      info.User(),
		ExpiresAt: info.ExpiresAt,
	}

	now := s.now()
	if info.ExpiresAt.Sub(now) >= s.duration/2 {
		return session, nil
	}

	// Renewal failures keep the current session alive.
	expiresAt := now.Add(s.duration)
	if err := s.store.RenewSession(ctx, token, expiresAt); err != nil {
		return session, nil
	}
	renewed, err := s.signer.SignSession(token, info.UserID, expiresAt)
	if err != nil {
		return session, nil
	}
	session.Cookie = renewed
	session.ExpiresAt = expiresAt
	session.Renewed = true
	return session, nil
}

// Logout ends the session carried by cookie, if any.
func (s *Service) Logout(ctx context.Context, cookie string) error {
	token, err := s.signer.ParseSession(cookie)
	if err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// Duration reports the configured session lifetime.
func (s *Service) Duration() time.Duration {
	return s.duration
}
