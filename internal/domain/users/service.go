package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/validation"
	"github.com/rs/zerolog"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrEmailTaken         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// PasswordHasher abstracts bcrypt so tests can use a cheap cost.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type bcryptHasher struct{}

func (bcryptHasher) Hash(password string) (string, error) { return auth.HashPassword(password) }

func (bcryptHasher) Compare(hash, password string) error { return auth.CheckPassword(hash, password) }

type Service struct {
	repo        Repository
	hasher      PasswordHasher
	defaultRole string
	logger      zerolog.Logger
	production  bool
}

type Option func(*Service)

func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

// WithProductionLogging redacts email addresses from log lines.
func WithProductionLogging(enabled bool) Option {
	return func(s *Service) {
		s.production = enabled
	}
}

func NewService(repo Repository, defaultRole string, logger zerolog.Logger, opts ...Option) *Service {
	if strings.TrimSpace(defaultRole) == "" {
		defaultRole = string(auth.RoleAttendee)
	}
	s := &Service{
		repo:        repo,
		hasher:      bcryptHasher{},
		defaultRole: defaultRole,
		logger:      logger.With().Str("component", "users").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=320"`
	Password string `json:"password" validate:"required,max=72"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with the default role. Only the bcrypt hash of
// the password is persisted.
func (s *Service) Register(ctx context.Context, email, password string) (*User, error) {
	return s.create(ctx, email, password, s.defaultRole)
}

func (s *Service) create(ctx context.Context, email, password, role string) (*User, error) {
	input := credentials{Email: normalizeEmail(email), Password: password}
	if strings.TrimSpace(input.Password) == "" {
		input.Password = ""
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	// validator counts runes; bcrypt's limit is bytes.
	if len(input.Password) > maxPasswordBytes {
		return nil, validation.FieldError{Field: "password", Message: "must be at most 72 bytes"}
	}

	existing, err := s.repo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailTaken
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Create(ctx, CreateParams{
		Email:        input.Email,
		PasswordHash: hash,
		Role:         string(auth.NormalizeRole(role)),
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	event := s.logger.Info().Int64("user_id", user.ID).Str("role", user.Role)
	if !s.production {
		event = event.Str("email", user.Email)
	}
	event.Msg("user registered")
	return user, nil
}

// Verify checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn().Err(err).Int64("user_id", user.ID).Msg("password comparison failed")
		}
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Role returns the stored role for a user.
func (s *Service) Role(ctx context.Context, id int64) (string, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return user.Role, nil
}

// Bootstrap creates an organizer account when one with that email does not
// exist yet. Existing rows are never modified.
func (s *Service) Bootstrap(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		s.logger.Debug().Msg("organizer bootstrap not configured; skipping")
		return nil
	}

	_, err := s.create(ctx, email, password, string(auth.RoleOrganizer))
	if errors.Is(err, ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap organizer: %w", err)
	}
	return nil
}
