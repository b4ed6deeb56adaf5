package users

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/validation"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[string]*User
	getErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]*User)}
}

func (r *memoryRepo) Create(_ context.Context, params CreateParams) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[params.Email]; ok {
		return nil, ErrEmailTaken
	}
	r.nextID++
	user := &User{ID: r.nextID, Email: params.Email, PasswordHash: params.PasswordHash, Role: params.Role}
	r.rows[params.Email] = user
	return user, nil
}

func (r *memoryRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if user, ok := r.rows[email]; ok {
		return user, nil
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) GetByID(_ context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.rows {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, ErrNotFound
}

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return auth.ErrPasswordMismatch
	}
	return nil
}

func newTestService(repo Repository) *Service {
	return NewService(repo, "attendee", zerolog.Nop(), WithHasher(plainHasher{}))
}

func TestRegisterThenVerify(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, "a@b.com", "pw123")
	require.NoError(t, err)
	require.Equal(t, "attendee", created.Role)
	require.NotEqual(t, "pw123", created.PasswordHash)

	verified, err := svc.Verify(ctx, "A@B.com ", "pw123")
	require.NoError(t, err)
	require.Equal(t, created.ID, verified.ID)
}

func TestRegisterStoresBcryptHash(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, "", zerolog.Nop())

	created, err := svc.Register(context.Background(), "hash@example.com", "pw123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(created.PasswordHash, "$2"))
	require.NoError(t, auth.CheckPassword(created.PasswordHash, "pw123"))
	require.Equal(t, "attendee", created.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "pw123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "a@b.com", "other")
	require.ErrorIs(t, err, ErrEmailTaken)
	require.Len(t, repo.rows, 1)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		field    string
	}{
		{"missing email", "", "pw123", "email"},
		{"missing password", "a@b.com", "", "password"},
		{"blank password", "a@b.com", "   ", "password"},
		{"bad email", "not-an-email", "pw123", "email"},
		{"password over 72 runes", "a@b.com", strings.Repeat("p", 73), "password"},
		{"multibyte password over 72 bytes", "a@b.com", strings.Repeat("é", 40), "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.email, tt.password)
			var fe validation.FieldError
			require.ErrorAs(t, err, &fe)
			require.Equal(t, tt.field, fe.Field)
		})
	}
}

func TestVerifyFailures(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "pw123")
	require.NoError(t, err)

	_, err = svc.Verify(ctx, "a@b.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Verify(ctx, "missing@b.com", "pw123")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Verify(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyStoreFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.getErr = errors.New("connection refused")
	svc := newTestService(repo)

	_, err := svc.Verify(context.Background(), "a@b.com", "pw123")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRole(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created, err := svc.Register(ctx, "a@b.com", "pw123")
	require.NoError(t, err)

	role, err := svc.Role(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "attendee", role)

	_, err = svc.Role(ctx, 999)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBootstrapCreatesOrganizerOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Bootstrap(ctx, "org@example.com", "secret"))
	require.NoError(t, svc.Bootstrap(ctx, "org@example.com", "different"))
	require.Len(t, repo.rows, 1)

	user, err := svc.Verify(ctx, "org@example.com", "secret")
	require.NoError(t, err)
	require.Equal(t, "organizer", user.Role)
}

func TestBootstrapSkipsWhenUnset(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	require.NoError(t, svc.Bootstrap(context.Background(), "", ""))
	require.Empty(t, repo.rows)
}
