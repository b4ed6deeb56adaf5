package users

import (
	"context"
	"time"
)

type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

type CreateParams struct {
	Email        string
	PasswordHash string
	Role         string
}

// Repository is the credential store. Implementations return ErrNotFound for
// missing rows and ErrEmailTaken when the unique email constraint fires.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int64) (*User, error)
}
