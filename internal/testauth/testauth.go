// Package testauth provides credential fixtures for tests: an in-memory
// credential store and event table, a cheap password hasher and helpers
// that sign tokens with a fixed secret.
//
// It must never be imported by production code.
package testauth

import (
	"net/http"
	"time"

	"github.com/eventboard/server/internal/auth"
)

const (
	Secret = "testauth-secret-key-0123456789abcdef"
	Issuer = "eventboard-test"
)

// Tokens returns a token manager sharing Secret and Issuer.
func Tokens() *auth.TokenManager {
	return auth.NewTokenManager(Secret, 24*time.Hour, Issuer)
}

// Authorize signs a token for userID and sets the Authorization header.
func Authorize(req *http.Request, userID int64, role string) error {
	token, err := Tokens().Issue(userID, role)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// PlainHasher stores "hashed:<password>" instead of bcrypt output.
type PlainHasher struct{}

func (PlainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (PlainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return auth.ErrPasswordMismatch
	}
	return nil
}
