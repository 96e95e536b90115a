package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoCredentials = errors.New("no stored credentials")

// User mirrors the `user` record the web app keeps next to the token.
type User struct {
	Id       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// Credentials is the local-storage analogue: the bearer token plus the
// signed-in user, persisted as a small JSON file.
type Credentials struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("corrupt credentials file: %w", err)
	}
	if creds.Token == "" {
		return nil, ErrNoCredentials
	}
	return &creds, nil
}

func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0600)
}

func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Expired reports whether the token's exp claim has passed. The client does
// not hold the signing secret, so the claim is read without verification;
// the gateway remains the authority and re-checks on connect.
func Expired(tokenStr string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return true, fmt.Errorf("malformed token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return true, err
	}
	if exp == nil {
		// No exp claim: treat as non-expiring, gateway decides.
		return false, nil
	}
	return exp.Time.Before(now), nil
}
