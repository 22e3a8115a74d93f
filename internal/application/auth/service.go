package auth

import (
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bryanwahyu/exewatch/internal/auth"
	"github.com/bryanwahyu/exewatch/internal/common"
)

// User is the public identity shape returned by login.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Service authenticates the single configured dashboard user and mints
// bearer tokens. The password is bcrypt-hashed at construction so the plain
// text never lives on the service.
type Service struct {
	secret       []byte
	ttl          time.Duration
	user         User
	passwordHash []byte
}

func NewService(secret []byte, ttl time.Duration, username, password string) (*Service, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing admin password: %w", err)
	}
	return &Service{
		secret:       secret,
		ttl:          ttl,
		user:         User{ID: "demo-user-1", Username: username},
		passwordHash: hash,
	}, nil
}

// Login verifies the credentials and returns a signed token plus the user.
func (s *Service) Login(username, password string) (string, User, error) {
	if username == "" || password == "" {
		return "", User{}, fmt.Errorf("%w: username and password required", common.ErrValidation)
	}
	if username != s.user.Username {
		return "", User{}, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", User{}, fmt.Errorf("%w: invalid credentials", common.ErrUnauthorized)
	}

	token, err := auth.GenerateToken(s.user.ID, s.secret, s.ttl)
	if err != nil {
		return "", User{}, err
	}
	return token, s.user, nil
}
