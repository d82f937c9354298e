package db

import (
	"context"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidPassword   = errors.New("invalid password")
	ErrUsersNotAvailable = errors.New("user store not configured")
)

// UserStore verifies credentials against argon2id hashes kept in the users
// table. Registration lives outside this service.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(conn *gorm.DB) *UserStore {
	return &UserStore{db: conn}
}

func (s *UserStore) VerifyCredentials(ctx context.Context, username, password string) (User, error) {
	if s == nil || s.db == nil {
		return User{}, ErrUsersNotAvailable
	}
	username = strings.TrimSpace(username)
	var user User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	match, err := argon2id.ComparePasswordAndHash(password, user.PasswordHash)
	if err != nil {
		return User{}, err
	}
	if !match {
		return User{}, ErrInvalidPassword
	}
	return user, nil
}

// HashPassword produces a hash in the format VerifyCredentials expects.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}
