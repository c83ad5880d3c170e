package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/coursepilot/backend/internal/model"
	appErr "github.com/coursepilot/backend/internal/pkg/errors"
	"github.com/coursepilot/backend/internal/pkg/jwt"
	"github.com/coursepilot/backend/internal/pkg/password"
	"github.com/coursepilot/backend/internal/repo"
)

type AuthService struct {
	users     *repo.UserRepo
	jwtSecret []byte
	jwtTTL    time.Duration
}

func NewAuthService(users *repo.UserRepo, secret []byte, ttl time.Duration) *AuthService {
	return &AuthService{users: users, jwtSecret: secret, jwtTTL: ttl}
}

// Register creates a student account. The role is never taken from the
// caller; admins are provisioned through EnsureAdmin at startup.
func (s *AuthService) Register(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(plainPassword) < 8 {
		return nil, "", appErr.ErrInvalid
	}
	now := time.Now().Unix()
	hash, err := password.Hash(plainPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, "", appErr.ErrInvalid
		}
		return nil, "", err
	}
	user := &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         jwt.RoleStudent,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// EnsureAdmin creates the admin account when it is missing and promotes an
// existing account with the same email. Called once at startup from config.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, plainPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(plainPassword) < 8 {
		return appErr.ErrInvalid
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if user.Role == jwt.RoleAdmin {
			return nil
		}
		return s.users.UpdateRole(ctx, user.ID, jwt.RoleAdmin, time.Now().Unix())
	}
	if !errors.Is(err, appErr.ErrNotFound) {
		return err
	}
	hash, err := password.Hash(plainPassword)
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	return s.users.Create(ctx, &model.User{
		ID:           newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         jwt.RoleAdmin,
		Ctime:        now,
		Mtime:        now,
	})
}

func (s *AuthService) Login(ctx context.Context, email, plainPassword string) (*model.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		return nil, "", appErr.ErrUnauthorized
	}
	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role, s.jwtSecret, s.jwtTTL)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *AuthService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.users.GetByID(ctx, userID)
}
