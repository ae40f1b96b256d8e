// Package services contains server-side business logic. This file implements
// UserService, which handles registration, login, token refresh, and user
// administration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/server/auth"
	"github.com/anandakmagar/authguard/internal/server/models"
	"github.com/anandakmagar/authguard/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a longer-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserUpdate carries a partial user update. Nil fields are left unchanged;
// Password is hashed before storage.
type UserUpdate struct {
	Username *string
	Password *string
	Roles    models.Roles
}

// UserService provides authentication-related operations:
// - Register: create users
// - Login: verify credentials and mint tokens
// - Refresh: mint new tokens from a valid refresh token
// - List/Update/Delete: user administration
type UserService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      *auth.TokenService
	hasher      *auth.PasswordHasher
}

// NewUserService constructs a UserService using repositories, the token
// service, and the password hasher.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, tokens *auth.TokenService, hasher *auth.PasswordHasher) *UserService {
	return &UserService{db: db, repomanager: m, tokens: tokens, hasher: hasher}
}

// Register creates a new user with the given username, password, and roles.
// A duplicate username yields common.ErrorAlreadyExists and no partial write.
func (s *UserService) Register(ctx context.Context, username, password string, roles models.Roles) (*models.User, error) {
	if len(roles) == 0 {
		return nil, common.ErrorInvalidRoles
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{Username: username, PasswordHash: hash, Roles: roles}
	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// Login re-authenticates a username/password pair and, on success, returns a
// fresh TokenPair. Bad credentials and unknown users both yield
// common.ErrorUnauthorized so the caller cannot tell them apart.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	if !s.hasher.Matches(password, user.PasswordHash) {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(user.Username)
}

// Refresh verifies the refresh token, resolves its subject to an existing
// user, and returns a new TokenPair. An unresolvable subject yields
// common.ErrorUnauthorized.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.tokens.ExtractSubject(refreshToken)
	if err != nil {
		return nil, common.ErrorUnauthorized
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByUsername(ctx, subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}
	return s.generateTokenPair(user.Username)
}

// GetByID returns the user with the given ID.
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.repomanager.Users(s.db).GetByID(ctx, id)
}

// List returns all registered users.
func (s *UserService) List(ctx context.Context) ([]*models.User, error) {
	return s.repomanager.Users(s.db).List(ctx)
}

// Update applies a partial update to the user with the given ID. It returns
// false without mutation when the user does not exist.
func (s *UserService) Update(ctx context.Context, id string, upd UserUpdate) (bool, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading user: %w", err)
	}

	if upd.Username != nil {
		user.Username = *upd.Username
	}
	if upd.Password != nil {
		hash, err := s.hasher.Hash(*upd.Password)
		if err != nil {
			return false, fmt.Errorf("error hashing password: %w", err)
		}
		user.PasswordHash = hash
	}
	if len(upd.Roles) > 0 {
		user.Roles = upd.Roles
	}

	if err := repo.Update(ctx, user); err != nil {
		return false, fmt.Errorf("error updating user: %w", err)
	}
	return true, nil
}

// Delete removes the user with the given ID. It returns false when the user
// does not exist.
func (s *UserService) Delete(ctx context.Context, id string) (bool, error) {
	err := s.repomanager.Users(s.db).Delete(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error deleting user: %w", err)
	}
	return true, nil
}

// EnsureAdmin creates the given admin account when the user table is empty,
// so a fresh deployment is never left without an administrative login.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string, roles models.Roles) error {
	repo := s.repomanager.Users(s.db)
	n, err := repo.Count(ctx)
	if err != nil {
		return fmt.Errorf("error counting users: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.Register(ctx, username, password, roles); err != nil && !errors.Is(err, common.ErrorAlreadyExists) {
		return err
	}
	return nil
}

// AccessValidity reports the configured access token lifetime.
func (s *UserService) AccessValidity() time.Duration {
	return s.tokens.AccessValidity()
}

// RefreshValidity reports the configured refresh token lifetime.
func (s *UserService) RefreshValidity() time.Duration {
	return s.tokens.RefreshValidity()
}

func (s *UserService) generateTokenPair(username string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(username)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.tokens.IssueRefreshToken(username)
	if err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
