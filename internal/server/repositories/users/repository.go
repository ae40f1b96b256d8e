// Package users provides persistence for registered identities.
package users

import (
	"context"

	"github.com/anandakmagar/authguard/internal/server/models"
)

// Repository is the storage contract for users. Not-found lookups return
// common.ErrorNotFound; duplicate usernames on Create return
// common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePasswordHash(ctx context.Context, username string, hash string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}
