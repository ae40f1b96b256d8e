// Package resetcodes provides a PostgreSQL-backed repository for password
// reset codes used in the credential recovery flow.
package resetcodes

import (
	"context"
	"time"

	"github.com/anandakmagar/authguard/internal/server/models"
)

// Repository is the storage contract for reset codes. The store guarantees at
// most one active code per username: Upsert atomically replaces any previous
// code for the same user. Delete reports common.ErrorNotFound when there was
// no row to remove, which lets a consuming transaction detect that the code
// was already used.
type Repository interface {
	Upsert(ctx context.Context, username string, code int64, validity time.Duration) error
	Find(ctx context.Context, username string) (*models.ResetCode, error)
	Delete(ctx context.Context, username string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
