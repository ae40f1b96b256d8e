package repomanager

import (
	"context"
	"database/sql"

	"github.com/anandakmagar/authguard/internal/dbx"
	"github.com/anandakmagar/authguard/internal/server/repositories/resetcodes"
	"github.com/anandakmagar/authguard/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX handle
// (either the pooled *sql.DB or an in-flight *sql.Tx) and exposes a schema
// migration hook.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	ResetCodes(db dbx.DBTX) resetcodes.Repository
}
