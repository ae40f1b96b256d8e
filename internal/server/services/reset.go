package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/dbx"
	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/auth"
	"github.com/anandakmagar/authguard/internal/server/mail"
	"github.com/anandakmagar/authguard/internal/server/repositories/repomanager"
)

const resetMailSubject = "Password Reset Code Delivery"

// resetCodeSpan bounds generated codes to [10^9, 2*10^9), i.e. always exactly
// 10 digits.
const resetCodeSpan = 1_000_000_000

// ResetService implements the password reset flow: issuing single-use numeric
// codes and applying a password change once a valid code is presented.
type ResetService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      *auth.PasswordHasher
	mailer      mail.Mailer
	codeTTL     time.Duration
	logger      logging.Logger
}

// NewResetService constructs a ResetService. codeTTL bounds the lifetime of
// an issued code.
func NewResetService(db *sql.DB, m repomanager.RepositoryManager, hasher *auth.PasswordHasher, mailer mail.Mailer, codeTTL time.Duration, logger logging.Logger) *ResetService {
	return &ResetService{
		db:          db,
		repomanager: m,
		hasher:      hasher,
		mailer:      mailer,
		codeTTL:     codeTTL,
		logger:      logger.With("module", "reset_service"),
	}
}

// RequestReset issues a fresh reset code for username and mails it. It
// returns false when no such user exists; no code is created and no mail is
// sent in that case. Issuing a new code replaces any previously active one
// atomically (storage-level upsert), so at most one code is valid per user.
//
// The boolean return reveals whether the username is registered. That leak is
// a deliberate trade-off inherited from the API surface.
func (s *ResetService) RequestReset(ctx context.Context, username string) (bool, error) {
	users := s.repomanager.Users(s.db)
	if _, err := users.GetByUsername(ctx, username); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error resolving user: %w", err)
	}

	code, err := generateResetCode()
	if err != nil {
		return false, fmt.Errorf("error generating reset code: %w", err)
	}

	if err := s.repomanager.ResetCodes(s.db).Upsert(ctx, username, code, s.codeTTL); err != nil {
		return false, fmt.Errorf("error storing reset code: %w", err)
	}

	body := fmt.Sprintf("%s, your password reset code is %d.", username, code)
	if err := s.mailer.Send(ctx, username, resetMailSubject, body); err != nil {
		return false, fmt.Errorf("error sending reset mail: %w", err)
	}

	s.logger.Info(ctx, "reset code issued", "username", username)
	return true, nil
}

// ChangePassword validates the presented code and, when it matches the active
// code for username, stores the new password hash and retires the code in a
// single transaction. It returns false with no mutation when the code is
// absent, does not match, or has expired. An unknown username yields
// common.ErrorNotFound.
//
// The in-transaction Delete must remove exactly one row; when a concurrent
// call consumed the code between the Find and the transaction, Delete reports
// no rows and the whole transaction rolls back. Only one presenter of a given
// code can ever succeed.
func (s *ResetService) ChangePassword(ctx context.Context, username string, code int64, newPassword string) (bool, error) {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, common.ErrorNotFound
		}
		return false, fmt.Errorf("error resolving user: %w", err)
	}

	active, err := s.repomanager.ResetCodes(s.db).Find(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("error loading reset code: %w", err)
	}
	if active.Username != user.Username || active.Code != code || active.Expired(time.Now()) {
		return false, nil
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return false, fmt.Errorf("error hashing password: %w", err)
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePasswordHash(ctx, username, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.ResetCodes(tx).Delete(ctx, username); err != nil {
			return fmt.Errorf("error retiring reset code: %w", err)
		}
		return nil
	}); err != nil {
		return false, err
	}

	s.logger.Info(ctx, "password changed via reset code", "username", username)
	return true, nil
}

// PurgeExpired deletes all reset codes past their expiry and returns the
// number removed. Called periodically by the sweeper job.
func (s *ResetService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.repomanager.ResetCodes(s.db).DeleteExpired(ctx)
}

// generateResetCode draws a 10-digit code from crypto/rand. The code stands
// in for a credential, so it has to be unpredictable.
func generateResetCode() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(resetCodeSpan))
	if err != nil {
		return 0, err
	}
	return resetCodeSpan + n.Int64(), nil
}
