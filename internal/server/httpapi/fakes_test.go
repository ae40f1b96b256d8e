package httpapi

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/anandakmagar/authguard/internal/common"
	"github.com/anandakmagar/authguard/internal/dbx"
	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/models"
	"github.com/anandakmagar/authguard/internal/server/repositories/resetcodes"
	"github.com/anandakmagar/authguard/internal/server/repositories/users"
)

// ---- in-memory fakes shared by the transport tests ----

type fakeUsersRepo struct {
	mu     sync.Mutex
	byName map[string]*models.User
	nextID int
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: make(map[string]*models.User)}
}

func (f *fakeUsersRepo) Create(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[user.Username]; ok {
		return nil, common.ErrorAlreadyExists
	}
	f.nextID++
	user.ID = fmt.Sprintf("id-%d", f.nextID)
	user.CreatedAt = time.Now()
	cp := *user
	f.byName[user.Username] = &cp
	return user, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byName {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) List(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, u := range f.byName {
		cp := *u
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, u := range f.byName {
		if u.ID == user.ID {
			delete(f.byName, name)
			cp := *user
			f.byName[user.Username] = &cp
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsersRepo) UpdatePasswordHash(ctx context.Context, username string, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byName[username]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, u := range f.byName {
		if u.ID == id {
			delete(f.byName, name)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.byName)), nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	byName map[string]*models.ResetCode
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{byName: make(map[string]*models.ResetCode)}
}

func (f *fakeResetRepo) Upsert(ctx context.Context, username string, code int64, validity time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byName[username] = &models.ResetCode{
		Username:  username,
		Code:      code,
		ExpiresAt: time.Now().Add(validity),
		CreatedAt: time.Now(),
	}
	return nil
}

func (f *fakeResetRepo) Find(ctx context.Context, username string) (*models.ResetCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeResetRepo) Delete(ctx context.Context, username string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byName[username]; !ok {
		return common.ErrorNotFound
	}
	delete(f.byName, username)
	return nil
}

func (f *fakeResetRepo) DeleteExpired(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for name, c := range f.byName {
		if c.Expired(now) {
			delete(f.byName, name)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	users *fakeUsersRepo
	codes *fakeResetRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), codes: newFakeResetRepo()}
}

func (f *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (f *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return f.users }
func (f *fakeRepoManager) ResetCodes(db dbx.DBTX) resetcodes.Repository        { return f.codes }

type sentMail struct {
	To, Subject, Body string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (f *fakeMailer) last() (sentMail, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return sentMail{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, args ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, args ...any) {}
func (nopLogger) With(args ...any) logging.Logger                    { return nopLogger{} }
