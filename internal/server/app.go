// Package server initializes and runs the auth server application.
// It opens the database, runs migrations, seeds the initial admin account,
// and starts the HTTP server and the reset code sweeper with graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/anandakmagar/authguard/internal/logging"
	"github.com/anandakmagar/authguard/internal/server/auth"
	"github.com/anandakmagar/authguard/internal/server/config"
	"github.com/anandakmagar/authguard/internal/server/httpapi"
	"github.com/anandakmagar/authguard/internal/server/jobs"
	"github.com/anandakmagar/authguard/internal/server/mail"
	"github.com/anandakmagar/authguard/internal/server/metrics"
	"github.com/anandakmagar/authguard/internal/server/models"
	"github.com/anandakmagar/authguard/internal/server/repositories/repomanager"
	"github.com/anandakmagar/authguard/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	userService *services.UserService
	httpServer  *httpapi.Server
	sweeper     *jobs.Sweeper
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()

	tokens := auth.NewTokenService(c.SecretKey, c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration)
	hasher := auth.NewPasswordHasher(c.BcryptCost)

	var mailer mail.Mailer
	if c.SMTPAddr != "" {
		mailer = mail.NewSMTPMailer(c.SMTPAddr, c.MailFrom, c.SMTPUsername, c.SMTPPassword)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	userService := services.NewUserService(db, rm, tokens, hasher)
	resetService := services.NewResetService(db, rm, hasher, mailer, c.ResetCodeTTL, logger)

	m := metrics.New()
	handlers := httpapi.NewHandlers(userService, resetService, m, logger)
	authn := httpapi.NewAuthenticator(tokens, rm.Users(db), logger)
	httpServer := httpapi.NewServer(c.EndpointAddr, db, authn, httpapi.NewPolicy(), handlers, m, logger)

	sweeper := jobs.NewSweeper(resetService, c.SweepSchedule, logger)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		repomanager: rm,
		userService: userService,
		httpServer:  httpServer,
		sweeper:     sweeper,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.repomanager.RunMigrations(ctx, app.db); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	adminRoles := models.Roles{models.RoleAdmin}
	if err := app.userService.EnsureAdmin(ctx, app.config.AdminUsername, app.config.AdminPassword, adminRoles); err != nil {
		return fmt.Errorf("admin seed error: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.httpServer.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.sweeper.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	return nil
}
