// Command authd runs the QuizHub authentication service.
//
// @title                       QuizHub Auth Service API
// @version                     1.0
// @description                 Sign-up, sign-in, token refresh and account management for the quiz platform.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Bearer <access token>
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/quizhub/auth-service/internal/api"
	"github.com/quizhub/auth-service/internal/api/handler"
	"github.com/quizhub/auth-service/internal/core/ports"
	"github.com/quizhub/auth-service/internal/core/service"
	"github.com/quizhub/auth-service/internal/infrastructure/db/memory"
	mongostore "github.com/quizhub/auth-service/internal/infrastructure/db/mongo"
	pgstore "github.com/quizhub/auth-service/internal/infrastructure/db/postgres"
	redisstore "github.com/quizhub/auth-service/internal/infrastructure/db/redis"
	"github.com/quizhub/auth-service/internal/infrastructure/queue"
	"github.com/quizhub/auth-service/internal/infrastructure/security"
	"github.com/quizhub/auth-service/internal/pkg/config"
	"github.com/quizhub/auth-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "auth-service",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("auth service stopped")
	}
}

// stores is the credential store selected by STORE_DRIVER.
type stores struct {
	users   ports.UserRepository
	roles   ports.RoleRepository
	audit   ports.AuditRepository
	checker handler.Checker
	close   func(context.Context) error
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("close store")
		}
	}()

	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost)

	if err := service.SeedRoles(ctx, st.roles, log); err != nil {
		return err
	}
	if err := service.BootstrapAdmin(ctx, st.users, st.roles, hasher, service.AdminAccount{
		Username: cfg.Admin.Username,
		Email:    cfg.Admin.Email,
		Password: cfg.Admin.Password,
	}, log); err != nil {
		return err
	}

	checkers := map[string]handler.Checker{"store": st.checker}

	var limiter ports.LoginLimiter
	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, sign-in throttling disabled")
	} else {
		defer rdb.Close()
		limiter = redisstore.NewLoginLimiter(rdb, cfg.Auth.SignInMaxFailures, cfg.Auth.SignInLockout)
		checkers["redis"] = redisstore.NewChecker(rdb)
	}

	auditLog := logger.Component("audit")
	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, service.NewAuditService(st.audit, auditLog), auditLog)
	dispatcher.Start(context.WithoutCancel(ctx))
	defer dispatcher.Stop()

	tokens := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
	auth := service.NewAuthService(service.AuthDeps{
		Users:   st.users,
		Roles:   st.roles,
		Tokens:  tokens,
		Hasher:  hasher,
		Limiter: limiter,
		Audit:   dispatcher,
		Log:     log,
	}, service.AuthOptions{StrictSignupRoles: cfg.Auth.StrictSignupRoles})

	e := api.NewRouter(api.Dependencies{
		Auth:           auth,
		Tokens:         tokens,
		Checkers:       checkers,
		Logger:         logger.Component("http"),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("auth service listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pgstore.Connect(ctx, pgstore.Config{DSN: cfg.Postgres.DSN})
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, db, log); err != nil {
			_ = db.Close()
			return nil, err
		}
		s := pgstore.NewStore(db)
		log.Info().Msg("postgres store ready")
		return &stores{
			users:   s.Users,
			roles:   s.Roles,
			audit:   s.Audit,
			checker: s,
			close:   func(context.Context) error { return db.Close() },
		}, nil

	case config.DriverMemory:
		s := memory.NewStore()
		log.Warn().Msg("in-memory store selected; data is lost on restart")
		return &stores{
			users:   memory.NewUserRepository(s),
			roles:   memory.NewRoleRepository(s),
			audit:   memory.NewAuditRepository(s),
			checker: s,
			close:   func(context.Context) error { return nil },
		}, nil

	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		s := mongostore.NewStore(db)
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo store ready")
		return &stores{
			users:   s.Users,
			roles:   s.Roles,
			audit:   s.Audit,
			checker: s,
			close:   client.Disconnect,
		}, nil
	}
}
