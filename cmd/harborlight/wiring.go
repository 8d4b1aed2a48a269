// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Harborlight Contributors

package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/harborlight/harborlight/internal/applications"
	apppostgres "github.com/harborlight/harborlight/internal/applications/postgres"
	"github.com/harborlight/harborlight/internal/auth"
	"github.com/harborlight/harborlight/internal/auth/postgres"
	authredis "github.com/harborlight/harborlight/internal/auth/redis"
	"github.com/harborlight/harborlight/internal/config"
	"github.com/harborlight/harborlight/internal/httpapi"
	"github.com/harborlight/harborlight/internal/logging"
	"github.com/harborlight/harborlight/internal/mail"
	"github.com/harborlight/harborlight/internal/observability"
	"github.com/harborlight/harborlight/internal/store"
)

const serviceName = "harborlight"

// backend groups the repositories the services are built on.
type backend struct {
	accounts     auth.AccountRepository
	invites      auth.InviteRepository
	tokens       auth.TokenRepository
	tx           auth.Transactor
	applications applications.Repository
}

func postgresBackend(pool *pgxpool.Pool) backend {
	return backend{
		accounts:     postgres.NewAccountRepository(pool),
		invites:      postgres.NewInviteRepository(pool),
		tokens:       postgres.NewTokenRepository(pool),
		tx:           postgres.NewTransactor(pool),
		applications: apppostgres.NewRepository(pool),
	}
}

func poolConfig(cfg *config.Config) store.PoolConfig {
	return store.PoolConfig{
		URL:             cfg.Database.URL.Value(),
		MaxConns:        cfg.Database.MaxConns,
		ConnectTimeout:  cfg.Database.ConnectTimeout,
		ConnectAttempts: cfg.Database.ConnectAttempts,
	}
}

// setupLogging installs the process logger and returns it.
func setupLogging(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	logger, err := logging.Setup(logging.Options{
		Service: serviceName,
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, w)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newMailer selects the configured transport. metrics may be nil.
func newMailer(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (auth.Mailer, error) {
	if cfg.Mail.Transport != config.MailTransportHTTP {
		return mail.NewLogMailer(logger), nil
	}
	var recorder mail.Recorder
	if metrics != nil {
		recorder = metrics
	}
	return mail.NewHTTPMailer(mail.Config{
		Endpoint:    cfg.Mail.Endpoint,
		APIKey:      cfg.Mail.APIKey.Value(),
		From:        cfg.Mail.From,
		Timeout:     cfg.Mail.Timeout,
		MaxAttempts: cfg.Mail.MaxAttempts,
	}, recorder)
}

// codeStore is the access code backend plus its lifecycle hooks.
type codeStore struct {
	auth.CodeStore
	// ping is nil when codes live in PostgreSQL.
	ping  func(ctx context.Context) error
	close func() error
}

// newCodeStore selects where applicant access codes are kept. The Redis
// backend is pinged once so a bad address fails startup.
func newCodeStore(ctx context.Context, cfg *config.Config, b backend) (*codeStore, error) {
	if cfg.Auth.CodeStore != config.CodeStoreRedis {
		codes, err := auth.NewTokenCodeStore(b.tokens, b.tx)
		if err != nil {
			return nil, err
		}
		return &codeStore{CodeStore: codes, close: func() error { return nil }}, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password.Value(),
		DB:       cfg.Redis.DB,
	})
	codes, err := authredis.NewCodeStore(client, cfg.Redis.KeyPrefix)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := codes.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.Redis.Addr).Wrap(err)
	}
	return &codeStore{CodeStore: codes, ping: codes.Ping, close: client.Close}, nil
}

// services holds everything the API and the admin commands call into.
type services struct {
	sessions     *auth.SessionIssuer
	auth         *auth.Service
	reset        *auth.PasswordResetService
	registration *auth.RegistrationService
	accounts     *auth.AccountService
	access       *auth.ApplicantAccessService
	applications *applications.Service
	// deliveries carries reset and access-code mail sent after the
	// response. Drain it before closing the backends.
	deliveries *auth.Dispatcher
}

func buildServices(cfg *config.Config, b backend, mailer auth.Mailer, codes auth.CodeStore) (*services, error) {
	sessions, err := auth.NewSessionIssuer([]byte(cfg.Auth.JWTSecret.Value()), cfg.Auth.SessionTTL)
	if err != nil {
		return nil, err
	}
	links, err := auth.NewLinks(cfg.Site.BaseURL)
	if err != nil {
		return nil, err
	}
	hasher := auth.NewPBKDF2Hasher()

	s := &services{sessions: sessions, deliveries: auth.NewDispatcher(cfg.Mail.DeliveryTimeout)}
	delivery := auth.WithDispatcher(s.deliveries)
	if s.applications, err = applications.NewService(b.applications, mailer, links); err != nil {
		return nil, err
	}
	if s.auth, err = auth.NewAuthService(b.accounts, b.tx, hasher, sessions); err != nil {
		return nil, err
	}
	if s.reset, err = auth.NewPasswordResetService(b.accounts, b.tokens, b.tx, hasher, mailer, links, delivery); err != nil {
		return nil, err
	}
	if s.registration, err = auth.NewRegistrationService(b.accounts, b.invites, b.tx, hasher, sessions, mailer, links); err != nil {
		return nil, err
	}
	if s.accounts, err = auth.NewAccountService(b.accounts, hasher); err != nil {
		return nil, err
	}
	if s.access, err = auth.NewApplicantAccessService(s.applications, codes, b.tokens, b.tx, mailer, delivery); err != nil {
		return nil, err
	}
	return s, nil
}

// buildAPI wires the HTTP layer. metrics may be nil.
func buildAPI(cfg *config.Config, s *services, logger *slog.Logger, metrics *observability.Metrics) (*httpapi.API, error) {
	opts := httpapi.Options{
		Production: cfg.Server.Production(),
		Logger:     logger,
	}
	if metrics != nil {
		opts.Recorder = metrics
	}
	return httpapi.New(httpapi.Deps{
		Sessions:     s.sessions,
		Auth:         s.auth,
		Reset:        s.reset,
		Registration: s.registration,
		Accounts:     s.accounts,
		Access:       s.access,
		Applications: s.applications,
	}, opts)
}
