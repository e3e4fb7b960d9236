package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.elastic.co/ecszerolog"

	"github.com/dentaldesk/dentaldesk/internal/config"
	"github.com/dentaldesk/dentaldesk/internal/domain/billing"
	"github.com/dentaldesk/dentaldesk/internal/domain/practice"
	"github.com/dentaldesk/dentaldesk/internal/domain/session"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/internal/platform/db"
	"github.com/dentaldesk/dentaldesk/internal/platform/identity"
	"github.com/dentaldesk/dentaldesk/migrations"
)

const tokenIssuer = "dentaldesk"

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	switch cfg.LogFormat {
	case "ecs":
		logger = ecszerolog.New(os.Stdout)
	case "console":
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	default:
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	return logger.Level(level).With().Str("service", "dentaldesk").Logger()
}

func migrationSource(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

// app holds the wired services shared by the serve and admin commands.
type app struct {
	pool        *pgxpool.Pool
	credentials identity.CredentialStore
	revoked     *auth.TokenRevocationStore

	sessions   *session.Service
	practice   *practice.Service
	membership *practice.Membership
	billing    *billing.Service

	closers []func()
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a := &app{pool: pool}
	a.closers = append(a.closers, pool.Close)

	switch cfg.IdentityStore {
	case "sqlite":
		store, err := identity.NewSQLiteStore(cfg.IdentitySQLitePath)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open identity store: %w", err)
		}
		a.credentials = store
		a.closers = append(a.closers, func() { _ = store.Close() })
	default:
		a.credentials = identity.NewPGStore(pool)
	}

	a.revoked = auth.NewTokenRevocationStore(time.Minute)
	a.closers = append(a.closers, a.revoked.Close)

	signer := auth.NewSigner([]byte(cfg.AuthSigningKey), cfg.SessionTTL, tokenIssuer)
	idp, err := identity.NewLocal(a.credentials, signer, a.revoked, cfg.SessionTTL)
	if err != nil {
		a.Close()
		return nil, err
	}

	clinics := practice.NewClinicRepo(pool)
	doctors := practice.NewDoctorRepo(pool)
	patients := practice.NewPatientRepo(pool)
	a.practice = practice.NewService(clinics, doctors, patients)
	a.membership = practice.NewMembership(clinics, doctors, patients, idp)

	a.billing = billing.NewService(billing.NewItemRepo(pool), billing.NewInvoiceRepo(pool))

	dir := session.NewDirectory(pool)
	a.sessions = session.NewService(idp, dir, dir)
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
