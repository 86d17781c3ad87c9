package main

import (
	"context"
	"log"

	goredis "github.com/redis/go-redis/v9"

	"finanzas/internal/domain/ledger"
	"finanzas/internal/domain/session"
	"finanzas/internal/infrastructure/postgres"
	"finanzas/internal/infrastructure/redis"
	httphandlers "finanzas/internal/interfaces/http"
	"finanzas/internal/shared/auth"
	"finanzas/internal/shared/config"
	"finanzas/internal/shared/messages"
)

// Dependencies holds all initialized application components.
type Dependencies struct {
	DB    *postgres.DB
	Redis *goredis.Client

	// Handlers
	SessionHandler *httphandlers.SessionHandler
	LedgerHandler  *httphandlers.LedgerHandler
	HealthHandler  *httphandlers.HealthHandler

	// Domain
	Sessions *session.Manager
	Ledger   *ledger.Service
}

// NewDependencies initializes all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	msgs, err := messages.Load(cfg.Messages.File)
	if err != nil {
		return nil, err
	}

	// Connect to database
	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		return nil, err
	}
	log.Println("Connected to database")

	if cfg.Database.AutoMigrate {
		if err := postgres.MigrateUp(db); err != nil {
			db.Close()
			return nil, err
		}
	}

	deps := &Dependencies{DB: db}

	// Settlement guard: shared through Redis when configured, in-process otherwise
	var guard ledger.Guard
	if cfg.Redis.Addr != "" {
		client, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			db.Close()
			return nil, err
		}
		deps.Redis = client
		guard = redis.NewGuard(client, cfg.Ledger.SettlementLockTTL)
		log.Printf("Using Redis settlement guard at %s", cfg.Redis.Addr)
	} else {
		guard = ledger.NewMemoryGuard()
		log.Println("Using in-process settlement guard")
	}

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	entryRepo := postgres.NewEntryRepository(db)

	// Initialize domain services
	jwt := auth.NewJWT(cfg.JWT.Secret)
	hasher := auth.NewPasswordHasher(cfg.Session.BcryptCost)
	deps.Sessions = session.NewManager(userRepo, sessionRepo, jwt, hasher, cfg.Session.TTL)
	deps.Ledger = ledger.NewService(entryRepo, guard)

	// Initialize handlers
	deps.SessionHandler = httphandlers.NewSessionHandler(deps.Sessions, msgs)
	deps.LedgerHandler = httphandlers.NewLedgerHandler(deps.Ledger, msgs)
	deps.HealthHandler = httphandlers.NewHealthHandler(db)

	return deps, nil
}

// WatchSessions drops resident ledgers as their sessions sign out. It
// returns when ctx is done.
func (d *Dependencies) WatchSessions(ctx context.Context) {
	events, unsubscribe := d.Sessions.Subscribe(64)
	defer unsubscribe()
	d.Ledger.Books().Watch(ctx, events)
}

// Close releases all resources held by dependencies.
func (d *Dependencies) Close() {
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
