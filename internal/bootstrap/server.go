package bootstrap

import (
	"context"
	"fmt"

	"github.com/bxcodec/dbresolver/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	walletpg "github.com/walletledger/service/internal/adapters/postgres/wallet"
	txlogpg "github.com/walletledger/service/internal/adapters/postgres/transactionlog"
	redisadapter "github.com/walletledger/service/internal/adapters/redis"
	httpin "github.com/walletledger/service/internal/adapters/http/in"
	"github.com/walletledger/service/internal/services/command"
	"github.com/walletledger/service/internal/services/idempotency"
	"github.com/walletledger/service/internal/services/query"
	"github.com/walletledger/service/pkg/mlog"
	"github.com/walletledger/service/pkg/mpostgres"
	"github.com/walletledger/service/pkg/mretry"
	"github.com/walletledger/service/pkg/mredis"
	"github.com/walletledger/service/pkg/mzap"
)

// Server holds every wired dependency needed to run the HTTP app.
type Server struct {
	Config   *Config
	Logger   mlog.Logger
	Postgres *mpostgres.Connection
	Redis    *mredis.Connection
	App      *fiber.App
}

// NewServer loads configuration, connects to Postgres and Redis, wires the
// command/query use cases, and registers the HTTP routes. It does not start
// listening; call Listen to do that.
func NewServer(ctx context.Context) (*Server, error) {
	cfg := NewConfigFromEnv()
	logger := mzap.InitializeLogger(cfg.Env)

	pg := &mpostgres.Connection{
		PrimaryDSN:    postgresDSN(cfg),
		ReplicaDSN:    postgresDSN(cfg),
		DatabaseName:  cfg.DBName,
		MigrationsDir: "migrations",
		Logger:        logger,
	}

	if err := pg.Connect(); err != nil {
		return nil, fmt.Errorf("bootstrap: postgres connect failed: %w", err)
	}

	db, err := pg.GetDB(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: postgres resolve failed: %w", err)
	}

	redisConn := &mredis.Connection{
		Host:      cfg.CacheHost,
		Port:      cfg.CachePort,
		Password:  cfg.CachePassword,
		DB:        cfg.CacheDB,
		KeyPrefix: cfg.CacheKeyPrefix,
		Logger:    logger,
	}

	redisClient, err := redisConn.GetClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: redis connect failed: %w", err)
	}

	wallets := walletpg.NewRepository(db)
	logs := txlogpg.NewRepository(db)
	cache := redisadapter.NewCacheRepository(redisClient)

	executor := command.NewExecutor(db, wallets, logs, logger)
	coordinator := &idempotency.Coordinator{
		Cache:    cache,
		LogRepo:  logs,
		Logger:   logger,
		CacheTTL: cfg.CacheIdempotencyTTL,
		LeaseTTL: cfg.CacheLockTTL,
		LeaseRetryCfg: mretry.Config{
			MaxRetries:     cfg.CacheLockMaxRetries,
			InitialBackoff: cfg.CacheLockRetryIntervalMs,
			MaxBackoff:     cfg.CacheLockRetryIntervalMs,
			JitterFactor:   0,
		},
		KeyPrefix: cfg.CacheKeyPrefix,
	}

	commandUseCase := command.NewUseCase(coordinator, executor)
	queryUseCase := query.NewUseCase(wallets, logs)

	app := fiber.New()
	httpin.RegisterRoutes(app,
		&httpin.TransferHandler{UseCase: commandUseCase},
		&httpin.QueryHandler{UseCase: queryUseCase},
		&httpin.HealthHandler{Database: dbPinger{db}, Cache: cachePinger{redisClient}},
	)

	return &Server{Config: cfg, Logger: logger, Postgres: pg, Redis: redisConn, App: app}, nil
}

// Listen starts the HTTP server and blocks until it stops.
func (s *Server) Listen() error {
	s.Logger.Infof("listening on :%s", s.Config.Port)
	return s.App.Listen(":" + s.Config.Port)
}

func postgresDSN(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
}

// dbPinger and cachePinger adapt the resolved Postgres pool and Redis
// client to httpin.Pinger so the health endpoint can report each
// dependency's reachability without the HTTP adapter importing either
// client type directly.
type dbPinger struct {
	db dbresolver.DB
}

func (p dbPinger) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

type cachePinger struct {
	client *redis.Client
}

func (p cachePinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
