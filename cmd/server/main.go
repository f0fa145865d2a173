package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "pollpulse/docs"
	"pollpulse/internal/config"
	"pollpulse/internal/domain/room"
	"pollpulse/internal/domain/user"
	api "pollpulse/internal/http"
	"pollpulse/internal/metrics"
	"pollpulse/internal/platform/cache"
	"pollpulse/internal/platform/database"
	"pollpulse/internal/platform/events"
	jwtpkg "pollpulse/internal/platform/jwt"
	mongorepo "pollpulse/internal/repository/mongo"
	"pollpulse/internal/repository/postgres"
	"pollpulse/internal/worker"
)

// store bundles the repositories of one backend with its lifecycle hooks.
type store struct {
	users user.Repository
	rooms room.Repository
	ping  func(ctx context.Context) error
	close func()
}

// @title           PollPulse API
// @version         1.0
// @description     Decision rooms with deadline-bound, one-vote-per-voter polling
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)
	api.SetLogger(logger)

	cfg := config.Load()
	metrics.Register()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("store connect error", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer st.close()

	roomSvc := room.NewService(st.rooms)
	roomSvc.SetLogger(logger)
	roomSvc.SetMaxOptions(cfg.MaxOptions)
	userSvc := user.NewService(st.users)

	if cfg.RedisURL != "" {
		rdb, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, room cache disabled", "error", err)
		} else {
			defer rdb.Close()
			roomSvc.SetCache(cache.NewRoomCache(rdb, cfg.RoomCacheTTL))
		}
	}

	var publisher worker.Publisher = events.NewLogPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			logger.Warn("kafka unavailable, logging vote events instead", "error", err)
		} else {
			kp := events.NewKafkaPublisher(producer, cfg.KafkaTopic)
			defer kp.Close()
			publisher = kp
		}
	}

	jwtMgr := jwtpkg.NewManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	voteCh := make(chan worker.VoteEvent, 100)
	statsWorker := worker.NewStatsWorker(voteCh, publisher, logger)

	router := api.NewRouter(userSvc, roomSvc, jwtMgr, voteCh, api.Options{
		CORSOrigins:    cfg.CORSOrigins,
		VotesPerMinute: cfg.VoteRate,
		VoteBurst:      cfg.VoteBurst,
		Ready:          st.ping,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		statsWorker.Run(ctx)
	}()

	go func() {
		logger.Info("server listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	<-workerDone

	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config) (*store, error) {
	switch cfg.StoreDriver {
	case "mongo":
		m, err := database.NewMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongorepo.EnsureIndexes(ctx, m.DB); err != nil {
			_ = m.Close(context.Background())
			return nil, err
		}
		return &store{
			users: mongorepo.NewUserRepo(m.DB),
			rooms: mongorepo.NewRoomRepo(m.DB),
			ping:  m.Ping,
			close: func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = m.Close(closeCtx)
			},
		}, nil
	default:
		db, err := database.NewPostgres(ctx, cfg.DB_DSN)
		if err != nil {
			return nil, err
		}
		if err := postgres.CreateSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return &store{
			users: postgres.NewUserRepo(db),
			rooms: postgres.NewRoomRepo(db),
			ping:  db.PingContext,
			close: func() { _ = db.Close() },
		}, nil
	}
}
