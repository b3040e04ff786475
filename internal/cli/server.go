package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dentallearn/internal/app"
	"dentallearn/internal/config"
	"dentallearn/internal/domain"
	"dentallearn/internal/infra/memory"
	"dentallearn/internal/infra/postgres"
	redisinfra "dentallearn/internal/infra/redis"
	"dentallearn/internal/metrics"
	transport "dentallearn/internal/transport/http"
	"dentallearn/pkg/logger"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the gamification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// stores is the storage wiring picked from the config: Postgres when a URL
// is set, in-memory otherwise; Redis caches the pool and holds the weekly
// aggregate when configured.
type stores struct {
	pool     app.QuestionPool
	attempts app.AttemptStore
	streaks  app.StreakStore
	points   app.WeeklyPoints
	closers  []func()
}

func (s *stores) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	calendar, err := domain.NewCalendar(cfg.Calendar.Timezone)
	if err != nil {
		return err
	}

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector, err := metrics.New(registry)
	if err != nil {
		return err
	}

	quiz := app.NewDailyQuizEngine(st.pool, st.attempts, app.QuizSettings{
		DailySize:       cfg.Quiz.DailySize,
		PerfectBonus:    cfg.Quiz.PerfectBonus,
		QuestionTimeout: config.TTLDuration(cfg.Quiz.QuestionTimeout, app.DefaultQuestionTimeout),
	})
	streaks := app.NewStreakTracker(st.streaks, calendar)
	board := app.NewLeaderboardService(st.points, calendar, app.NewLeaderboardFeed())
	service := app.NewGamification(quiz, streaks, board, calendar, collector)

	router := transport.NewRouter(transport.RouterConfig{
		Service:        service,
		Auth:           transport.NewAuthenticator(cfg.Auth.JWTSecret, log),
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		NeighborWindow: cfg.Leaderboard.NeighborWindow,
		Log:            log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting gamification service",
			zap.String("addr", server.Addr),
			zap.String("timezone", calendar.Location().String()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*stores, error) {
	st := &stores{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = newRedisClient(cfg)
		st.closers = append(st.closers, func() { _ = redisClient.Close() })
	}

	var pgPool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pgPool, err = postgres.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			st.close()
			return nil, err
		}
		st.closers = append(st.closers, pgPool.Close)
	}

	var loader memory.QuestionLoader
	if pgPool != nil {
		repo := postgres.New(pgPool)
		loader = postgres.NewQuestionStore(repo)
		st.attempts = postgres.NewAttemptStore(repo)
		st.streaks = postgres.NewStreakStore(repo)
		st.points = postgres.NewWeeklyPoints(repo)
	} else {
		questions, err := loadFixture(cfg.Quiz.Fixtures)
		if err != nil {
			st.close()
			return nil, err
		}
		log.Warn("no postgres configured, keeping state in memory", zap.Int("questions", len(questions)))
		loader = memory.NewStaticQuestionLoader(questions)
		st.attempts = memory.NewAttemptStore()
		st.streaks = memory.NewStreakStore()
		st.points = memory.NewWeeklyPoints()
	}

	poolTTL := config.TTLDuration(cfg.Quiz.PoolTTL, 10*time.Minute)
	if redisClient != nil {
		st.pool = redisinfra.NewQuestionPool(redisClient, loader, poolTTL)
		st.points = redisinfra.NewWeeklyPoints(redisClient, config.TTLDuration(cfg.Redis.TTL, 0))
	} else {
		st.pool = memory.NewQuestionPool(loader, poolTTL)
	}
	return st, nil
}
