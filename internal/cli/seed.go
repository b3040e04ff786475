package cli

import (
	"context"
	"fmt"

	"dentallearn/internal/config"
	"dentallearn/internal/domain"
	"dentallearn/internal/infra/postgres"
	redisinfra "dentallearn/internal/infra/redis"
	"dentallearn/internal/infra/seed"
	"dentallearn/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads a YAML question fixture into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a YAML fixture into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log.Level)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return runSeed(cmd.Context(), cfg, file, log)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question fixture (defaults to the bundled questions)")
	return cmd
}

func runSeed(ctx context.Context, cfg config.Config, file string, log *zap.Logger) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	questions, err := loadFixture(file)
	if err != nil {
		return err
	}

	if err := runMigrations(ctx, cfg, log); err != nil {
		return err
	}
	pool, err := postgres.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, postgres.NewQuestionStore(postgres.New(pool)), questions)
	if err != nil {
		return err
	}
	log.Info("questions seeded", zap.Int("count", n), zap.String("file", file))

	// the shared pool cache would otherwise serve the old set until it expires
	if cfg.Redis.Addr != "" {
		client := newRedisClient(cfg)
		defer client.Close()
		if err := redisinfra.InvalidatePool(ctx, client); err != nil {
			log.Warn("failed to invalidate question pool cache", zap.Error(err))
		}
	}
	return nil
}

func loadFixture(file string) ([]domain.Question, error) {
	if file == "" {
		return seed.Default()
	}
	return seed.LoadFile(file)
}

func newRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
