package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DENTALLEARN_POSTGRES_URL.
const EnvPrefix = "DENTALLEARN"

type Config struct {
	Server struct {
		Port string `mapstructure:"port" validate:"omitempty,numeric"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	} `mapstructure:"log"`
	Redis struct {
		Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db" validate:"gte=0"`
		TTL      string `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Postgres struct {
		URL string `mapstructure:"url" validate:"omitempty,url"`
	} `mapstructure:"postgres"`
	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret" validate:"required"`
	} `mapstructure:"auth"`
	Quiz struct {
		DailySize       int    `mapstructure:"daily_size" validate:"gte=1,lte=50"`
		PerfectBonus    int    `mapstructure:"perfect_bonus" validate:"gte=0"`
		QuestionTimeout string `mapstructure:"question_timeout"`
		PoolTTL         string `mapstructure:"pool_ttl"`
		Fixtures        string `mapstructure:"fixtures"`
	} `mapstructure:"quiz"`
	Calendar struct {
		Timezone string `mapstructure:"timezone" validate:"required,timezone"`
	} `mapstructure:"calendar"`
	Leaderboard struct {
		NeighborWindow int `mapstructure:"neighbor_window" validate:"gte=1,lte=25"`
	} `mapstructure:"leaderboard"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "360h")
	v.SetDefault("postgres.url", "")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("quiz.daily_size", 10)
	v.SetDefault("quiz.perfect_bonus", 50)
	v.SetDefault("quiz.question_timeout", "60s")
	v.SetDefault("quiz.pool_ttl", "10m")
	v.SetDefault("quiz.fixtures", "")
	v.SetDefault("calendar.timezone", "Europe/Paris")
	v.SetDefault("leaderboard.neighbor_window", 2)
}

// Load reads YAML config from path, applies DENTALLEARN_* environment
// overrides and validates the result. A missing file is not an error; the
// defaults and environment still apply.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and duration strings.
func Validate(cfg Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for key, raw := range map[string]string{
		"redis.ttl":             cfg.Redis.TTL,
		"quiz.question_timeout": cfg.Quiz.QuestionTimeout,
		"quiz.pool_ttl":         cfg.Quiz.PoolTTL,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid config: %s: %w", key, err)
		}
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
