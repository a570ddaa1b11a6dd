package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const EnvPrefix = "QUIZHUB"

type GameConfig struct {
	InitialTimeout  time.Duration `mapstructure:"initial_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	MinPlayers      int           `mapstructure:"min_players"`
	MaxPlayers      int           `mapstructure:"max_players"`
	StaticID        string        `mapstructure:"static_id"`
	StaticPort      int           `mapstructure:"static_port"`
	PortScanLimit   int           `mapstructure:"port_scan_limit"`
	SayRateLimit    int           `mapstructure:"say_rate_limit"`
	SayRateInterval time.Duration `mapstructure:"say_rate_interval"`
}

type WSConfig struct {
	Host       string        `mapstructure:"host"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
}

type StoreConfig struct {
	Driver        string `mapstructure:"driver"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
}

type Config struct {
	Mode       string      `mapstructure:"mode"`
	Port       int         `mapstructure:"port"`
	Secret     string      `mapstructure:"secret"`
	ExternalIP string      `mapstructure:"external_ip"`
	Game       GameConfig  `mapstructure:"game"`
	WS         WSConfig    `mapstructure:"ws"`
	Store      StoreConfig `mapstructure:"store"`
}

// Load reads config/config.<env>.yaml, then lets QUIZHUB_* variables override it
// (QUIZHUB_GAME_IDLE_TIMEOUT for game.idle_timeout). An empty env falls back to
// CONFIG_ENV, then "dev". A missing file is not an error.
func Load(env string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	logger := log.With().Str("module", "config").Logger()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", fileName, err)
		}
		logger.Warn().Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		logger.Info().Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	logger.Info().
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("store", cfg.Store.Driver).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("secret", "")
	v.SetDefault("external_ip", "localhost")

	v.SetDefault("game.initial_timeout", "60s")
	v.SetDefault("game.idle_timeout", "30s")
	v.SetDefault("game.max_retries", 10)
	v.SetDefault("game.min_players", 1)
	v.SetDefault("game.max_players", 32)
	v.SetDefault("game.static_id", "")
	v.SetDefault("game.static_port", 0)
	v.SetDefault("game.port_scan_limit", 100)
	v.SetDefault("game.say_rate_limit", 5)
	v.SetDefault("game.say_rate_interval", "1s")

	v.SetDefault("ws.host", "")
	v.SetDefault("ws.read_limit", 4096)
	v.SetDefault("ws.ping_period", "54s")
	v.SetDefault("ws.write_wait", "10s")

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("store.mongo_database", "quizhub")
	v.SetDefault("store.postgres_dsn", "")
}
