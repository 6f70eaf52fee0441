package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	// Chat flood control, per connection.
	ChatRate  float64 `mapstructure:"chat_rate"`
	ChatBurst int     `mapstructure:"chat_burst"`

	// Chat history sqlite file.
	HistoryPath string `mapstructure:"history_path"`

	// Local relay fallback slot directory and queue depth (1 = single slot).
	RelayDir  string `mapstructure:"relay_dir"`
	SlotDepth int    `mapstructure:"slot_depth"`

	// Playback aggregator timing.
	Stagger     time.Duration `mapstructure:"stagger"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	BufferRetry time.Duration `mapstructure:"buffer_retry"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("secret", "coview-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("chat_rate", 2.0)
	v.SetDefault("chat_burst", 5)
	v.SetDefault("history_path", "coview.db")
	v.SetDefault("relay_dir", os.TempDir()+"/coview-relay")
	v.SetDefault("slot_depth", 1)
	v.SetDefault("stagger", "150ms")
	v.SetDefault("retry_delay", "500ms")
	v.SetDefault("buffer_retry", "1s")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
