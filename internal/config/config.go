package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	LogLevel     string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort     string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort   string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	Storage      string        `yaml:"storage" env:"STORAGE" env-default:"redis"`
	SessionTTL   time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
	SessionSweep time.Duration `yaml:"session-sweep-interval" env:"SESSION_SWEEP_INTERVAL" env-default:"1m"`
	Redis        Redis         `yaml:"redis"`
	Gemini       Gemini        `yaml:"gemini"`
	Bot          Bot           `yaml:"bot"`
}

type Redis struct {
	Host string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
}

type Gemini struct {
	APIKey  string        `yaml:"api-key" env:"API_KEY"`
	Model   string        `yaml:"model" env:"GEMINI_MODEL" env-default:"gemini-2.5-flash"`
	Timeout time.Duration `yaml:"timeout" env:"GEMINI_TIMEOUT" env-default:"15s"`
}

type Bot struct {
	MinThinkDelay time.Duration `yaml:"min-think-delay" env:"BOT_MIN_THINK_DELAY" env-default:"600ms"`
	FallbackTaunt string        `yaml:"fallback-taunt" env:"BOT_FALLBACK_TAUNT" env-default:"Thinking hard..."`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if config.Storage != StorageRedis && config.Storage != StorageMemory {
		return nil, fmt.Errorf("unknown storage %q", config.Storage)
	}

	if config.SessionSweep <= 0 {
		return nil, fmt.Errorf("session-sweep-interval must be positive, got %s", config.SessionSweep)
	}

	return config, nil
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
