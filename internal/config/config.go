package config

import (
	"fmt"
	"os"
	"strings"
)

type Config struct {
	Host         string
	Port         string
	DatabaseDSN  string
	Env          string
	LogLevel     string
	LogFile      string
	AllowOrigins []string
}

// Load reads configuration from the environment with sensible defaults.
// Precedence: explicit env var > .env file (loaded by the caller) > default.
func Load() Config {
	origins := strings.Split(getEnv("ALLOW_ORIGINS", "*"), ",")
	return Config{
		Host:         getEnv("HOST", ""),
		Port:         getEnv("PORT", "8080"),
		DatabaseDSN:  getEnv("DATABASE_DSN", "pedidos.db"),
		Env:          getEnv("APP_ENV", "development"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", "logs/pedidos-app.log"),
		AllowOrigins: origins,
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%s", c.Host, c.Port) }

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
