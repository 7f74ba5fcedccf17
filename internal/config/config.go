package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host string
	Port int

	UserAgent string
	TimeoutMs int
	Proxy     string

	APIKey string

	RetryMaxAttempts int

	Debug string

	UpstreamBaseURL string
	AuthBaseURL     string

	AccountsFile   string
	ReloadInterval time.Duration
	AdminPassword  string
}

var (
	cfg  *Config
	once sync.Once
)

func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		cfg = &Config{
			Host:             getEnv("HOST", "0.0.0.0"),
			Port:             getEnvInt("PORT", 8046),
			UserAgent:        getEnv("API_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)"),
			TimeoutMs:        getEnvInt("TIMEOUT", 180000),
			Proxy:            getEnv("PROXY", ""),
			APIKey:           getEnv("API_KEY", ""),
			RetryMaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			Debug:            getEnv("DEBUG", "off"),
			UpstreamBaseURL:  getEnv("UPSTREAM_BASE_URL", "https://gemini.google.com"),
			AuthBaseURL:      getEnv("AUTH_BASE_URL", "https://business.gemini.google"),
			AccountsFile:     getEnv("ACCOUNTS_FILE", "./config/accounts.json"),
			ReloadInterval:   time.Duration(getEnvInt("RELOAD_INTERVAL", 60)) * time.Second,
			AdminPassword:    getEnv("ADMIN_PASSWORD", ""),
		}

		for i, arg := range os.Args[1:] {
			if arg == "-debug" && i+1 < len(os.Args[1:]) {
				cfg.Debug = os.Args[i+2]
			}
		}
	})

	return cfg
}

func Get() *Config {
	if cfg == nil {
		return Load()
	}
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}
