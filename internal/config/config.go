package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultSeparator  = "*"
	defaultHomeMenu   = "home_instant_ussd"
	defaultSessionTTL = 10 * time.Minute
)

type Config struct {
	Port    string
	DataDir string

	Separator  string
	MenusFile  string
	HomeMenu   string
	SessionTTL time.Duration
}

func Load() (*Config, error) {
	// .env is optional; in production the environment is already populated
	_ = godotenv.Load()

	cfg := &Config{
		Port:      os.Getenv("PORT"),
		DataDir:   os.Getenv("DATA_DIR"),
		MenusFile: os.Getenv("USSD_MENUS_FILE"),
		HomeMenu:  os.Getenv("USSD_HOME_MENU"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "."
	}

	if cfg.HomeMenu == "" {
		cfg.HomeMenu = defaultHomeMenu
	}

	sep, ok := os.LookupEnv("USSD_SEPARATOR")
	switch {
	case !ok:
		cfg.Separator = defaultSeparator
	case sep == "":
		return nil, fmt.Errorf("USSD_SEPARATOR is set but empty")
	default:
		cfg.Separator = sep
	}

	cfg.SessionTTL = defaultSessionTTL
	if v := os.Getenv("USSD_SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parsing USSD_SESSION_TTL: %w", err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("USSD_SESSION_TTL must be positive, got %s", ttl)
		}
		cfg.SessionTTL = ttl
	}

	if cfg.MenusFile == "" {
		return nil, fmt.Errorf("required env var USSD_MENUS_FILE is not set")
	}

	return cfg, nil
}
