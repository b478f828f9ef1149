package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

const (
	DefaultBaseURL  = "https://cafe-app-meu8i.ondigitalocean.app"
	DefaultCurrency = "Rs"
	appDirName      = "cafe-admin"
)

type Config struct {
	APIBaseURL   string        `koanf:"api_base_url"`
	Timeout      time.Duration `koanf:"timeout"`
	SessionFile  string        `koanf:"session_file"`
	SessionTTL   time.Duration `koanf:"session_ttl"`
	OrderTakenBy int           `koanf:"order_taken_by"`
	Currency     string        `koanf:"currency"`
	CafeAddress  string        `koanf:"cafe_address"`
	CafePhone    string        `koanf:"cafe_phone"`
	CafeEmail    string        `koanf:"cafe_email"`
	LogFile      string        `koanf:"log_file"`
	Debug        bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		APIBaseURL:   DefaultBaseURL,
		Timeout:      20 * time.Second,
		SessionFile:  defaultSessionFile(),
		SessionTTL:   12 * time.Hour,
		OrderTakenBy: 1,
		Currency:     DefaultCurrency,
		LogFile:      "./cafe-admin.log",
		Debug:        false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultBaseURL
	}
	if cfg.OrderTakenBy <= 0 {
		return Config{}, fmt.Errorf("order_taken_by must be positive, got %d", cfg.OrderTakenBy)
	}

	return cfg, nil
}

// defaultSessionFile keeps the session next to other per-user app state, or in the
// working directory when the platform has no config dir.
func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return "./." + appDirName + "-session.json"
	}
	return filepath.Join(dir, appDirName, "session.json")
}
