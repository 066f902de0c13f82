package config

import (
	"errors"
	"os"
	"strings"
)

type Config struct {
	HTTPAddr string
	LogLevel string
	DataDir  string

	// twitterapi.io; key kept in-memory only, never log it
	APIKey  string
	APIBase string

	// credential pairs; guest pair is optional and disables the guest
	// role entirely when absent
	AdminUser     string
	AdminPassword string
	GuestUser     string
	GuestPassword string
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		LogLevel:      getenvDefault("LOG_LEVEL", "info"),
		DataDir:       getenvDefault("POISON_DATA_DIR", "./data"),
		APIKey:        os.Getenv("TWITTERAPI_IO_KEY"),
		APIBase:       getenvDefault("TWITTERAPI_IO_BASE", "https://api.twitterapi.io"),
		AdminUser:     getenvDefault("POISON_ADMIN_USER", "poison"),
		AdminPassword: os.Getenv("POISON_ADMIN_PASSWORD"),
		GuestUser:     getenvDefault("POISON_GUEST_USER", "guest"),
		GuestPassword: os.Getenv("POISON_GUEST_PASSWORD"),
	}

	if strings.TrimSpace(cfg.AdminPassword) == "" {
		return Config{}, errors.New("missing POISON_ADMIN_PASSWORD")
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return Config{}, errors.New("POISON_DATA_DIR must not be blank")
	}

	return cfg, nil
}

// GuestEnabled reports whether a guest credential pair was configured.
func (c Config) GuestEnabled() bool {
	return c.GuestPassword != ""
}

// SearchEnabled reports whether the upstream API key is present. Without it
// the search routes answer with a config error instead of calling out.
func (c Config) SearchEnabled() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
