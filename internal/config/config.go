package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type APIConfig struct {
	Addr                string
	DatabaseURL         string
	DBMaxConns          int32
	SupabaseURL         string
	SupabaseAnonKey     string
	AdminToken          string
	TurnCheckEvery      time.Duration
	StartupSeedCatalogs bool
}

type CLIConfig struct {
	APIBaseURL string
}

func LoadAPIFromEnv() (APIConfig, error) {
	addr := os.Getenv("PORT")
	if addr != "" {
		if !strings.HasPrefix(addr, ":") {
			addr = ":" + addr
		}
	} else {
		addr = envDefault("MAGNATE_API_ADDR", ":8080")
	}

	cfg := APIConfig{
		Addr:                addr,
		DatabaseURL:         strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:          int32(envIntDefault("MAGNATE_DB_MAX_CONNS", 20)),
		SupabaseURL:         strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
		SupabaseAnonKey:     strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		AdminToken:          strings.TrimSpace(os.Getenv("MAGNATE_ADMIN_TOKEN")),
		TurnCheckEvery:      envDurationDefault("MAGNATE_TURN_CHECK_EVERY", time.Minute),
		StartupSeedCatalogs: envBoolDefault("MAGNATE_STARTUP_SEED_CATALOGS", true),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.SupabaseURL == "" {
		return cfg, fmt.Errorf("SUPABASE_URL is required")
	}
	if cfg.SupabaseAnonKey == "" {
		return cfg, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}
	return cfg, nil
}

func LoadCLIFromEnv() CLIConfig {
	return CLIConfig{
		APIBaseURL: strings.TrimRight(envDefault("MAGNATE_API_BASE_URL", "http://localhost:8080"), "/"),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBoolDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
