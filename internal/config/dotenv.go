package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Profile                  string
	HubURL                   string
	HubSecureURL             string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	ForcedBackend            string
	HealthProbeTimeoutMS     int
	EchoProbeTimeoutMS       int
	PollIntervalMS           int
	HeartbeatIntervalSeconds int
	RegistryStaleSeconds     int
	PartnerStaleSeconds      int
	ReconnectBaseDelayMS     int
	ReconnectMaxDelayMS      int
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Profile:                  "default",
		HubURL:                   "http://localhost:5000",
		HubSecureURL:             "https://localhost:5001",
		HealthProbeTimeoutMS:     3000,
		EchoProbeTimeoutMS:       100,
		PollIntervalMS:           2000,
		HeartbeatIntervalSeconds: 10,
		RegistryStaleSeconds:     30,
		PartnerStaleSeconds:      300,
		ReconnectBaseDelayMS:     500,
		ReconnectMaxDelayMS:      15000,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PROFILE"); raw != "" {
		cfg.Profile = raw
	}
	if raw := os.Getenv("HUB_URL"); raw != "" {
		cfg.HubURL = raw
	}
	if raw := os.Getenv("HUB_SECURE_URL"); raw != "" {
		cfg.HubSecureURL = raw
	}
	if raw := os.Getenv("REDIS_ADDR"); raw != "" {
		cfg.RedisAddr = raw
	}
	if raw := os.Getenv("REDIS_PASSWORD"); raw != "" {
		cfg.RedisPassword = raw
	}
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			cfg.RedisDB = value
		}
	}
	if raw := os.Getenv("FORCED_BACKEND"); raw != "" {
		cfg.ForcedBackend = raw
	}
	if raw := os.Getenv("HEALTH_PROBE_TIMEOUT_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.HealthProbeTimeoutMS = value
		}
	}
	if raw := os.Getenv("ECHO_PROBE_TIMEOUT_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.EchoProbeTimeoutMS = value
		}
	}
	if raw := os.Getenv("POLL_INTERVAL_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.PollIntervalMS = value
		}
	}
	if raw := os.Getenv("HEARTBEAT_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.HeartbeatIntervalSeconds = value
		}
	}
	if raw := os.Getenv("REGISTRY_STALE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RegistryStaleSeconds = value
		}
	}
	if raw := os.Getenv("PARTNER_STALE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.PartnerStaleSeconds = value
		}
	}
	if raw := os.Getenv("RECONNECT_BASE_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconnectBaseDelayMS = value
		}
	}
	if raw := os.Getenv("RECONNECT_MAX_DELAY_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.ReconnectMaxDelayMS = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	return cfg
}
