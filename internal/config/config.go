package config

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/glinharesb/hkdf-vault/internal/kdf"
)

type Config struct {
	GRPCAddr       string `yaml:"grpc_addr"`
	AuthToken      string `yaml:"auth_token"`
	AuditBuffer    int    `yaml:"audit_buffer"`
	AuditRetain    int    `yaml:"audit_retain"`
	RateLimitRPS   int    `yaml:"rate_limit_rps"`
	MaxSessions    int    `yaml:"max_sessions"`
	StaticSalt     string `yaml:"static_salt"` // hex
	RotateLabel    string `yaml:"rotate_label"`
	MaxInfo        int    `yaml:"max_info"`
	KEKSecret      string `yaml:"kek_secret"`
	LegacyKeySlots bool   `yaml:"legacy_key_slots"`
	LogLevel       string `yaml:"log_level"`
}

func defaults() Config {
	return Config{
		GRPCAddr:     ":50051",
		AuthToken:    "dev-token",
		AuditBuffer:  1024,
		AuditRetain:  10000,
		RateLimitRPS: 100,
		MaxSessions:  1024,
		MaxInfo:      kdf.DefaultMaxInfo,
		LogLevel:     "info",
	}
}

// Load starts from defaults, applies the YAML file named by HKDF_CONFIG if
// set, then applies HKDF_* environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("HKDF_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.GRPCAddr = envOr("HKDF_GRPC_ADDR", cfg.GRPCAddr)
	cfg.AuthToken = envOr("HKDF_AUTH_TOKEN", cfg.AuthToken)
	cfg.AuditBuffer = envInt("HKDF_AUDIT_BUFFER", cfg.AuditBuffer)
	cfg.AuditRetain = envInt("HKDF_AUDIT_RETAIN", cfg.AuditRetain)
	cfg.RateLimitRPS = envInt("HKDF_RATE_LIMIT_RPS", cfg.RateLimitRPS)
	cfg.MaxSessions = envInt("HKDF_MAX_SESSIONS", cfg.MaxSessions)
	cfg.StaticSalt = envOr("HKDF_STATIC_SALT", cfg.StaticSalt)
	cfg.RotateLabel = envOr("HKDF_ROTATE_LABEL", cfg.RotateLabel)
	cfg.MaxInfo = envInt("HKDF_MAX_INFO", cfg.MaxInfo)
	cfg.KEKSecret = envOr("HKDF_KEK_SECRET", cfg.KEKSecret)
	cfg.LegacyKeySlots = envBool("HKDF_LEGACY_KEY_SLOTS", cfg.LegacyKeySlots)
	cfg.LogLevel = envOr("HKDF_LOG_LEVEL", cfg.LogLevel)

	if cfg.RateLimitRPS <= 0 {
		return Config{}, fmt.Errorf("rate limit must be positive, got %d", cfg.RateLimitRPS)
	}
	if cfg.AuditBuffer <= 0 {
		return Config{}, fmt.Errorf("audit buffer must be positive, got %d", cfg.AuditBuffer)
	}
	if cfg.AuditRetain < 0 || cfg.MaxSessions < 0 {
		return Config{}, fmt.Errorf("negative limit: audit retain %d, max sessions %d", cfg.AuditRetain, cfg.MaxSessions)
	}
	if _, err := cfg.KDF(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// KDF converts the derivation settings into an engine config.
func (c Config) KDF() (kdf.Config, error) {
	out := kdf.Config{
		MaxInfo: c.MaxInfo,
	}
	if c.StaticSalt != "" {
		salt, err := hex.DecodeString(c.StaticSalt)
		if err != nil {
			return kdf.Config{}, fmt.Errorf("static salt: %w", err)
		}
		if len(salt) > kdf.MaxSaltSize {
			return kdf.Config{}, fmt.Errorf("static salt is %d bytes: %w", len(salt), kdf.ErrInvalidLength)
		}
		out.StaticSalt = salt
	}
	if c.RotateLabel != "" {
		out.RotateLabel = []byte(c.RotateLabel)
	}
	if c.MaxInfo < 0 || c.MaxInfo > kdf.MaxInfoLimit {
		return kdf.Config{}, fmt.Errorf("max info %d: %w", c.MaxInfo, kdf.ErrInvalidLength)
	}
	return out, nil
}

func (c Config) Level() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
