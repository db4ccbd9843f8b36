package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingSecret = errors.New("jwt secret is required")

type DBConfig struct {
	// Driver is "pgx" or "postgres" (lib/pq).
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Duration time.Duration `yaml:"duration"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
	// Location is the IANA zone used to turn entry timestamps into calendar days.
	Location  string `yaml:"location"`
	RateLimit int    `yaml:"rate_limit"`
	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LogConfig struct {
	Env   string `yaml:"env"`
	Level string `yaml:"level"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Redis  RedisConfig  `yaml:"redis"`
	JWT    JWTConfig    `yaml:"jwt"`
	Log    LogConfig    `yaml:"log"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{Port: "8080", Location: "UTC", RateLimit: 100},
		DB: DBConfig{
			Driver:  "pgx",
			Host:    "localhost",
			Port:    5432,
			User:    "kanso_user",
			Name:    "kanso_db",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		JWT:   JWTConfig{Issuer: "kanso-habit-engine", Duration: 72 * time.Hour},
		Log:   LogConfig{Env: "production", Level: "info"},
	}
}

// Load reads the YAML file at path (skipped when path is empty or missing),
// then a .env file in the working directory, then the process environment.
// Later sources win.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		}
	}

	// .env is optional; existing variables are not overwritten.
	_ = godotenv.Load()

	overrideFromEnv(&cfg)

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingSecret
	}
	if _, err := time.LoadLocation(cfg.Server.Location); err != nil {
		return nil, fmt.Errorf("config: invalid location %q: %w", cfg.Server.Location, err)
	}

	return &cfg, nil
}

// TimeLocation resolves Server.Location. Load has already validated it.
func (c *Config) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Server.Location)
	if err != nil {
		return time.UTC
	}
	return loc
}

func overrideFromEnv(cfg *Config) {
	setString(&cfg.DB.Driver, "DB_DRIVER")
	setString(&cfg.DB.Host, "DB_HOST")
	setInt(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setString(&cfg.JWT.Issuer, "JWT_ISSUER")
	if v := os.Getenv("JWT_DURATION"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.JWT.Duration = d
		}
	}

	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.Location, "TZ_LOCATION")
	setInt(&cfg.Server.RateLimit, "RATE_LIMIT")
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	setString(&cfg.Log.Env, "APP_ENV")
	setString(&cfg.Log.Level, "LOG_LEVEL")
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// GetEnv returns the variable or fallback when unset.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
