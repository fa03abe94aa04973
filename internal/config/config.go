// backend/internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Server struct {
		Port            string   `yaml:"port"`
		PublicURL       string   `yaml:"public_url"`
		CORSOrigins     []string `yaml:"cors_origins"`
		ReadTimeout     string   `yaml:"read_timeout"`
		WriteTimeout    string   `yaml:"write_timeout"`
		ShutdownTimeout string   `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Database struct {
		Driver   string `yaml:"driver"`
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslmode"`
		MongoURI string `yaml:"mongo_uri"`
		MongoDB  string `yaml:"mongo_db"`
	} `yaml:"database"`
	Redis struct {
		Addr           string `yaml:"addr"`
		Password       string `yaml:"password"`
		DB             int    `yaml:"db"`
		CollectionTTL  string `yaml:"collection_ttl"`
		LeaderboardTTL string `yaml:"leaderboard_ttl"`
		SessionTTL     string `yaml:"session_ttl"`
	} `yaml:"redis"`
	Auth struct {
		JWTSecret  string  `yaml:"jwt_secret"`
		TokenTTL   string  `yaml:"token_ttl"`
		LoginRate  float64 `yaml:"login_rate"`
		LoginBurst int     `yaml:"login_burst"`
		Bootstrap  struct {
			Username string `yaml:"username"`
			Password string `yaml:"password"`
		} `yaml:"bootstrap"`
	} `yaml:"auth"`
	Uploads struct {
		Dir       string `yaml:"dir"`
		URLPrefix string `yaml:"url_prefix"`
		MaxBytes  int64  `yaml:"max_bytes"`
		S3Bucket  string `yaml:"s3_bucket"`
		AWSRegion string `yaml:"aws_region"`
	} `yaml:"uploads"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	AutoClear struct {
		TickInterval string `yaml:"tick_interval"`
	} `yaml:"autoclear"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.PublicURL = "http://localhost:3000"
	cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	cfg.Server.ReadTimeout = "15s"
	cfg.Server.WriteTimeout = "15s"
	cfg.Server.ShutdownTimeout = "15s"
	cfg.Database.Driver = DriverPostgres
	cfg.Database.Host = "localhost"
	cfg.Database.Port = "5432"
	cfg.Database.User = "postgres"
	cfg.Database.Name = "gochangi"
	cfg.Database.SSLMode = "disable"
	cfg.Database.MongoURI = "mongodb://localhost:27017"
	cfg.Database.MongoDB = "gochangi"
	cfg.Redis.CollectionTTL = "10m"
	cfg.Redis.LeaderboardTTL = "30s"
	cfg.Redis.SessionTTL = "12h"
	cfg.Auth.TokenTTL = "24h"
	cfg.Auth.LoginRate = 0.2
	cfg.Auth.LoginBurst = 5
	cfg.Uploads.Dir = "uploads"
	cfg.Uploads.URLPrefix = "/uploads"
	cfg.Uploads.MaxBytes = 5 << 20
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	cfg.AutoClear.TickInterval = "1m"
	return cfg
}

// Load builds the configuration from defaults, the optional YAML file at path,
// a .env file in the working directory and finally the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.PublicURL, "PUBLIC_URL")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	setString(&cfg.Database.Driver, "DB_DRIVER")
	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")
	setString(&cfg.Database.MongoURI, "MONGO_URI")
	setString(&cfg.Database.MongoDB, "MONGO_DB")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setString(&cfg.Redis.SessionTTL, "SESSION_TTL")
	setString(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setString(&cfg.Auth.TokenTTL, "TOKEN_TTL")
	setString(&cfg.Auth.Bootstrap.Username, "ADMIN_USERNAME")
	setString(&cfg.Auth.Bootstrap.Password, "ADMIN_PASSWORD")
	setString(&cfg.Uploads.Dir, "UPLOAD_DIR")
	if v, err := strconv.ParseInt(os.Getenv("UPLOAD_MAX_BYTES"), 10, 64); err == nil && v > 0 {
		cfg.Uploads.MaxBytes = v
	}
	setString(&cfg.Uploads.S3Bucket, "S3_BUCKET")
	setString(&cfg.Uploads.AWSRegion, "AWS_REGION")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.AutoClear.TickInterval, "AUTOCLEAR_TICK")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMongo, DriverMemory:
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	if c.Uploads.MaxBytes <= 0 {
		return errors.New("uploads.max_bytes must be positive")
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Server.Port, ":")
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
