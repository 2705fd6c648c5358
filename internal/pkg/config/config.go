package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth   AuthConfig
	Cookie CookieConfig
	Store  StoreConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Blob   BlobConfig
	S3     S3Config

	AuditWorkers int `env:"AUDIT_WORKERS, default=4"`
}

type AuthConfig struct {
	JWTSecret       string        `env:"JWT_SECRET, required"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,  default=10m"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL, default=720h"`
	Timeout         time.Duration `env:"AUTH_TIMEOUT,      default=5s"`
}

type CookieConfig struct {
	Secure   bool   `env:"COOKIE_SECURE,   default=false"`
	SameSite string `env:"COOKIE_SAMESITE, default=Lax"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=postgres"`
	DSN    string `env:"DATABASE_DSN"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=filestore"`
}

// RedisConfig enables sign-in throttling when Addr is set.
type RedisConfig struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB,            default=0"`
	MaxAttempts  int           `env:"SIGNIN_MAX_ATTEMPTS, default=5"`
	AttemptsSpan time.Duration `env:"SIGNIN_WINDOW,       default=15m"`
}

type BlobConfig struct {
	Backend        string `env:"BLOB_BACKEND,     default=disk"`
	UploadDir      string `env:"UPLOAD_DIR,       default=./uploads"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES, default=33554432"`
}

type S3Config struct {
	Bucket    string `env:"S3_BUCKET"`
	Region    string `env:"S3_REGION,     default=us-east-1"`
	Endpoint  string `env:"S3_ENDPOINT"`
	AccessKey string `env:"S3_ACCESS_KEY"`
	SecretKey string `env:"S3_SECRET_KEY"`
	PathStyle bool   `env:"S3_PATH_STYLE, default=false"`
}

// LoadDotEnv seeds the process environment from the given files (".env"
// when none are named). Missing files are ignored and variables already
// set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: %s: %w", p, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through an arbitrary lookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether ENV names a production-like environment.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "prod" || env == "production" || env == "release"
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("JWT_SECRET must not be blank")
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be > 0")
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if c.Auth.Timeout <= 0 {
		return errors.New("AUTH_TIMEOUT must be > 0")
	}

	switch strings.ToLower(c.Cookie.SameSite) {
	case "lax", "strict":
	case "none":
		if !c.Cookie.Secure {
			return errors.New("COOKIE_SECURE must be true when COOKIE_SAMESITE=None")
		}
	default:
		return errors.New("COOKIE_SAMESITE must be one of: Lax, None, Strict")
	}
	if c.IsProduction() && !c.Cookie.Secure {
		return errors.New("in production COOKIE_SECURE must be true")
	}

	switch c.Store.Driver {
	case "postgres", "mysql":
		if c.Store.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for STORE_DRIVER=%s", c.Store.Driver)
		}
	case "mongo":
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, mysql, mongo (got %q)", c.Store.Driver)
	}

	switch c.Blob.Backend {
	case "disk":
		if c.Blob.UploadDir == "" {
			return errors.New("UPLOAD_DIR must not be empty")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("S3_BUCKET is required for BLOB_BACKEND=s3")
		}
	default:
		return fmt.Errorf("BLOB_BACKEND must be one of: disk, s3 (got %q)", c.Blob.Backend)
	}
	if c.Blob.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}
