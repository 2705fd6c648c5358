// Command server runs the filestore HTTP API.
//
//	@title			Filestore API
//	@version		1.0
//	@description	Cookie-session authentication and file storage.
//	@BasePath		/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/api"
	"github.com/99minutos/filestore/internal/api/middleware"
	"github.com/99minutos/filestore/internal/core/ports"
	"github.com/99minutos/filestore/internal/core/service"
	"github.com/99minutos/filestore/internal/infrastructure/audit"
	mongostore "github.com/99minutos/filestore/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/filestore/internal/infrastructure/db/redis"
	"github.com/99minutos/filestore/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/filestore/internal/infrastructure/http/handlers"
	"github.com/99minutos/filestore/internal/infrastructure/queue"
	"github.com/99minutos/filestore/internal/infrastructure/security"
	"github.com/99minutos/filestore/internal/infrastructure/storage"
	"github.com/99minutos/filestore/internal/pkg/config"
	"github.com/99minutos/filestore/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log := logger.Get()
		log.Error().Err(err).Msg("server stopped")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// blobBackend is a blob store that can report its own health.
type blobBackend interface {
	ports.BlobStore
	Ping(ctx context.Context) error
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "filestore",
	})

	checks := map[string]handlers.Check{}
	var cleanups []func()
	defer func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}()

	// --- Metadata store ---
	var (
		users ports.UserRepository
		files ports.FileRepository
	)
	switch cfg.Store.Driver {
	case "mongo":
		store, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = store.Close() })

		userRepo := mongostore.NewAuthRepository(store.DB)
		fileRepo := mongostore.NewFileRepository(store.DB)
		if err := userRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := fileRepo.EnsureIndexes(ctx); err != nil {
			return err
		}
		users, files = userRepo, fileRepo
		checks["mongo"] = store.Ping
	default:
		dialect := sqlstore.Dialect(cfg.Store.Driver)
		db, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: dialect, DSN: cfg.Store.DSN})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = db.Close() })

		if err := sqlstore.Migrate(ctx, db, dialect); err != nil {
			return err
		}
		users = sqlstore.NewUserRepository(db, dialect)
		files = sqlstore.NewFileRepository(db, dialect)
		checks[cfg.Store.Driver] = db.PingContext
	}

	// --- Blob store ---
	var blobs blobBackend
	switch cfg.Blob.Backend {
	case "s3":
		blobs, err = storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
	default:
		blobs, err = storage.NewDiskStore(cfg.Blob.UploadDir)
	}
	if err != nil {
		return err
	}
	checks["blobs"] = blobs.Ping

	// --- Audit trail ---
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, audit.NewLogSink(log), log)
	dispatcher.Start(ctx)

	// --- Auth ---
	jwtm, err := security.NewJWTManager(cfg.Auth.JWTSecret)
	if err != nil {
		return err
	}
	authCfg := service.AuthConfig{
		AccessTTL:  cfg.Auth.AccessTokenTTL,
		RefreshTTL: cfg.Auth.RefreshTokenTTL,
		Timeout:    cfg.Auth.Timeout,
	}
	opts := []service.AuthOption{service.WithAuditPublisher(dispatcher)}

	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		opts = append(opts, service.WithAttemptLimiter(
			redisstore.NewAttemptLimiter(rdb, cfg.Redis.MaxAttempts, cfg.Redis.AttemptsSpan),
		))
		checks["redis"] = redisstore.Check(rdb)
	}

	e := api.NewRouter(api.Deps{
		Auth:           service.NewAuthService(users, security.NewBcryptHasher(security.DefaultBcryptCost), jwtm, authCfg, log, opts...),
		Sessions:       service.NewSessionService(jwtm, jwtm, authCfg, dispatcher),
		Files:          service.NewFileService(files, blobs, log),
		Cookies:        middleware.NewCookiePolicy(cfg.Cookie.Secure, cfg.Cookie.SameSite, cfg.Auth.RefreshTokenTTL),
		Checks:         checks,
		Log:            log,
		MaxUploadBytes: cfg.Blob.MaxUploadBytes,
	})

	return serve(ctx, e, ":"+cfg.Port, log)
}

type server interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// serve blocks until ctx is cancelled or the listener fails, then drains
// in-flight requests.
func serve(ctx context.Context, srv server, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
