// Package app initializes and runs the image search service.
// It configures logging, storage, authentication, and routing,
// and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patric-chuzhbe/imgsearch/internal/auth"
	"github.com/patric-chuzhbe/imgsearch/internal/config"
	"github.com/patric-chuzhbe/imgsearch/internal/db/jsondb"
	"github.com/patric-chuzhbe/imgsearch/internal/db/memorystorage"
	"github.com/patric-chuzhbe/imgsearch/internal/db/postgresdb"
	"github.com/patric-chuzhbe/imgsearch/internal/db/storage"
	"github.com/patric-chuzhbe/imgsearch/internal/logger"
	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/password"
	"github.com/patric-chuzhbe/imgsearch/internal/router"
	"github.com/patric-chuzhbe/imgsearch/internal/search"
	"github.com/patric-chuzhbe/imgsearch/internal/service"
	"github.com/patric-chuzhbe/imgsearch/internal/token"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, HTTP handler and storage backend
// needed to run the image search service.
type App struct {
	cfg         *config.Config
	db          storage.Storage
	httpHandler http.Handler
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage
// - setting up the token issuer, the search client and the router
func New() (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New()
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tokenSigningSecret, err := app.cfg.TokenSigningSecret()
	if err != nil {
		return nil, fmt.Errorf("in internal/app/app.go/New(): error while `app.cfg.TokenSigningSecret()` calling: %w", err)
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	issuer := token.New(tokenSigningSecret, app.cfg.TokenLifetime)

	app.httpHandler = router.New(
		service.New(
			app.db,
			password.New(),
			issuer,
			search.New(app.cfg.SearchProviderURL, app.cfg.SearchEngine),
			lookupSearchAPIKey,
		),
		auth.New(app.db, issuer),
	)

	return app, nil
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infoln("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Saving database and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.db.Close()

	case err := <-serverErrCh:
		if closeErr := a.db.Close(); closeErr != nil {
			logger.Log.Errorw("storage close failed", "error", closeErr)
		}
		return fmt.Errorf("server error: %w", err)
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

// lookupSearchAPIKey reads the provider key per request so that it can be
// rotated without a restart.
func lookupSearchAPIKey() (string, bool) {
	return os.LookupEnv(config.SearchAPIKeyEnv)
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
			cfg.MigrationsDir,
		)

	case models.StorageTypeFile:
		return jsondb.New(cfg.DBFileName)
	}

	return memorystorage.New()
}
