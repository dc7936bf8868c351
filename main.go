// agora/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agora/config"
	"agora/database"
	"agora/handlers"
	"agora/models"
	"agora/utils"
)

type Application struct {
	db         *database.DatabaseService
	logger     *slog.Logger
	uploadDir  string
	bannerFile string
	storage    models.StorageService
	sessionTTL time.Duration
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService  { return a.db }
func (a *Application) Logger() *slog.Logger           { return a.logger }
func (a *Application) UploadDir() string              { return a.uploadDir }
func (a *Application) BannerFile() string             { return a.bannerFile }
func (a *Application) Storage() models.StorageService { return a.storage }
func (a *Application) SessionTTL() time.Duration      { return a.sessionTTL }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	utils.BackupDir = cfg.BackupDir
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		logger.Error("FATAL: Could not create backup directory", "path", utils.BackupDir, "error", err)
		os.Exit(1)
	}

	dbService, err := database.InitDB(cfg.DBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	if cfg.AdminUser != "" && cfg.AdminPassword != "" {
		if err := dbService.EnsureSuperuser(context.Background(), cfg.AdminUser, cfg.AdminPassword); err != nil {
			logger.Error("Failed to create bootstrap superuser", "username", cfg.AdminUser, "error", err)
			os.Exit(1)
		}
	}

	if err := handlers.LoadTemplates(); err != nil {
		logger.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// --- Storage Service Init ---
	var storageService models.StorageService
	var s3PublicURL string
	if cfg.S3.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		s3Store, err := utils.NewS3Storage(ctx, utils.S3Options{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			PublicURL: cfg.S3.PublicURL,
			UseSSL:    cfg.S3.UseSSL,
		})
		cancel()
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		storageService = s3Store
		s3PublicURL = s3Store.PublicURL
		logger.Info("S3 Storage initialized", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
	} else {
		localStore, err := utils.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			logger.Error("FATAL: Could not create uploads directory", "error", err)
			os.Exit(1)
		}
		storageService = localStore
		logger.Info("Local Storage initialized", "dir", cfg.UploadDir)
	}

	app := &Application{
		db:         dbService,
		logger:     logger,
		uploadDir:  cfg.UploadDir,
		bannerFile: cfg.BannerFile,
		storage:    storageService,
		sessionTTL: cfg.SessionTTL,
	}

	mux := handlers.SetupRouter(app)
	finalHandler := handlers.CSRFMiddleware(handlers.NewSecurityHeadersMiddleware(s3PublicURL)(mux))

	// --- Graceful Shutdown ---
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           finalHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("agora server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+cfg.Port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
