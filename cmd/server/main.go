package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BerylCAtieno/letterhead-merger/internal/config"
	"github.com/BerylCAtieno/letterhead-merger/internal/converter"
	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/render"
	"github.com/BerylCAtieno/letterhead-merger/internal/router"
	"github.com/BerylCAtieno/letterhead-merger/internal/services"
	"github.com/BerylCAtieno/letterhead-merger/internal/storage"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
	"github.com/spf13/pflag"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger := utils.NewLogger(cfg.LogLevel)

	// Connect to the file store; bad credentials stop the process here
	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.New(initCtx, cfg)
	cancelInit()
	if err != nil {
		logger.Fatal("Failed to initialize file store", "backend", cfg.StoreBackend, "error", err)
	}

	// Initialize letterhead service
	letterheadService := services.NewService(
		store,
		converter.NewOffice(cfg.ConverterBinary, logger),
		render.NewRasterizer(render.NewEngine()),
		services.Options{
			LetterheadFolderID: cfg.LetterheadFolderID,
			BodyFolderID:       cfg.BodyFolderID,
			OutputFolderID:     cfg.OutputFolderID,
			WorkDir:            cfg.WorkDir,
			DPI:                cfg.RenderDPI,
			OutputFormat:       models.Format(cfg.OutputFormat),
			MaxFileSize:        cfg.MaxFileSize,
		},
		logger,
	)
	defer letterheadService.Shutdown()

	// Setup HTTP router
	handler := router.NewRouter(letterheadService, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("Starting server",
			"port", cfg.Port,
			"store", cfg.StoreBackend,
			"converter", cfg.ConverterBinary,
			"work_dir", cfg.WorkDir)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
