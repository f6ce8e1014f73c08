package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/homedocs/doc-processor/internal/common"
	"github.com/homedocs/doc-processor/internal/extract"
	"github.com/homedocs/doc-processor/internal/face"
	"github.com/homedocs/doc-processor/internal/ocr"
	"github.com/homedocs/doc-processor/internal/pdfdoc"
	"github.com/homedocs/doc-processor/internal/server"
)

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Extraction pipeline.
	pdf := pdfdoc.NewExtractor(pdfdoc.Config{
		Pdftotext: cfg.PDF.Pdftotext,
		Pdftoppm:  cfg.PDF.Pdftoppm,
		Pdfimages: cfg.PDF.Pdfimages,
		Pdfinfo:   cfg.PDF.Pdfinfo,
	}, logger)
	ocrAdapter := ocr.NewAdapter(ocr.NewTesseractEngine(), ocr.Config{
		Languages:         cfg.OCR.Languages,
		MaxImageDimension: cfg.OCR.MaxImageDimension,
	}, logger)
	orchestrator := extract.NewOrchestrator(pdf, ocrAdapter, extract.Config{
		MaxFileSizeBytes:    cfg.Extraction.MaxFileSizeBytes,
		MaxImagesToOCR:      cfg.Extraction.MaxImagesToOCR,
		MinImageSizeForOCR:  cfg.Extraction.MinImageSizeForOCR,
		NativeTextThreshold: cfg.Extraction.NativeTextThreshold,
		DPI:                 cfg.OCR.DPI,
	}, logger)

	// Face subsystem. Models are loaded on demand via /face/load-model.
	cache, err := newCache(cfg.Face.CachePath, logger)
	if err != nil {
		logger.Error("opening embedding cache", "path", cfg.Face.CachePath, "error", err)
		os.Exit(1)
	}
	defer cache.Close()
	manager := face.NewManager(face.DlibFactories(cfg.Face.ModelsDir), logger)
	defer manager.Close()
	embedder := face.NewEmbedder(manager, cache, logger)
	comparator := face.NewComparator(embedder, logger)

	handler := server.NewHandler(orchestrator, pdf, manager, embedder, comparator, cache, server.Options{
		Version:               cfg.Server.Version,
		DefaultMatchThreshold: cfg.Face.DefaultMatchThreshold,
		MaxUploadBytes:        cfg.Extraction.MaxFileSizeBytes * 2,
	}, logger)

	mux := http.NewServeMux()
	server.RegisterRoutes(mux, handler)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.WithRequestID(
			server.WithAccessLog(logger,
				server.WithRecovery(logger, mux))),
	}

	go func() {
		logger.Info("serving", "addr", cfg.Server.Addr, "version", cfg.Server.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	logger.Info("stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN", "WARNING":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func newCache(path string, logger *slog.Logger) (face.Cache, error) {
	if path == "" {
		return face.NewMemoryCache(), nil
	}
	logger.Info("using persistent embedding cache", "path", path)
	return face.NewSQLiteCache(path)
}
