package app

import (
	"log/slog"
	"os"
	"time"

	routerApp "github.com/aura-labs/aura-studio/internal/app/router"
	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/storage/sqlite"
)

type App struct {
	Router routerApp.App
}

func New(
	log *slog.Logger,
	address string,
	storagePath string,
	mediaDir string,
	mediaBaseURL string,
	proxyPath string,
	proxyTimeout time.Duration,
	previewBaseURL string,
	chunkLength time.Duration,
	exportDir string,
	aiURL string,
	aiKey string,
	aiTimeout time.Duration,
	speechURL string,
	speechKey string,
	speechTimeout time.Duration,
) *App {
	storage, err := sqlite.New(storagePath)
	if err != nil {
		log.Error("failed to init storage", sl.Err(err))
		os.Exit(1)
	}

	if err := os.MkdirAll(mediaDir, 0o755); err != nil {
		log.Error("failed to create media dir", sl.Err(err))
		os.Exit(1)
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		log.Error("failed to create export dir", sl.Err(err))
		os.Exit(1)
	}

	routerApp := routerApp.New(
		log,
		storage,
		address,
		mediaDir,
		mediaBaseURL,
		proxyPath,
		proxyTimeout,
		previewBaseURL,
		chunkLength,
		exportDir,
		aiURL,
		aiKey,
		aiTimeout,
		speechURL,
		speechKey,
		speechTimeout,
	)

	return &App{
		Router: *routerApp,
	}
}
