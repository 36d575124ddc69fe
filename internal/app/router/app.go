package router

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
	"github.com/aura-labs/aura-studio/internal/storage/sqlite"

	librarySrv "github.com/aura-labs/aura-studio/internal/service/library"
	playbackSrv "github.com/aura-labs/aura-studio/internal/service/playback"
	previewSrv "github.com/aura-labs/aura-studio/internal/service/preview"
	projectSrv "github.com/aura-labs/aura-studio/internal/service/project"
	timelineSrv "github.com/aura-labs/aura-studio/internal/service/timeline"
	transcodeSrv "github.com/aura-labs/aura-studio/internal/service/transcode"

	aiCl "github.com/aura-labs/aura-studio/internal/client/ai"
	speechCl "github.com/aura-labs/aura-studio/internal/client/speech"

	exportCtr "github.com/aura-labs/aura-studio/internal/controller/export"
	libraryCtr "github.com/aura-labs/aura-studio/internal/controller/library"
	projectCtr "github.com/aura-labs/aura-studio/internal/controller/project"
	proxyCtr "github.com/aura-labs/aura-studio/internal/controller/proxy"
	scriptCtr "github.com/aura-labs/aura-studio/internal/controller/script"
	timelineCtr "github.com/aura-labs/aura-studio/internal/controller/timeline"
)

type App struct {
	log     *slog.Logger
	address string
	app     *fiber.App
	clock   *playbackSrv.Clock

	clockCancel context.CancelFunc
}

// New returns configured router.App
func New(
	log *slog.Logger,
	storage *sqlite.Storage,
	address string,
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
	// Create sevices
	store := projectSrv.New(
		log,
		storage,
		proxyPath,
	)

	lib := librarySrv.New(
		log,
		storage,
	)

	surface := timelineSrv.New(
		log,
		store,
	)

	clock := playbackSrv.New(
		log,
		store,
		surface,
	)

	preview := previewSrv.New(
		log,
		previewBaseURL,
		chunkLength,
	)

	pipeline := transcodeSrv.New(
		log,
		exportDir,
		transcodeSrv.NewSingleFlightProvider(transcodeSrv.NewFFmpegEngine),
	)

	// Create clients for external generation services
	ai := aiCl.New(log, aiURL, aiKey, aiTimeout)
	speech := speechCl.New(log, speechURL, speechKey, speechTimeout)

	app := fiber.New()

	// Mount controllers to an app
	app.Mount("/project", projectCtr.New(store, storage))
	app.Mount("/timeline", timelineCtr.New(surface))
	app.Mount("/library", libraryCtr.New(lib, store, mediaDir, mediaBaseURL))
	app.Mount("/proxy", proxyCtr.New(log, proxyTimeout))
	app.Mount("/export", exportCtr.New(store, preview, pipeline, mediaDir, mediaBaseURL))
	app.Mount("/script", scriptCtr.New(store, pipeline, ai, speech, writeFile, mediaDir, mediaBaseURL))

	app.Static(mediaBaseURL, mediaDir, fiber.Static{
		ByteRange: true,
	})

	return &App{
		log:     log,
		address: address,
		app:     app,
		clock:   clock,
	}
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o644)
}

func (a *App) MustRun() {
	if err := a.Run(); err != nil {
		panic(err)
	}
}

func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.clockCancel = cancel

	go func() {
		if err := a.clock.Run(ctx); err != nil {
			a.log.Error("playback clock stopped", sl.Err(err))
		}
	}()

	return a.app.Listen(a.address)
}

func (a *App) Stop() {
	if a.clockCancel != nil {
		a.clockCancel()
	}
	a.clock.Stop()
	a.app.Shutdown()
}
