package main

import (
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/joho/godotenv"

	"github.com/aura-labs/aura-studio/internal/app"
	"github.com/aura-labs/aura-studio/internal/config"
	"github.com/aura-labs/aura-studio/internal/lib/logger/slogpretty"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// .env is optional, real env vars win
	godotenv.Load()

	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)

	log.Info("starting studio", slog.String("env", cfg.Env))
	log.Debug("debug messages are enabled")

	studio := app.New(
		log,
		cfg.Address,
		cfg.StoragePath,
		cfg.Media.Dir,
		cfg.Media.BaseURL,
		cfg.Media.ProxyPath,
		cfg.Media.ProxyTimeout,
		cfg.Preview.BaseURL,
		cfg.Preview.ChunkLength,
		cfg.Export.OutDir,
		cfg.AI.URL,
		getAIKey(),
		cfg.AI.Timeout,
		cfg.Speech.URL,
		getSpeechKey(),
		cfg.Speech.Timeout,
	)

	// Run server
	go func() {
		studio.Router.MustRun()
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)

	<-stop

	studio.Router.Stop()
	log.Info("Gracefully stopped")
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = setupPrettySlog()
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stdout)

	return slog.New(handler)
}

func getAIKey() string {
	key := os.Getenv("AI_API_KEY")

	if key == "" {
		panic("ai api key not specified")
	}

	return key
}

func getSpeechKey() string {
	key := os.Getenv("TTS_API_KEY")

	if key == "" {
		panic("tts api key not specified")
	}

	return key
}
