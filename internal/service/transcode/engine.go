package service

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// Engine runs one transcoding invocation. expected is the
// output duration in seconds used to turn ffmpeg progress
// reports into a completion ratio; onProgress receives values
// in [0, 1] and may be nil.
type Engine interface {
	Run(ctx context.Context, args []string, expected float64, onProgress func(ratio float64)) error
}

// EngineProvider yields a ready engine. Initialization of the
// real engine is expensive, so providers are expected to share
// one engine across callers.
type EngineProvider func(ctx context.Context) (Engine, error)

// NewSingleFlightProvider memoizes the first successful init.
// Concurrent callers wait for the in-flight init instead of
// starting their own; a failed init is not cached, the next
// caller retries.
func NewSingleFlightProvider(initFn func(ctx context.Context) (Engine, error)) EngineProvider {
	var (
		mu     sync.Mutex
		engine Engine
	)

	return func(ctx context.Context) (Engine, error) {
		mu.Lock()
		defer mu.Unlock()

		if engine != nil {
			return engine, nil
		}

		e, err := initFn(ctx)
		if err != nil {
			return nil, err
		}
		engine = e

		return engine, nil
	}
}

// NewFFmpegEngine verifies the ffmpeg binary is present and
// returns an engine backed by it.
func NewFFmpegEngine(_ context.Context) (Engine, error) {
	const op = "transcode.NewFFmpegEngine"

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ffmpegEngine{}, nil
}

type ffmpegEngine struct{}

// Run executes ffmpeg with machine-readable progress on stdout.
// out_time_us reports processed output time in microseconds.
func (e *ffmpegEngine) Run(ctx context.Context, args []string, expected float64, onProgress func(float64)) error {
	const op = "ffmpegEngine.Run"

	full := append([]string{
		"-y",
		"-loglevel", "error",
		"-progress", "pipe:1",
		"-nostats",
	}, args...)

	cmd := exec.CommandContext(ctx, "ffmpeg", full...)

	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		if onProgress == nil || expected <= 0 {
			continue
		}
		if ratio, ok := parseProgressLine(scanner.Text(), expected); ok {
			onProgress(ratio)
		}
	}

	if err := cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", op, err, msg)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func parseProgressLine(line string, expected float64) (float64, bool) {
	val, found := strings.CutPrefix(line, "out_time_us=")
	if !found {
		// older builds emit out_time_ms with microsecond values
		val, found = strings.CutPrefix(line, "out_time_ms=")
	}
	if !found {
		return 0, false
	}

	us, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil || us < 0 {
		return 0, false
	}

	ratio := float64(us) / 1e6 / expected
	if ratio > 1 {
		ratio = 1
	}
	return ratio, true
}
