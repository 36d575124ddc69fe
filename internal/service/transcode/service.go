package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aura-labs/aura-studio/internal/lib/ffmpeg"
	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
)

// Operation names reported through OpError and progress logs.
const (
	OpCompress  = "compress"
	OpTrim      = "trim"
	OpMerge     = "merge"
	OpDownscale = "downscale"
)

// OpError wraps an engine failure with the pipeline operation
// that produced it.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("transcode %s: %s", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Pipeline adapts editing operations to engine invocations.
// Every operation works in its own scoped temp directory that
// is removed on any exit path; results are moved into outDir
// only after a successful readback.
//
// Progress reporting is monotonic and holds at 99 until the
// output file has been verified, then reports 100.
type Pipeline struct {
	log      *slog.Logger
	outDir   string
	provider EngineProvider
}

// ProgressFunc receives percentage values in [0, 100].
type ProgressFunc func(percent int)

func New(
	log *slog.Logger,
	outDir string,
	provider EngineProvider,
) *Pipeline {
	return &Pipeline{
		log:      log,
		outDir:   outDir,
		provider: provider,
	}
}

// Compress re-encodes input for fast preview transfer:
// 360p, 15 fps, mono low-bitrate audio.
func (p *Pipeline) Compress(ctx context.Context, input string, onProgress ProgressFunc) (string, error) {
	const op = "Pipeline.Compress"

	expected, _ := ffmpeg.Duration(input)

	return p.run(ctx, op, OpCompress, expected, onProgress, func(out string) []string {
		return []string{
			"-i", input,
			"-vf", "scale=-2:360,fps=15",
			"-c:v", "libx264",
			"-crf", "32",
			"-preset", "veryfast",
			"-c:a", "aac",
			"-ar", "16000",
			"-b:a", "32k",
			out,
		}
	})
}

// Trim cuts [start, end] out of input without re-encoding.
func (p *Pipeline) Trim(ctx context.Context, input string, start, end float64, onProgress ProgressFunc) (string, error) {
	const op = "Pipeline.Trim"

	if end <= start {
		return "", &OpError{Op: OpTrim, Err: fmt.Errorf("invalid trim window [%f, %f]", start, end)}
	}

	return p.run(ctx, op, OpTrim, end-start, onProgress, func(out string) []string {
		return []string{
			"-ss", ffmpeg.FormatSeconds(start),
			"-to", ffmpeg.FormatSeconds(end),
			"-i", input,
			"-c", "copy",
			out,
		}
	})
}

// MergeAudioVideo muxes the narration track over the video.
// Video passes through untouched; output stops at the shorter
// stream.
func (p *Pipeline) MergeAudioVideo(ctx context.Context, video, audio string, onProgress ProgressFunc) (string, error) {
	const op = "Pipeline.MergeAudioVideo"

	expected, _ := ffmpeg.Duration(video)

	return p.run(ctx, op, OpMerge, expected, onProgress, func(out string) []string {
		return []string{
			"-i", video,
			"-i", audio,
			"-map", "0:v:0",
			"-map", "1:a:0",
			"-c:v", "copy",
			"-c:a", "aac",
			"-b:a", "128k",
			"-shortest",
			out,
		}
	})
}

// Downscale renders a 480p export variant.
func (p *Pipeline) Downscale(ctx context.Context, input string, onProgress ProgressFunc) (string, error) {
	const op = "Pipeline.Downscale"

	expected, _ := ffmpeg.Duration(input)

	return p.run(ctx, op, OpDownscale, expected, onProgress, func(out string) []string {
		return []string{
			"-i", input,
			"-vf", "scale=-2:480",
			"-c:v", "libx264",
			"-crf", "28",
			"-preset", "veryfast",
			"-c:a", "copy",
			out,
		}
	})
}

func (p *Pipeline) run(
	ctx context.Context,
	op string,
	kind string,
	expected float64,
	onProgress ProgressFunc,
	buildArgs func(out string) []string,
) (string, error) {
	log := p.log.With(
		slog.String("op", op),
	)

	engine, err := p.provider(ctx)
	if err != nil {
		log.Error("engine unavailable", sl.Err(err))
		return "", &OpError{Op: kind, Err: err}
	}

	workDir, err := os.MkdirTemp("", "aura-"+kind+"-*")
	if err != nil {
		log.Error("failed to create work dir", sl.Err(err))
		return "", &OpError{Op: kind, Err: err}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("failed to remove work dir", slog.String("dir", workDir), sl.Err(err))
		}
	}()

	workOut := filepath.Join(workDir, "out.mp4")

	reporter := newProgressReporter(onProgress)

	log.Info("start", slog.Float64("expected", expected))

	if err := engine.Run(ctx, buildArgs(workOut), expected, reporter.fromRatio); err != nil {
		log.Error("engine run failed", sl.Err(err))
		return "", &OpError{Op: kind, Err: err}
	}

	// readback: the engine exiting zero does not prove the
	// output is usable
	info, err := os.Stat(workOut)
	if err != nil || info.Size() == 0 {
		if err == nil {
			err = fmt.Errorf("empty output file")
		}
		log.Error("output readback failed", sl.Err(err))
		return "", &OpError{Op: kind, Err: err}
	}

	result := filepath.Join(p.outDir, ffmpeg.WorkName(kind, "mp4"))
	if err := os.Rename(workOut, result); err != nil {
		log.Error("failed to move output", sl.Err(err))
		return "", &OpError{Op: kind, Err: err}
	}

	reporter.done()

	log.Info("finish", slog.String("result", result))

	return result, nil
}

// progressReporter converts engine ratios to percentages,
// keeping them monotonic and capped at 99 until done.
type progressReporter struct {
	fn   ProgressFunc
	last int
}

func newProgressReporter(fn ProgressFunc) *progressReporter {
	return &progressReporter{fn: fn}
}

func (r *progressReporter) fromRatio(ratio float64) {
	if r.fn == nil {
		return
	}

	p := int(ratio * 100)
	if p > 99 {
		p = 99
	}
	if p <= r.last {
		return
	}
	r.last = p
	r.fn(p)
}

func (r *progressReporter) done() {
	if r.fn == nil {
		return
	}
	r.last = 100
	r.fn(100)
}
