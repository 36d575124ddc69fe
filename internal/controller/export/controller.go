package controller

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gofiber/fiber/v2"

	transcode "github.com/aura-labs/aura-studio/internal/service/transcode"

	"github.com/aura-labs/aura-studio/internal/models"
)

func New(
	srvProject Project,
	srvPreview Preview,
	srvPipeline Pipeline,
	mediaDir string,
	mediaBaseURL string,
) *fiber.App {
	expCtr := exportController{
		srvProject:   srvProject,
		srvPreview:   srvPreview,
		srvPipeline:  srvPipeline,
		mediaDir:     mediaDir,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
	}

	app := fiber.New()

	app.Get("/manifest.mpd", expCtr.manifest)
	app.Post("/render", expCtr.render)
	app.Post("/compress", expCtr.compress)
	app.Get("/progress", expCtr.progress)

	return app
}

type exportController struct {
	srvProject   Project
	srvPreview   Preview
	srvPipeline  Pipeline
	mediaDir     string
	mediaBaseURL string

	// one render at a time; progress is readable concurrently
	renderMutex sync.Mutex
	pct         atomic.Int64
}

type Project interface {
	Snapshot() models.Project
}

type Preview interface {
	ManifestXML(proj models.Project) (string, error)
}

type Pipeline interface {
	Compress(ctx context.Context, input string, onProgress transcode.ProgressFunc) (string, error)
	Trim(ctx context.Context, input string, start, end float64, onProgress transcode.ProgressFunc) (string, error)
	MergeAudioVideo(ctx context.Context, video, audio string, onProgress transcode.ProgressFunc) (string, error)
	Downscale(ctx context.Context, input string, onProgress transcode.ProgressFunc) (string, error)
}

// manifest serves the preview DASH manifest for the current
// composition.
func (expCtr *exportController) manifest(c *fiber.Ctx) error {
	xml, err := expCtr.srvPreview.ManifestXML(expCtr.srvProject.Snapshot())
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	c.Set(fiber.HeaderContentType, "application/dash+xml")
	return c.Status(fiber.StatusOK).SendString(xml)
}

// render produces the final cut: trim window applied, narration
// muxed in when present, optionally downscaled to 480p.
func (expCtr *exportController) render(c *fiber.Ctx) error {
	var request struct {
		Downscale bool `json:"downscale"`
	}

	if err := c.BodyParser(&request); err != nil && err != fiber.ErrUnprocessableEntity {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if !expCtr.renderMutex.TryLock() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "render already running",
		})
	}
	defer expCtr.renderMutex.Unlock()

	proj := expCtr.srvProject.Snapshot()

	videoPath, ok := expCtr.localPath(proj.OriginalVideoURL)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "video source is not a stored file",
		})
	}

	var audioPath string
	if proj.AudioURL != "" {
		audioPath, ok = expCtr.localPath(proj.AudioURL)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "audio source is not a stored file",
			})
		}
	}

	// each stage maps onto its own slice of 0-100 so the reported
	// progress never runs backwards between stages
	stages := 1
	if audioPath != "" {
		stages++
	}
	if request.Downscale {
		stages++
	}

	expCtr.pct.Store(0)
	stage := 0
	track := func(pct int) {
		expCtr.pct.Store(int64((stage*100 + pct) / stages))
	}

	out, err := expCtr.srvPipeline.Trim(context.TODO(), videoPath, proj.VideoTrim.Start, proj.VideoTrim.End, track)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	if audioPath != "" {
		stage++
		out, err = expCtr.srvPipeline.MergeAudioVideo(context.TODO(), out, audioPath, track)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	if request.Downscale {
		stage++
		out, err = expCtr.srvPipeline.Downscale(context.TODO(), out, track)
		if err != nil {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	expCtr.pct.Store(100)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": expCtr.mediaBaseURL + "/" + filepath.Base(out),
	})
}

// compress produces the lightweight preview variant of an
// uploaded source.
func (expCtr *exportController) compress(c *fiber.Ctx) error {
	var request struct {
		URL string `json:"url"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	input, ok := expCtr.localPath(request.URL)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url is not a stored file",
		})
	}

	if !expCtr.renderMutex.TryLock() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "render already running",
		})
	}
	defer expCtr.renderMutex.Unlock()

	expCtr.pct.Store(0)

	out, err := expCtr.srvPipeline.Compress(context.TODO(), input, func(pct int) {
		expCtr.pct.Store(int64(pct))
	})
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": expCtr.mediaBaseURL + "/" + filepath.Base(out),
	})
}

// progress reports the last render progress percentage.
func (expCtr *exportController) progress(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"percent": expCtr.pct.Load(),
	})
}

// localPath maps a served media URL back to its file under
// mediaDir. Anything else (remote, blob, empty) is rejected.
func (expCtr *exportController) localPath(u string) (string, bool) {
	if u == "" || !strings.HasPrefix(u, expCtr.mediaBaseURL+"/") {
		return "", false
	}

	name := filepath.Base(strings.TrimPrefix(u, expCtr.mediaBaseURL+"/"))
	if name == "." || name == ".." || name == "/" {
		return "", false
	}

	return filepath.Join(expCtr.mediaDir, name), true
}
