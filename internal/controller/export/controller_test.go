package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	preview "github.com/aura-labs/aura-studio/internal/service/preview"
	project "github.com/aura-labs/aura-studio/internal/service/project"
	transcode "github.com/aura-labs/aura-studio/internal/service/transcode"
)

type fiberTransport struct {
	app *fiber.App
}

func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

type fakePipeline struct {
	calls         []string
	fail          bool
	afterProgress func()
}

func (f *fakePipeline) op(name string, onProgress transcode.ProgressFunc) (string, error) {
	f.calls = append(f.calls, name)
	if f.fail {
		return "", &transcode.OpError{Op: name, Err: errEngine}
	}
	if onProgress != nil {
		for _, pct := range []int{50, 100} {
			onProgress(pct)
			if f.afterProgress != nil {
				f.afterProgress()
			}
		}
	}
	return "/work/out-" + name + ".mp4", nil
}

var errEngine = errors.New("engine failure")

func (f *fakePipeline) Compress(_ context.Context, _ string, p transcode.ProgressFunc) (string, error) {
	return f.op("compress", p)
}

func (f *fakePipeline) Trim(_ context.Context, _ string, _, _ float64, p transcode.ProgressFunc) (string, error) {
	return f.op("trim", p)
}

func (f *fakePipeline) MergeAudioVideo(_ context.Context, _, _ string, p transcode.ProgressFunc) (string, error) {
	return f.op("merge", p)
}

func (f *fakePipeline) Downscale(_ context.Context, _ string, p transcode.ProgressFunc) (string, error) {
	return f.op("downscale", p)
}

func setup(t *testing.T) (*httpexpect.Expect, *project.Store, *fakePipeline) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := project.New(log, nil, "/api/proxy/media")
	pipe := &fakePipeline{}
	prev := preview.New(log, "/media/", 4*time.Second)

	app := New(store, prev, pipe, t.TempDir(), "/media")

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://studio.local",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: fiberTransport{app: app},
		},
	})
	return e, store, pipe
}

func TestManifestRoute(t *testing.T) {
	e, store, _ := setup(t)
	store.SetDuration(30)

	resp := e.GET("/manifest.mpd").
		Expect().
		Status(200)

	resp.Header(fiber.HeaderContentType).IsEqual("application/dash+xml")
	resp.Body().Contains("isoff-on-demand")
}

func TestRenderTrimOnly(t *testing.T) {
	e, store, pipe := setup(t)
	store.SetVideoSource("/media/source.mp4")
	store.SetDuration(30)

	e.POST("/render").
		WithJSON(map[string]any{"downscale": false}).
		Expect().
		Status(200).
		JSON().
		Path("$.url").
		String().
		HasPrefix("/media/")

	assert.Equal(t, []string{"trim"}, pipe.calls)
}

func TestRenderFullChain(t *testing.T) {
	e, store, pipe := setup(t)
	store.SetVideoSource("/media/source.mp4")
	store.SetAudio("/media/voice.mp3")
	store.SetDuration(30)

	e.POST("/render").
		WithJSON(map[string]any{"downscale": true}).
		Expect().
		Status(200)

	assert.Equal(t, []string{"trim", "merge", "downscale"}, pipe.calls)

	// last reported progress is readable afterwards
	e.GET("/progress").
		Expect().
		Status(200).
		JSON().
		Path("$.percent").
		Number().
		IsEqual(100)
}

func TestRenderProgressMonotonic(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := project.New(log, nil, "/api/proxy/media")
	store.SetVideoSource("/media/source.mp4")
	store.SetAudio("/media/voice.mp3")
	store.SetDuration(30)

	pipe := &fakePipeline{}
	expCtr := &exportController{
		srvProject:   store,
		srvPipeline:  pipe,
		mediaDir:     t.TempDir(),
		mediaBaseURL: "/media",
	}

	var seen []int64
	pipe.afterProgress = func() {
		seen = append(seen, expCtr.pct.Load())
	}

	app := fiber.New()
	app.Post("/render", expCtr.render)

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://studio.local",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: fiberTransport{app: app},
		},
	})

	e.POST("/render").
		WithJSON(map[string]any{"downscale": true}).
		Expect().
		Status(200)

	// trim, merge and downscale each report 50 then 100 on their
	// own slice of the range
	assert.Equal(t, []int64{16, 33, 50, 66, 83, 100}, seen)
	assert.Equal(t, int64(100), expCtr.pct.Load())

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i], seen[i-1])
	}
}

func TestRenderRejectsRemoteVideo(t *testing.T) {
	e, store, pipe := setup(t)
	store.SetVideoSource("https://example.com/clip.mp4")

	e.POST("/render").
		WithJSON(map[string]any{}).
		Expect().
		Status(400)

	assert.Empty(t, pipe.calls)
}

func TestRenderPipelineFailure(t *testing.T) {
	e, store, pipe := setup(t)
	store.SetVideoSource("/media/source.mp4")
	pipe.fail = true

	e.POST("/render").
		WithJSON(map[string]any{}).
		Expect().
		Status(500)
}

func TestCompressRoute(t *testing.T) {
	e, _, pipe := setup(t)

	e.POST("/compress").
		WithJSON(map[string]any{"url": "/media/upload.mp4"}).
		Expect().
		Status(200).
		JSON().
		Path("$.url").
		String().
		HasPrefix("/media/")

	assert.Equal(t, []string{"compress"}, pipe.calls)

	e.POST("/compress").
		WithJSON(map[string]any{"url": "https://elsewhere/file.mp4"}).
		Expect().
		Status(400)
}
