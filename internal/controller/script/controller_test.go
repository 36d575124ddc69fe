package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/gavv/httpexpect/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aiCl "github.com/aura-labs/aura-studio/internal/client/ai"
	project "github.com/aura-labs/aura-studio/internal/service/project"
	transcode "github.com/aura-labs/aura-studio/internal/service/transcode"

	"github.com/aura-labs/aura-studio/internal/models"
)

type fiberTransport struct {
	app *fiber.App
}

func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

type fakeAI struct {
	chunks        []string
	captions      []models.Caption
	generateErr   error
	transcribeErr error

	generateMedia   *aiCl.Media
	transcribeMedia aiCl.Media
}

func (f *fakeAI) GenerateScript(_ context.Context, _ string, media *aiCl.Media, onChunk func(string)) (string, error) {
	f.generateMedia = media
	if f.generateErr != nil {
		return "", f.generateErr
	}
	full := ""
	for _, ch := range f.chunks {
		full += ch
		if onChunk != nil {
			onChunk(ch)
		}
	}
	return full, nil
}

func (f *fakeAI) Transcribe(_ context.Context, media aiCl.Media) ([]models.Caption, error) {
	f.transcribeMedia = media
	if f.transcribeErr != nil {
		return nil, f.transcribeErr
	}
	return f.captions, nil
}

type fakeSpeech struct {
	audio []byte
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, _ string, _ models.VoiceSettings) ([]byte, error) {
	return f.audio, f.err
}

type fakePipeline struct {
	compressed string
	calls      int
}

func (f *fakePipeline) Compress(_ context.Context, _ string, _ transcode.ProgressFunc) (string, error) {
	f.calls++
	return f.compressed, nil
}

type env struct {
	e        *httpexpect.Expect
	store    *project.Store
	written  *[][]byte
	mediaDir string
	pipeline *fakePipeline
}

func setup(t *testing.T, ai *fakeAI, speech *fakeSpeech) env {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := project.New(log, nil, "/api/proxy/media")

	var written [][]byte
	writeFile := func(path string, data []byte) error {
		written = append(written, data)
		return os.WriteFile(path, data, 0o644)
	}

	mediaDir := t.TempDir()
	pipeline := &fakePipeline{}

	app := New(store, pipeline, ai, speech, writeFile, mediaDir, "/media")

	e := httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://studio.local",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: fiberTransport{app: app},
		},
	})
	return env{e: e, store: store, written: &written, mediaDir: mediaDir, pipeline: pipeline}
}

func TestGenerateRoute(t *testing.T) {
	ai := &fakeAI{chunks: []string{"Scene one. ", "Scene two."}}
	env := setup(t, ai, &fakeSpeech{})

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "a travel short"}).
		Expect().
		Status(200).
		JSON().
		Path("$.script").
		String().
		IsEqual("Scene one. Scene two.")

	assert.Equal(t, "Scene one. Scene two.", env.store.Snapshot().GeneratedScript)
	assert.Nil(t, ai.generateMedia)
}

func TestGenerateReplacesOldScript(t *testing.T) {
	ai := &fakeAI{chunks: []string{"fresh"}}
	env := setup(t, ai, &fakeSpeech{})

	env.store.SetScript("stale text")

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "anything"}).
		Expect().
		Status(200)

	assert.Equal(t, "fresh", env.store.Snapshot().GeneratedScript)
}

func TestGenerateValidation(t *testing.T) {
	env := setup(t, &fakeAI{}, &fakeSpeech{})

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "   "}).
		Expect().
		Status(400)
}

func TestGenerateInlinesStoredMedia(t *testing.T) {
	ai := &fakeAI{chunks: []string{"A clip."}}
	env := setup(t, ai, &fakeSpeech{})

	sample := append([]byte("\x00\x00\x00\x20ftypisom"), make([]byte, 64)...)
	require.NoError(t, os.WriteFile(filepath.Join(env.mediaDir, "asset.mp4"), sample, 0o644))

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "describe this", "mediaUrl": "/media/asset.mp4"}).
		Expect().
		Status(200)

	require.NotNil(t, ai.generateMedia)
	assert.Equal(t, sample, ai.generateMedia.Data)
	assert.Contains(t, ai.generateMedia.MimeType, "mp4")
	// small files skip the compression stage
	assert.Zero(t, env.pipeline.calls)
}

func TestGenerateCompressesLargeMedia(t *testing.T) {
	ai := &fakeAI{chunks: []string{"A clip."}}
	env := setup(t, ai, &fakeSpeech{})

	big := make([]byte, inlineMediaLimit+1)
	require.NoError(t, os.WriteFile(filepath.Join(env.mediaDir, "raw.mp4"), big, 0o644))

	small := []byte("shrunk")
	env.pipeline.compressed = filepath.Join(env.mediaDir, "raw_small.mp4")
	require.NoError(t, os.WriteFile(env.pipeline.compressed, small, 0o644))

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "describe this", "mediaUrl": "/media/raw.mp4"}).
		Expect().
		Status(200)

	assert.Equal(t, 1, env.pipeline.calls)
	require.NotNil(t, ai.generateMedia)
	assert.Equal(t, small, ai.generateMedia.Data)
}

func TestGenerateRejectsRemoteMedia(t *testing.T) {
	env := setup(t, &fakeAI{}, &fakeSpeech{})

	env.e.POST("/generate").
		WithJSON(map[string]any{"prompt": "describe", "mediaUrl": "https://elsewhere/video.mp4"}).
		Expect().
		Status(400)
}

func TestVoiceoverRoute(t *testing.T) {
	ai := &fakeAI{captions: []models.Caption{{Start: 0, End: 1.5, Text: "Hello"}}}
	speech := &fakeSpeech{audio: []byte("mp3-bytes")}
	env := setup(t, ai, speech)

	env.store.SetScript("Hello world.")

	json := env.e.POST("/voiceover").
		Expect().
		Status(200).
		JSON()

	json.Path("$.audioUrl").String().HasPrefix("/media/voice_")
	json.Path("$.captions").Array().Length().IsEqual(1)

	p := env.store.Snapshot()
	assert.NotEmpty(t, p.AudioURL)
	assert.Len(t, p.Captions, 1)
	assert.Equal(t, [][]byte{[]byte("mp3-bytes")}, *env.written)
	// the synthesized track itself is what gets transcribed
	assert.Equal(t, []byte("mp3-bytes"), ai.transcribeMedia.Data)
	assert.Equal(t, "audio/mpeg", ai.transcribeMedia.MimeType)
}

func TestVoiceoverWithoutScript(t *testing.T) {
	env := setup(t, &fakeAI{}, &fakeSpeech{})

	env.e.POST("/voiceover").
		Expect().
		Status(400)
}

func TestVoiceoverTranscriptionFailureKeepsAudio(t *testing.T) {
	ai := &fakeAI{transcribeErr: errors.New("service down")}
	speech := &fakeSpeech{audio: []byte("mp3")}
	env := setup(t, ai, speech)

	env.store.SetScript("Some narration.")

	env.e.POST("/voiceover").
		Expect().
		Status(200).
		JSON().
		Path("$.captions").
		Array().
		IsEmpty()

	assert.NotEmpty(t, env.store.Snapshot().AudioURL)
}

func TestTranscribeRoute(t *testing.T) {
	ai := &fakeAI{captions: []models.Caption{
		{Start: 0, End: 1, Text: "one"},
		{Start: 1, End: 2, Text: "two"},
	}}
	env := setup(t, ai, &fakeSpeech{})

	env.e.POST("/transcribe").
		Expect().
		Status(400)

	audio := []byte("voice-bytes")
	require.NoError(t, os.WriteFile(filepath.Join(env.mediaDir, "voice.mp3"), audio, 0o644))
	env.store.SetAudio("/media/voice.mp3")

	env.e.POST("/transcribe").
		Expect().
		Status(200).
		JSON().
		Path("$.captions").
		Array().
		Length().
		IsEqual(2)

	assert.Len(t, env.store.Snapshot().Captions, 2)
	assert.Equal(t, audio, ai.transcribeMedia.Data)
}
