package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	aiCl "github.com/aura-labs/aura-studio/internal/client/ai"
	"github.com/aura-labs/aura-studio/internal/lib/ffmpeg"
	"github.com/aura-labs/aura-studio/internal/models"
	transcode "github.com/aura-labs/aura-studio/internal/service/transcode"
)

// inlineMediaLimit is the largest source inlined into an
// analysis request as-is; bigger files are compressed first so
// the payload stays affordable.
const inlineMediaLimit = 20 << 20

func New(
	srvProject Project,
	srvPipeline Pipeline,
	clientAI AI,
	clientSpeech Speech,
	writeFile FileWriter,
	mediaDir string,
	mediaBaseURL string,
) *fiber.App {
	scriptCtr := scriptController{
		srvProject:   srvProject,
		srvPipeline:  srvPipeline,
		clientAI:     clientAI,
		clientSpeech: clientSpeech,
		writeFile:    writeFile,
		mediaDir:     mediaDir,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
	}

	app := fiber.New()

	app.Post("/generate", scriptCtr.generate)
	app.Post("/voiceover", scriptCtr.voiceover)
	app.Post("/transcribe", scriptCtr.transcribe)

	return app
}

type scriptController struct {
	srvProject   Project
	srvPipeline  Pipeline
	clientAI     AI
	clientSpeech Speech
	writeFile    FileWriter
	mediaDir     string
	mediaBaseURL string
}

type Project interface {
	Snapshot() models.Project
	SetScript(script string)
	AppendScript(chunk string)
	SetAudio(url string)
	SetCaptions(captions []models.Caption)
}

type Pipeline interface {
	Compress(ctx context.Context, input string, onProgress transcode.ProgressFunc) (string, error)
}

type AI interface {
	GenerateScript(ctx context.Context, prompt string, media *aiCl.Media, onChunk func(string)) (string, error)
	Transcribe(ctx context.Context, media aiCl.Media) ([]models.Caption, error)
}

type Speech interface {
	Synthesize(ctx context.Context, text string, vs models.VoiceSettings) ([]byte, error)
}

// FileWriter persists synthesized audio. Injected so tests
// don't touch the filesystem.
type FileWriter func(path string, data []byte) error

// generate streams a narration script for the given prompt
// into the project as chunks arrive. An optional stored media
// asset is inlined for the model to analyze, compressed first
// when it exceeds the inline limit.
func (scriptCtr *scriptController) generate(c *fiber.Ctx) error {
	var request struct {
		Prompt   string `json:"prompt"`
		MediaURL string `json:"mediaUrl"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if strings.TrimSpace(request.Prompt) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "prompt required",
		})
	}

	var media *aiCl.Media
	if request.MediaURL != "" {
		m, err := scriptCtr.loadInlineMedia(request.MediaURL)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		media = m
	}

	scriptCtr.srvProject.SetScript("")

	script, err := scriptCtr.clientAI.GenerateScript(context.TODO(), request.Prompt, media, func(chunk string) {
		scriptCtr.srvProject.AppendScript(chunk)
	})
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"script": script,
	})
}

// voiceover synthesizes the project script with the configured
// voice, attaches the track, and replaces captions with the
// fresh transcription of that track.
func (scriptCtr *scriptController) voiceover(c *fiber.Ctx) error {
	proj := scriptCtr.srvProject.Snapshot()

	if strings.TrimSpace(proj.GeneratedScript) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project has no script",
		})
	}

	audio, err := scriptCtr.clientSpeech.Synthesize(context.TODO(), proj.GeneratedScript, proj.VoiceSettings)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	fileName := ffmpeg.WorkName("voice", "mp3")
	if err := scriptCtr.writeFile(filepath.Join(scriptCtr.mediaDir, fileName), audio); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	audioURL := scriptCtr.mediaBaseURL + "/" + fileName
	scriptCtr.srvProject.SetAudio(audioURL)

	captions, err := scriptCtr.clientAI.Transcribe(context.TODO(), aiCl.Media{
		Data:     audio,
		MimeType: "audio/mpeg",
	})
	if err != nil {
		// the track is attached either way; captions can be
		// requested again via /transcribe
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"audioUrl": audioURL,
			"captions": []models.Caption{},
		})
	}

	scriptCtr.srvProject.SetCaptions(captions)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"audioUrl": audioURL,
		"captions": captions,
	})
}

// transcribe regenerates captions for the attached narration
// track.
func (scriptCtr *scriptController) transcribe(c *fiber.Ctx) error {
	proj := scriptCtr.srvProject.Snapshot()

	if proj.AudioURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project has no audio",
		})
	}

	path, ok := scriptCtr.localPath(proj.AudioURL)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "audio is not a stored track",
		})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	captions, err := scriptCtr.clientAI.Transcribe(context.TODO(), aiCl.Media{
		Data:     data,
		MimeType: "audio/mpeg",
	})
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	scriptCtr.srvProject.SetCaptions(captions)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"captions": captions,
	})
}

// loadInlineMedia resolves a served media URL to bytes fit for
// an inline analysis payload.
func (scriptCtr *scriptController) loadInlineMedia(url string) (*aiCl.Media, error) {
	path, ok := scriptCtr.localPath(url)
	if !ok {
		return nil, errMediaNotStored
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errMediaNotStored
	}

	if info.Size() > inlineMediaLimit {
		compressed, err := scriptCtr.srvPipeline.Compress(context.TODO(), path, nil)
		if err != nil {
			return nil, err
		}
		path = compressed
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return &aiCl.Media{
		Data:     data,
		MimeType: mimetype.Detect(data).String(),
	}, nil
}

// localPath maps a served media URL back to its file under
// mediaDir. Anything else (remote, blob, empty) is rejected.
func (scriptCtr *scriptController) localPath(u string) (string, bool) {
	if u == "" || !strings.HasPrefix(u, scriptCtr.mediaBaseURL+"/") {
		return "", false
	}

	name := filepath.Base(strings.TrimPrefix(u, scriptCtr.mediaBaseURL+"/"))
	if name == "." || name == ".." || name == "/" {
		return "", false
	}

	return filepath.Join(scriptCtr.mediaDir, name), true
}

var errMediaNotStored = errors.New("media must be a stored asset")
