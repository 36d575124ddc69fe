package controller

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

func New(
	srvProject Project,
	srvIndex Index,
) *fiber.App {
	projCtr := projectController{
		srvProject: srvProject,
		srvIndex:   srvIndex,
	}

	app := fiber.New()

	// Project lifecycle
	app.Get("/", projCtr.snapshot)
	app.Get("/index", projCtr.index)
	app.Post("/save", projCtr.save)
	app.Post("/load/:id", projCtr.load)
	app.Post("/reset", projCtr.reset)

	// Project fields
	app.Put("/name", projCtr.setName)
	app.Put("/video", projCtr.setVideo)
	app.Put("/duration", projCtr.setDuration)
	app.Put("/trim", projCtr.setTrim)
	app.Put("/audio", projCtr.setAudio)
	app.Put("/voice", projCtr.setVoice)
	app.Put("/script", projCtr.setScript)

	// Captions
	app.Put("/captions", projCtr.setCaptions)
	app.Patch("/caption/:idx", projCtr.updateCaption)
	app.Patch("/caption/:idx/style", projCtr.updateCaptionStyle)
	app.Put("/caption-style", projCtr.setDefaultStyle)

	// Clipboard and clips
	app.Post("/clip/copy", projCtr.copyClip)
	app.Post("/clip/cut", projCtr.cutClip)
	app.Post("/clip/paste", projCtr.pasteClip)
	app.Delete("/clip", projCtr.deleteClip)
	app.Post("/clip/split", projCtr.split)

	// Player
	app.Get("/player", projCtr.playerState)
	app.Post("/player/seek", projCtr.seek)
	app.Post("/player/toggle", projCtr.togglePlay)
	app.Put("/player/zoom", projCtr.setZoom)

	// registered last so it can't shadow the fixed routes
	app.Delete("/:id", projCtr.deleteProject)

	return app
}

type projectController struct {
	srvProject Project
	srvIndex   Index
}

type Project interface {
	Snapshot() models.Project
	PlaybackState() models.Playback
	HasUnsavedChanges() bool
	Save(ctx context.Context) error
	Load(ctx context.Context, id string) error
	Reset()
	SetName(name string)
	SetVideoSource(url string)
	SetDuration(d float64)
	SetVideoTrim(start, end float64)
	SetAudio(url string)
	SetScript(script string)
	SetVoiceSettings(vs models.VoiceSettings)
	SetCaptions(captions []models.Caption)
	UpdateCaption(index int, upd models.CaptionUpdate)
	UpdateCaptionStyle(index int, upd models.CaptionStyleUpdate)
	SetDefaultStyle(style models.CaptionStyle)
	CopyClip(kind models.ClipKind, index int)
	CutClip(kind models.ClipKind, index int)
	PasteClip(atTime float64)
	DeleteClip(kind models.ClipKind, index int)
	SplitAtPlayhead(t float64)
	SetCurrentTime(t float64)
	TogglePlay()
	SetZoomLevel(z float64)
}

type Index interface {
	ProjectIndex(ctx context.Context) ([]models.ProjectSummary, error)
	DeleteProject(ctx context.Context, id string) error
}

func (projCtr *projectController) snapshot(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"project": projCtr.srvProject.Snapshot(),
		"dirty":   projCtr.srvProject.HasUnsavedChanges(),
	})
}

func (projCtr *projectController) index(c *fiber.Ctx) error {
	index, err := projCtr.srvIndex.ProjectIndex(context.TODO())
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"projects": index,
	})
}

func (projCtr *projectController) save(c *fiber.Ctx) error {
	if err := projCtr.srvProject.Save(context.TODO()); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) load(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "id required",
		})
	}

	if err := projCtr.srvProject.Load(context.TODO(), id); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"project": projCtr.srvProject.Snapshot(),
	})
}

func (projCtr *projectController) reset(c *fiber.Ctx) error {
	projCtr.srvProject.Reset()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"project": projCtr.srvProject.Snapshot(),
	})
}

func (projCtr *projectController) deleteProject(c *fiber.Ctx) error {
	id := c.Params("id")

	if err := projCtr.srvIndex.DeleteProject(context.TODO(), id); err != nil {
		if errors.Is(err, storage.ErrProjectNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "project not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setName(c *fiber.Ctx) error {
	var request struct {
		Name string `json:"name"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "name can't be empty",
		})
	}

	projCtr.srvProject.SetName(request.Name)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setVideo(c *fiber.Ctx) error {
	var request struct {
		URL string `json:"url"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.URL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "url required",
		})
	}

	projCtr.srvProject.SetVideoSource(request.URL)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"url": projCtr.srvProject.Snapshot().OriginalVideoURL,
	})
}

func (projCtr *projectController) setDuration(c *fiber.Ctx) error {
	var request struct {
		Duration float64 `json:"duration"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetDuration(request.Duration)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setTrim(c *fiber.Ctx) error {
	var request struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.End < request.Start {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "end before start",
		})
	}

	projCtr.srvProject.SetVideoTrim(request.Start, request.End)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"trim": projCtr.srvProject.Snapshot().VideoTrim,
	})
}

func (projCtr *projectController) setAudio(c *fiber.Ctx) error {
	var request struct {
		URL string `json:"url"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetAudio(request.URL)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setVoice(c *fiber.Ctx) error {
	var request struct {
		Voice models.VoiceSettings `json:"voice"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetVoiceSettings(request.Voice)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setScript(c *fiber.Ctx) error {
	var request struct {
		Script string `json:"script"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetScript(request.Script)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setCaptions(c *fiber.Ctx) error {
	var request struct {
		Captions []models.Caption `json:"captions"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	for _, cpt := range request.Captions {
		if cpt.End <= cpt.Start {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "caption end must be after start",
			})
		}
	}

	projCtr.srvProject.SetCaptions(request.Captions)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) updateCaption(c *fiber.Ctx) error {
	idx, err := c.ParamsInt("idx")
	if err != nil || idx < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad index",
		})
	}

	var request models.CaptionUpdate
	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.UpdateCaption(idx, request)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) updateCaptionStyle(c *fiber.Ctx) error {
	idx, err := c.ParamsInt("idx")
	if err != nil || idx < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad index",
		})
	}

	var request models.CaptionStyleUpdate
	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.UpdateCaptionStyle(idx, request)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) setDefaultStyle(c *fiber.Ctx) error {
	var request struct {
		Style models.CaptionStyle `json:"style"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetDefaultStyle(request.Style)

	return c.SendStatus(fiber.StatusOK)
}

type clipRequest struct {
	Kind  models.ClipKind `json:"kind"`
	Index int             `json:"index"`
}

func (r clipRequest) valid() bool {
	switch r.Kind {
	case models.ClipVideo, models.ClipAudio, models.ClipCaption:
		return r.Index >= 0
	}
	return false
}

func (projCtr *projectController) copyClip(c *fiber.Ctx) error {
	var request clipRequest
	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !request.valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip address",
		})
	}

	projCtr.srvProject.CopyClip(request.Kind, request.Index)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) cutClip(c *fiber.Ctx) error {
	var request clipRequest
	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !request.valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip address",
		})
	}

	projCtr.srvProject.CutClip(request.Kind, request.Index)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) pasteClip(c *fiber.Ctx) error {
	var request struct {
		At float64 `json:"at"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.PasteClip(request.At)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) deleteClip(c *fiber.Ctx) error {
	var request clipRequest
	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}
	if !request.valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip address",
		})
	}

	projCtr.srvProject.DeleteClip(request.Kind, request.Index)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) split(c *fiber.Ctx) error {
	var request struct {
		At float64 `json:"at"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SplitAtPlayhead(request.At)

	return c.SendStatus(fiber.StatusOK)
}

func (projCtr *projectController) playerState(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"player": projCtr.srvProject.PlaybackState(),
	})
}

func (projCtr *projectController) seek(c *fiber.Ctx) error {
	var request struct {
		Time float64 `json:"time"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetCurrentTime(request.Time)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"player": projCtr.srvProject.PlaybackState(),
	})
}

func (projCtr *projectController) togglePlay(c *fiber.Ctx) error {
	projCtr.srvProject.TogglePlay()

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"player": projCtr.srvProject.PlaybackState(),
	})
}

func (projCtr *projectController) setZoom(c *fiber.Ctx) error {
	var request struct {
		Level float64 `json:"level"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	projCtr.srvProject.SetZoomLevel(request.Level)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"player": projCtr.srvProject.PlaybackState(),
	})
}
