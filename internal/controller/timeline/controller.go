package controller

import (
	"github.com/gofiber/fiber/v2"

	timelineSrv "github.com/aura-labs/aura-studio/internal/service/timeline"

	"github.com/aura-labs/aura-studio/internal/models"
)

// New exposes the timeline interaction surface to the frontend.
// The UI forwards raw gestures; all geometry and shortcut logic
// stays server-side so every client sees identical behavior.
func New(
	srvSurface Surface,
) *fiber.App {
	tlCtr := timelineController{
		srvSurface: srvSurface,
	}

	app := fiber.New()

	app.Put("/viewport", tlCtr.setViewport)
	app.Get("/geometry", tlCtr.geometry)
	app.Post("/wheel", tlCtr.wheel)
	app.Post("/key", tlCtr.key)
	app.Post("/scrub/begin", tlCtr.beginScrub)
	app.Post("/trim/begin", tlCtr.beginTrim)
	app.Post("/drag", tlCtr.drag)
	app.Post("/drag/end", tlCtr.endDrag)
	app.Post("/select", tlCtr.selectClip)
	app.Delete("/select", tlCtr.clearSelection)
	app.Post("/context", tlCtr.contextAction)

	return app
}

type timelineController struct {
	srvSurface Surface
}

type Surface interface {
	SetViewportWidth(w float64)
	ScrollLeft() float64
	TimeAt(x float64) float64
	PixelAt(t float64) float64
	HandleWheel(deltaY, cursorX float64, ctrl, shift bool)
	HandleKey(key string, shift bool)
	BeginScrub(x float64)
	BeginTrimDrag(handle timelineSrv.TrimHandle)
	DragTo(x float64)
	EndDrag()
	SelectClip(kind models.ClipKind, index int)
	ClearSelection()
	HandleContextAction(action timelineSrv.ContextAction, x float64, kind models.ClipKind, index int)
}

func (tlCtr *timelineController) setViewport(c *fiber.Ctx) error {
	var request struct {
		Width float64 `json:"width"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Width < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "negative width",
		})
	}

	tlCtr.srvSurface.SetViewportWidth(request.Width)

	return c.SendStatus(fiber.StatusOK)
}

// geometry converts between viewport pixels and composition
// seconds for ruler rendering.
func (tlCtr *timelineController) geometry(c *fiber.Ctx) error {
	resp := fiber.Map{
		"scrollLeft": tlCtr.srvSurface.ScrollLeft(),
	}

	if c.Query("x") != "" {
		resp["time"] = tlCtr.srvSurface.TimeAt(c.QueryFloat("x"))
	}
	if c.Query("t") != "" {
		resp["pixel"] = tlCtr.srvSurface.PixelAt(c.QueryFloat("t"))
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (tlCtr *timelineController) wheel(c *fiber.Ctx) error {
	var request struct {
		DeltaY  float64 `json:"deltaY"`
		CursorX float64 `json:"cursorX"`
		Ctrl    bool    `json:"ctrl"`
		Shift   bool    `json:"shift"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	tlCtr.srvSurface.HandleWheel(request.DeltaY, request.CursorX, request.Ctrl, request.Shift)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"scrollLeft": tlCtr.srvSurface.ScrollLeft(),
	})
}

func (tlCtr *timelineController) key(c *fiber.Ctx) error {
	var request struct {
		Key   string `json:"key"`
		Shift bool   `json:"shift"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "key required",
		})
	}

	tlCtr.srvSurface.HandleKey(request.Key, request.Shift)

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) beginScrub(c *fiber.Ctx) error {
	var request struct {
		X float64 `json:"x"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	tlCtr.srvSurface.BeginScrub(request.X)

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) beginTrim(c *fiber.Ctx) error {
	var request struct {
		Handle timelineSrv.TrimHandle `json:"handle"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if request.Handle != timelineSrv.HandleLeft && request.Handle != timelineSrv.HandleRight {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad handle",
		})
	}

	tlCtr.srvSurface.BeginTrimDrag(request.Handle)

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) drag(c *fiber.Ctx) error {
	var request struct {
		X float64 `json:"x"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	tlCtr.srvSurface.DragTo(request.X)

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) endDrag(c *fiber.Ctx) error {
	tlCtr.srvSurface.EndDrag()

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) selectClip(c *fiber.Ctx) error {
	var request struct {
		Kind  models.ClipKind `json:"kind"`
		Index int             `json:"index"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	switch request.Kind {
	case models.ClipVideo, models.ClipAudio, models.ClipCaption:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad clip kind",
		})
	}

	tlCtr.srvSurface.SelectClip(request.Kind, request.Index)

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) clearSelection(c *fiber.Ctx) error {
	tlCtr.srvSurface.ClearSelection()

	return c.SendStatus(fiber.StatusOK)
}

func (tlCtr *timelineController) contextAction(c *fiber.Ctx) error {
	var request struct {
		Action timelineSrv.ContextAction `json:"action"`
		X      float64                   `json:"x"`
		Kind   models.ClipKind           `json:"kind"`
		Index  int                       `json:"index"`
	}

	if err := c.BodyParser(&request); err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	tlCtr.srvSurface.HandleContextAction(request.Action, request.X, request.Kind, request.Index)

	return c.SendStatus(fiber.StatusOK)
}
