package controller

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gavv/httpexpect/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	project "github.com/aura-labs/aura-studio/internal/service/project"

	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/storage"
)

type fiberTransport struct {
	app *fiber.App
}

func (t fiberTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.app.Test(req, -1)
}

func newExpect(t *testing.T, app *fiber.App) *httpexpect.Expect {
	return httpexpect.WithConfig(httpexpect.Config{
		BaseURL:  "http://studio.local",
		Reporter: httpexpect.NewAssertReporter(t),
		Client: &http.Client{
			Transport: fiberTransport{app: app},
		},
	})
}

type fakeIndex struct {
	summaries []models.ProjectSummary
	deleted   []string
}

func (f *fakeIndex) ProjectIndex(context.Context) ([]models.ProjectSummary, error) {
	return f.summaries, nil
}

func (f *fakeIndex) DeleteProject(_ context.Context, id string) error {
	for _, s := range f.summaries {
		if s.ID == id {
			f.deleted = append(f.deleted, id)
			return nil
		}
	}
	return storage.ErrProjectNotFound
}

type memStorage struct {
	projects map[string]models.Project
}

func (m *memStorage) SaveProject(_ context.Context, p models.Project) error {
	m.projects[p.ID] = p
	return nil
}

func (m *memStorage) Project(_ context.Context, id string) (models.Project, error) {
	p, ok := m.projects[id]
	if !ok {
		return models.Project{}, storage.ErrProjectNotFound
	}
	return p, nil
}

func setup(t *testing.T) (*httpexpect.Expect, *project.Store, *fakeIndex) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := project.New(log, &memStorage{projects: make(map[string]models.Project)}, "/api/proxy/media")
	index := &fakeIndex{}
	return newExpect(t, New(store, index)), store, index
}

func TestSnapshotRoute(t *testing.T) {
	e, store, _ := setup(t)

	name := gofakeit.Sentence(3)
	store.SetName(name)

	json := e.GET("/").
		Expect().
		Status(200).
		JSON()

	json.Object().Keys().ContainsOnly("project", "dirty")
	json.Path("$.project.name").String().IsEqual(name)
	json.Path("$.dirty").Boolean().IsTrue()
}

func TestSetDurationAndTrimRoutes(t *testing.T) {
	e, store, _ := setup(t)

	e.PUT("/duration").
		WithJSON(map[string]any{"duration": 90}).
		Expect().
		Status(200)

	e.PUT("/trim").
		WithJSON(map[string]any{"start": 10, "end": 40}).
		Expect().
		Status(200).
		JSON().
		Path("$.trim.end").
		Number().
		IsEqual(40)

	assert.Equal(t, models.TimeRange{Start: 10, End: 40}, store.Snapshot().VideoTrim)
}

func TestTrimRouteRejectsInvertedWindow(t *testing.T) {
	e, _, _ := setup(t)

	e.PUT("/trim").
		WithJSON(map[string]any{"start": 40, "end": 10}).
		Expect().
		Status(400).
		JSON().
		Object().
		Keys().
		ContainsOnly("error")
}

func TestCaptionRoutes(t *testing.T) {
	e, store, _ := setup(t)

	e.PUT("/captions").
		WithJSON(map[string]any{"captions": []models.Caption{
			{Start: 0, End: 2, Text: "one"},
			{Start: 2, End: 4, Text: "two"},
		}}).
		Expect().
		Status(200)

	e.PATCH("/caption/1").
		WithJSON(map[string]any{"text": "edited"}).
		Expect().
		Status(200)

	assert.Equal(t, "edited", store.Snapshot().Captions[1].Text)

	e.PATCH("/caption/abc").
		WithJSON(map[string]any{"text": "x"}).
		Expect().
		Status(400)

	e.PUT("/captions").
		WithJSON(map[string]any{"captions": []models.Caption{
			{Start: 5, End: 5, Text: "empty"},
		}}).
		Expect().
		Status(400)
}

func TestClipboardRoutes(t *testing.T) {
	e, store, _ := setup(t)

	store.SetDuration(60)
	store.SetCaptions([]models.Caption{{Start: 0, End: 3, Text: "clip"}})

	e.POST("/clip/copy").
		WithJSON(map[string]any{"kind": "caption", "index": 0}).
		Expect().
		Status(200)

	e.POST("/clip/paste").
		WithJSON(map[string]any{"at": 20}).
		Expect().
		Status(200)

	caps := store.Snapshot().Captions
	assert.Len(t, caps, 2)
	assert.Equal(t, 20.0, caps[1].Start)

	e.POST("/clip/copy").
		WithJSON(map[string]any{"kind": "nonsense", "index": 0}).
		Expect().
		Status(400)
}

func TestPlayerRoutes(t *testing.T) {
	e, store, _ := setup(t)
	store.SetDuration(60)

	e.POST("/player/toggle").
		Expect().
		Status(200).
		JSON().
		Path("$.player.isPlaying").
		Boolean().
		IsTrue()

	e.POST("/player/seek").
		WithJSON(map[string]any{"time": 12.5}).
		Expect().
		Status(200).
		JSON().
		Path("$.player.currentTime").
		Number().
		IsEqual(12.5)

	e.PUT("/player/zoom").
		WithJSON(map[string]any{"level": 9000}).
		Expect().
		Status(200).
		JSON().
		Path("$.player.zoomLevel").
		Number().
		IsEqual(models.MaxZoomLevel)
}

func TestSaveLoadRoutes(t *testing.T) {
	e, store, _ := setup(t)

	store.SetName("persisted")
	id := store.Snapshot().ID

	e.POST("/save").
		Expect().
		Status(200)

	e.POST("/reset").
		Expect().
		Status(200)
	assert.NotEqual(t, id, store.Snapshot().ID)

	e.POST("/load/" + id).
		Expect().
		Status(200).
		JSON().
		Path("$.project.name").
		String().
		IsEqual("persisted")
}

func TestIndexAndDeleteRoutes(t *testing.T) {
	e, _, index := setup(t)

	index.summaries = []models.ProjectSummary{
		{ID: "p1", Name: gofakeit.Sentence(2), Duration: 30},
	}

	e.GET("/index").
		Expect().
		Status(200).
		JSON().
		Path("$.projects").
		Array().
		Length().
		IsEqual(1)

	e.DELETE("/p1").
		Expect().
		Status(200)
	assert.Equal(t, []string{"p1"}, index.deleted)

	e.DELETE("/missing").
		Expect().
		Status(404)
}

func TestVideoRouteRewritesDriveURL(t *testing.T) {
	e, _, _ := setup(t)

	e.PUT("/video").
		WithJSON(map[string]any{"url": "https://drive.google.com/file/d/1aB-c/view"}).
		Expect().
		Status(200).
		JSON().
		Path("$.url").
		String().
		Contains("/api/proxy/media?url=")
}
