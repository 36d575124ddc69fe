package controller

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gofiber/fiber/v2"

	"github.com/aura-labs/aura-studio/internal/lib/ffmpeg"
	"github.com/aura-labs/aura-studio/internal/models"
	"github.com/aura-labs/aura-studio/internal/service"
)

func New(
	srvLib Library,
	srvProject ProjectMedia,
	mediaDir string,
	mediaBaseURL string,
) *fiber.App {
	libCtr := libraryController{
		srvLib:       srvLib,
		srvProject:   srvProject,
		mediaDir:     mediaDir,
		mediaBaseURL: strings.TrimRight(mediaBaseURL, "/"),
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 512 * 1024 * 1024,
	})

	app.Get("/assets", libCtr.searchAssets)
	app.Post("/assets", libCtr.newAsset)
	app.Delete("/assets/:id", libCtr.deleteAsset)

	return app
}

type libraryController struct {
	srvLib       Library
	srvProject   ProjectMedia
	mediaDir     string
	mediaBaseURL string
}

type Library interface {
	NewAsset(ctx context.Context, asset models.MediaAsset) (models.MediaAsset, error)
	SearchAssets(ctx context.Context, projectID string, filter models.AssetFilter) ([]models.MediaAsset, error)
	DeleteAsset(ctx context.Context, id int64) error
}

// ProjectMedia mirrors registered assets into the open
// project's media library so they persist with the project.
type ProjectMedia interface {
	AddMediaAsset(asset models.MediaAsset)
}

// searchAssets returns project assets, optionally ranked by a
// fuzzy name query.
func (libCtr *libraryController) searchAssets(c *fiber.Ctx) error {
	projectID := c.Query("project")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project required",
		})
	}

	filter := models.AssetFilter{
		Name:       c.Query("name"),
		MaxRespLen: c.QueryInt("res_len"),
	}

	assets, err := libCtr.srvLib.SearchAssets(context.TODO(), projectID, filter)
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"assets": assets,
	})
}

// newAsset stores an uploaded media file and registers it.
// Only video and image payloads are accepted; the MIME type is
// sniffed from content, never trusted from the request.
func (libCtr *libraryController) newAsset(c *fiber.Ctx) error {
	projectID := c.FormValue("project")
	if projectID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "project required",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid file",
		})
	}

	reader, err := file.Open()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	mimeType, err := mimetype.DetectReader(reader)
	reader.Close()
	if err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	var kind models.AssetKind
	switch {
	case strings.HasPrefix(mimeType.String(), "video/"):
		kind = models.AssetVideo
	case strings.HasPrefix(mimeType.String(), "image/"):
		kind = models.AssetImage
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "unsupported mime-type",
		})
	}

	fileName := ffmpeg.WorkName("asset", strings.TrimPrefix(mimeType.Extension(), "."))
	if err := c.SaveFile(file, filepath.Join(libCtr.mediaDir, fileName)); err != nil {
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	asset, err := libCtr.srvLib.NewAsset(context.TODO(), models.MediaAsset{
		ProjectID: projectID,
		URL:       libCtr.mediaBaseURL + "/" + fileName,
		Kind:      kind,
		Name:      file.Filename,
	})
	if err != nil {
		// stored file is orphaned on registry failure
		_ = os.Remove(filepath.Join(libCtr.mediaDir, fileName))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	libCtr.srvProject.AddMediaAsset(asset)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"asset": asset,
	})
}

// deleteAsset removes an asset registration.
func (libCtr *libraryController) deleteAsset(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "bad id",
		})
	}

	if err := libCtr.srvLib.DeleteAsset(context.TODO(), id); err != nil {
		if errors.Is(err, service.ErrAssetNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "asset not found",
			})
		}
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusOK)
}
