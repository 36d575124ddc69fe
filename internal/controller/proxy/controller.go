package controller

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aura-labs/aura-studio/internal/lib/logger/sl"
)

// driveIDRe extracts the file id from the shareable link forms
// the drive frontend hands out.
var driveIDRe = regexp.MustCompile(`(?:id=|/d/|/file/d/)([\w-]+)`)

// allowedHosts is the upstream allow-list. The proxy exists to
// work around drive CORS, not to fetch arbitrary origins.
var allowedHosts = map[string]struct{}{
	"drive.google.com":             {},
	"drive.usercontent.google.com": {},
	"docs.google.com":              {},
}

// forwarded response headers that matter for range-requesting
// video players.
var passHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
}

func New(
	log *slog.Logger,
	timeout time.Duration,
) *fiber.App {
	proxyCtr := proxyController{
		log: log,
		client: &http.Client{
			Timeout: timeout,
		},
	}

	app := fiber.New()

	app.Get("/media", proxyCtr.media)
	app.Options("/media", proxyCtr.preflight)

	return app
}

// preflight answers the browser's CORS check before a ranged
// media fetch.
func (proxyCtr *proxyController) preflight(c *fiber.Ctx) error {
	c.Set("Access-Control-Allow-Origin", "*")
	c.Set("Access-Control-Allow-Methods", "GET")
	c.Set("Access-Control-Allow-Headers", "Range")
	return c.SendStatus(fiber.StatusNoContent)
}

type proxyController struct {
	log    *slog.Logger
	client *http.Client
}

// media streams a drive file to the player. Accepts either a
// full share url (?url=) or a bare file id (?id=). Range
// requests pass through so the player can seek.
func (proxyCtr *proxyController) media(c *fiber.Ctx) error {
	const op = "proxyController.media"

	log := proxyCtr.log.With(
		slog.String("op", op),
	)

	fileID := c.Query("id")
	if fileID == "" {
		rawURL := c.Query("url")
		if rawURL == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "url or id required",
			})
		}

		u, err := url.Parse(rawURL)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid url",
			})
		}
		if _, ok := allowedHosts[u.Host]; !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "host not allowed",
			})
		}

		m := driveIDRe.FindStringSubmatch(rawURL)
		if m == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "no file id in url",
			})
		}
		fileID = m[1]
	}

	upstream := "https://drive.usercontent.google.com/download?id=" + url.QueryEscape(fileID) + "&export=download"

	req, err := http.NewRequestWithContext(context.TODO(), http.MethodGet, upstream, nil)
	if err != nil {
		log.Error("failed to build upstream request", sl.Err(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	if rng := c.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := proxyCtr.client.Do(req)
	if err != nil {
		log.Error("upstream request failed", sl.Err(err))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "file not found",
		})
	case resp.StatusCode >= 400:
		resp.Body.Close()
		log.Warn("upstream error", slog.Int("status", resp.StatusCode), slog.String("id", fileID))
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	for _, h := range passHeaders {
		if v := resp.Header.Get(h); v != "" {
			c.Set(h, v)
		}
	}
	c.Set("Access-Control-Allow-Origin", "*")

	// hand the body off unread; the server closes the stream once
	// the response is written, so large files never sit in memory
	c.Status(resp.StatusCode)
	if resp.ContentLength >= 0 {
		return c.SendStream(resp.Body, int(resp.ContentLength))
	}
	return c.SendStream(resp.Body)
}
