package handlers

import (
	"strings"

	"aetherscribe/internal/cache"

	"github.com/gofiber/fiber/v2"
)

// AssetsHandler fronts the offline-first asset gateway. The wildcard path is
// either an absolute URL (CDN assets) or a path resolved against the app
// origin (shell assets). The query string is part of the cache key.
type AssetsHandler struct {
	gateway   *cache.Gateway
	appOrigin string
}

// NewAssetsHandler creates an assets handler.
func NewAssetsHandler(gateway *cache.Gateway, appOrigin string) *AssetsHandler {
	return &AssetsHandler{
		gateway:   gateway,
		appOrigin: strings.TrimSuffix(appOrigin, "/"),
	}
}

// Fetch serves one asset through the strategy engine and reports the cache
// outcome in the X-Cache header.
func (h *AssetsHandler) Fetch(c *fiber.Ctx) error {
	target := c.Params("*")
	if target == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Asset path is required",
		})
	}

	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		target = h.appOrigin + "/" + strings.TrimPrefix(target, "/")
	}
	if qs := string(c.Request().URI().QueryString()); qs != "" {
		target += "?" + qs
	}

	result, err := h.gateway.Fetch(c.Context(), target)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Asset unavailable",
		})
	}

	c.Set("X-Cache", result.CacheState)
	c.Set("X-Cache-Strategy", result.Strategy)
	if result.ContentType != "" {
		c.Set(fiber.HeaderContentType, result.ContentType)
	}
	return c.Status(result.Status).Send(result.Body)
}

// Install re-fetches and recommits the app shell cache.
func (h *AssetsHandler) Install(c *fiber.Ctx) error {
	if err := h.gateway.Install(c.Context()); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "App shell install failed",
		})
	}
	return c.JSON(fiber.Map{"installed": true})
}
