package handlers

import "github.com/gofiber/fiber/v2"

// HandleIndex serves the front-end page.
func HandleIndex(page []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		c.Set(fiber.HeaderCacheControl, "no-cache")
		return c.Send(page)
	}
}
