package web

import (
	"crypto/subtle"
	"strings"

	"github.com/dukex/flowstudio/pkg/viewer"
	"github.com/gofiber/fiber/v3"
)

const viewerModeLocal = "viewerMode"

// APIKeyGate only lets requests through that carry one of keys, either as a
// bearer token or in the X-API-Key header. Admitted requests are marked as
// private viewers. With no keys configured every request is rejected.
func APIKeyGate(keys []string) fiber.Handler {
	return func(c fiber.Ctx) error {
		presented := c.Get("X-API-Key")

		if token, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer "); ok {
			presented = strings.TrimSpace(token)
		}

		if presented == "" || !validKey(keys, presented) {
			return unauthorized(c)
		}

		c.Locals(viewerModeLocal, viewer.ModePrivate)

		return c.Next()
	}
}

func validKey(keys []string, presented string) bool {
	match := 0

	for _, key := range keys {
		if key == "" {
			continue
		}

		match |= subtle.ConstantTimeCompare([]byte(key), []byte(presented))
	}

	return match == 1
}

// ViewerMode returns the mode recorded by the gate. Requests that did not pass
// the gate are public.
func ViewerMode(c fiber.Ctx) viewer.Mode {
	if mode, ok := c.Locals(viewerModeLocal).(viewer.Mode); ok {
		return mode
	}

	return viewer.ModePublic
}
