package login

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	// IdentityKey is the key used to store the identity in Fiber context
	IdentityKey = "identity"
)

// Identity is the verified caller of an authenticated endpoint.
type Identity struct {
	UserID   string
	DeviceID string
}

// AuthMiddleware verifies the bearer token on device-management endpoints.
// Every token failure answers the same way, whatever the cause.
func AuthMiddleware(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "missing_authorization_header",
			})
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "invalid_authorization_header",
			})
		}

		claims, err := svc.VerifyToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "invalid_token",
			})
		}

		c.Locals(IdentityKey, &Identity{
			UserID:   claims.UserID,
			DeviceID: claims.DeviceID,
		})

		return c.Next()
	}
}

// GetIdentity extracts the identity from Fiber context
func GetIdentity(c *fiber.Ctx) *Identity {
	identity, ok := c.Locals(IdentityKey).(*Identity)
	if !ok {
		return nil
	}
	return identity
}
