package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserIDLocalKey is the context locals key holding the authenticated user's ID.
const UserIDLocalKey = "user_id"

// RequireUser verifies the HS256 bearer token minted by the upstream auth
// service and exposes its subject claim as the owner ID for downstream
// handlers. This middleware is the only place authentication is consumed;
// everything below it sees a plain user ID string.
func RequireUser(secret string) fiber.Handler {
	keyFunc := func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}

	return func(c *fiber.Ctx) error {
		const prefix = "Bearer "
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, prefix) {
			return unauthenticated(c)
		}

		tok, err := jwt.Parse(strings.TrimPrefix(header, prefix), keyFunc)
		if err != nil || !tok.Valid {
			return unauthenticated(c)
		}
		sub, err := tok.Claims.GetSubject()
		if err != nil || sub == "" {
			return unauthenticated(c)
		}

		c.Locals(UserIDLocalKey, sub)
		return c.Next()
	}
}

// UserID returns the authenticated user's ID set by RequireUser, or "".
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(UserIDLocalKey).(string)
	return id
}

func unauthenticated(c *fiber.Ctx) error {
	rid, _ := c.Locals(RequestIDLocalKey).(string)
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"request_id": rid,
		"error": fiber.Map{
			"code":    "UNAUTHENTICATED",
			"message": "missing or invalid credentials",
		},
	})
}
