package serverutils

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JwtMiddleware authenticates the steward and exposes the actor identity to
// handlers via Locals("actor").
func JwtMiddleware(ctx *fiber.Ctx) error {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Missing token"})
	}
	tokenStr := authHeader[7:]

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	})

	if err != nil || !token.Valid {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Invalid claims"})
	}

	actor, _ := claims["sub"].(string)
	if actor == "" {
		actor, _ = claims["email"].(string)
	}
	ctx.Locals("actor", actor)
	return ctx.Next()
}

// Actor reads the authenticated identity set by JwtMiddleware.
func Actor(ctx *fiber.Ctx) string {
	if actor, ok := ctx.Locals("actor").(string); ok {
		return actor
	}
	return ""
}
