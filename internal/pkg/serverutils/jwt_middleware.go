package serverutils

import (
	"errors"
	"fmt"

	"skalgpt-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// NewJwtMiddleware rejects requests without a valid bearer token and stores
// the caller's user_id claim in ctx.Locals("user_id").
func NewJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Missing token"))
		}

		userId, err := ParseUserToken(authHeader[7:], secret)
		if errors.Is(err, apperror.ErrConfiguration) {
			// Not the caller's fault; let the error handler report it
			return err
		}
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(fiber.StatusUnauthorized, "Invalid token"))
		}

		ctx.Locals("user_id", userId.String())
		return ctx.Next()
	}
}

// ParseUserToken validates an HS256 token and returns its user_id claim.
func ParseUserToken(tokenStr string, secret string) (uuid.UUID, error) {
	if secret == "" {
		return uuid.Nil, apperror.ErrConfiguration
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apperror.Wrap(apperror.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userIdStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}

	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, apperror.Wrap(apperror.ErrUnauthorized, err)
	}
	return userId, nil
}

// UserIdFromCtx reads the identity placed by the JWT middleware.
func UserIdFromCtx(ctx *fiber.Ctx) (uuid.UUID, error) {
	userIdStr, ok := ctx.Locals("user_id").(string)
	if !ok {
		return uuid.Nil, apperror.ErrUnauthorized
	}
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return uuid.Nil, errors.Join(apperror.ErrUnauthorized, err)
	}
	return userId, nil
}
