package serverutils

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserID = "user_id"
	LocalRole   = "role"
)

// JwtMiddleware requires a bearer token signed with secret and stores the
// user_id and role claims in ctx.Locals.
func JwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		userID, role, err := parseBearer(ctx.Get("Authorization"), secret)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(401, err.Error()))
		}
		ctx.Locals(LocalUserID, userID)
		ctx.Locals(LocalRole, role)
		return ctx.Next()
	}
}

// OptionalJwtMiddleware resolves the identity when a valid token is present
// and lets the request through either way.
func OptionalJwtMiddleware(secret string) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if userID, role, err := parseBearer(ctx.Get("Authorization"), secret); err == nil {
			ctx.Locals(LocalUserID, userID)
			ctx.Locals(LocalRole, role)
		}
		return ctx.Next()
	}
}

// UserID is empty for anonymous requests.
func UserID(ctx *fiber.Ctx) string {
	id, _ := ctx.Locals(LocalUserID).(string)
	return id
}

func Role(ctx *fiber.Ctx) string {
	role, _ := ctx.Locals(LocalRole).(string)
	return role
}

func parseBearer(header, secret string) (string, string, error) {
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return "", "", fmt.Errorf("Missing token")
	}
	tokenStr := strings.TrimSpace(header[7:])

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return "", "", fmt.Errorf("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fmt.Errorf("Invalid claims")
	}
	userID := claimString(claims, "user_id")
	if userID == "" {
		userID = claimString(claims, "sub")
	}
	if userID == "" {
		return "", "", fmt.Errorf("Invalid claims")
	}
	return userID, claimString(claims, "role"), nil
}

func claimString(claims jwt.MapClaims, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}

// SignToken issues an HS256 token carrying the claims JwtMiddleware reads.
// Used by tests and the local dev tooling.
func SignToken(secret, userID, role string) (string, error) {
	claims := jwt.MapClaims{"user_id": userID}
	if role != "" {
		claims["role"] = role
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
