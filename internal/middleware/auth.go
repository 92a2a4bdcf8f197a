package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yourorg/kharkivmetro/internal/models"
)

// AdminClaims are carried by admin tokens.
type AdminClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 admin token valid for ttl.
func IssueToken(secret []byte, username string, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("auth: empty signing secret")
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := AdminClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	return signed, expires, err
}

// ParseToken verifies raw and returns its claims.
func ParseToken(secret []byte, raw string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	return claims, nil
}

// RequireAdmin rejects requests without a valid "Authorization: Bearer"
// admin token. The username is stored in Locals("admin").
func RequireAdmin(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "missing bearer token"})
		}
		claims, err := ParseToken(secret, strings.TrimSpace(raw))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse{Error: "invalid token"})
		}
		c.Locals("admin", claims.Username)
		return c.Next()
	}
}
