package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const RoleAdmin = "admin"

var ErrNoPrincipal = errors.New("no authenticated user")

// Principal is the authenticated user carried by the JWT. Tokens are issued
// by the identity provider; only user_id is mandatory.
type Principal struct {
	UserID    uuid.UUID
	Email     string
	Username  string
	FirstName string
	LastName  string
	Role      string
}

func Protected(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
	})
}

// OptionalAuth validates a bearer token when one is sent and lets
// anonymous requests through untouched.
func OptionalAuth(secret string) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey:   []byte(secret),
		ErrorHandler: jwtError,
		Filter: func(c *fiber.Ctx) bool {
			return c.Get(fiber.HeaderAuthorization) == ""
		},
	})
}

func jwtError(c *fiber.Ctx, err error) error {
	if err.Error() == "Missing or malformed JWT" {
		return c.Status(fiber.StatusBadRequest).
			JSON(fiber.Map{"status": "error", "message": "Missing or malformed JWT", "data": nil})
	}
	return c.Status(fiber.StatusUnauthorized).
		JSON(fiber.Map{"status": "error", "message": "Invalid or expired JWT", "data": nil})
}

func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := CurrentUser(c)
		if err != nil || p.Role != RoleAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Forbidden: Admin access required",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the principal of a request that passed Protected or
// OptionalAuth with a token.
func CurrentUser(c *fiber.Ctx) (*Principal, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, ErrNoPrincipal
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrNoPrincipal
	}

	raw, _ := claims["user_id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrNoPrincipal
	}

	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	return &Principal{
		UserID:    id,
		Email:     str("email"),
		Username:  str("username"),
		FirstName: str("first_name"),
		LastName:  str("last_name"),
		Role:      str("role"),
	}, nil
}

// IssueToken signs a token for p. Used by the seed command and tests.
func IssueToken(secret string, p Principal, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":    p.UserID.String(),
		"email":      p.Email,
		"username":   p.Username,
		"first_name": p.FirstName,
		"last_name":  p.LastName,
		"role":       p.Role,
		"exp":        time.Now().Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
