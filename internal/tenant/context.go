package tenant

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrNoToken = errors.New("invalid token in context")

// Claims are the fields the auth service puts into access tokens.
type Claims struct {
	UserID uuid.UUID
	Email  string
	AppID  string
	Role   string
}

// GetAppID extracts the app_id resolved by the tenant middleware.
func GetAppID(c *fiber.Ctx) string {
	if appID, ok := c.Locals("app_id").(string); ok {
		return appID
	}
	return ""
}

// TokenClaims reads the verified JWT stored by the jwt middleware.
func TokenClaims(c *fiber.Ctx) (Claims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return Claims{}, ErrNoToken
	}
	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errors.New("invalid claims")
	}

	sub, ok := mc["sub"].(string)
	if !ok {
		return Claims{}, errors.New("missing sub claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Claims{}, err
	}

	claims := Claims{UserID: userID}
	claims.Email, _ = mc["email"].(string)
	claims.AppID, _ = mc["app_id"].(string)
	claims.Role, _ = mc["role"].(string)
	return claims, nil
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := TokenClaims(c)
	if err != nil {
		return uuid.Nil, err
	}
	return claims.UserID, nil
}
