package middlewares

import (
	"strings"

	t_token "apartment_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenClaims verified claims, set c.locals name
	TokenClaims = "claims"
	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
	//TokenApartmentID get apartment form token, set c.locals name
	TokenApartmentID = "apartmentID"
)

// BearerToken pick the credential from Authorization header, query or cookie
func BearerToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if q := c.Query(QueryToken); q != "" {
		return q
	}
	return c.Cookies(CookieToken)
}

// JWTMiddleware validates the bearer credential and binds the identity to c.Locals.
// Requests without a valid credential never reach the next handler.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.Authenticate(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenClaims, claims)
		c.Locals(TokenMemberID, claims.UserID)
		c.Locals(TokenRole, string(claims.Role))
		c.Locals(TokenApartmentID, claims.ApartmentID)
		return c.Next()
	}
}

// ClaimsFrom read the claims bound by JWTMiddleware
func ClaimsFrom(c *fiber.Ctx) (*t_token.Claims, bool) {
	claims, ok := c.Locals(TokenClaims).(*t_token.Claims)
	return claims, ok && claims != nil
}
