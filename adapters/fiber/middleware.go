package fiber

import (
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
)

type accessTokenKey struct{}

// requireBearer rejects requests without a well-formed bearer token and
// stores the raw token in the context for downstream handlers. The token
// itself is verified by the handler.
func (a *Adapter) requireBearer(c fiber.Ctx) error {
	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		return a.handleAuthError(c, err)
	}

	c.Locals(accessTokenKey{}, token)
	return c.Next()
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", core.ErrMissingAuthHeader
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", core.ErrInvalidAuthHeader
	}
	return strings.TrimSpace(token), nil
}
