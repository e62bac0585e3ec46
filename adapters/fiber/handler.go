package fiber

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
)

const errInternal = "internal server error"

type refreshInput struct {
	Refresh string `json:"refresh"`
}

// handleSocial returns a handler for the Google and Apple sign-in endpoints
func (a *Adapter) handleSocial(h core.AuthHandler, provider core.Provider) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.SocialSignInInput
		if err := c.Bind().Body(&input); err != nil {
			return a.invalidBody(c, err)
		}
		input.Provider = provider

		result, err := h.SignInWithProvider(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(successStatus(c)).JSON(core.Success("Login successful", result))
	}
}

// handleSignIn returns a handler for the email/password login endpoint
func (a *Adapter) handleSignIn(h core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.SignInInput
		if err := c.Bind().Body(&input); err != nil {
			return a.invalidBody(c, err)
		}

		result, err := h.SignIn(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(successStatus(c)).JSON(core.Success("Login successful", result))
	}
}

// handleSignUp returns a handler for the registration endpoint
func (a *Adapter) handleSignUp(h core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input core.SignUpInput
		if err := c.Bind().Body(&input); err != nil {
			return a.invalidBody(c, err)
		}

		result, err := h.SignUp(c.Context(), input)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(successStatus(c)).JSON(core.Success("User registered successfully", result))
	}
}

// handleRefresh returns a handler for the refresh endpoint
func (a *Adapter) handleRefresh(h core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		var input refreshInput
		if err := c.Bind().Body(&input); err != nil {
			return a.invalidBody(c, err)
		}

		result, err := h.Refresh(c.Context(), input.Refresh)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(successStatus(c)).JSON(core.Success("Token refreshed", result))
	}
}

// handleMe returns a handler for the current-user endpoint. It runs behind requireBearer.
func (a *Adapter) handleMe(h core.AuthHandler) fiber.Handler {
	return func(c fiber.Ctx) error {
		token, _ := c.Locals(accessTokenKey{}).(string)

		user, err := h.Me(c.Context(), token)
		if err != nil {
			return a.handleAuthError(c, err)
		}
		return c.Status(successStatus(c)).JSON(core.Success("User fetched", user))
	}
}

func (a *Adapter) invalidBody(c fiber.Ctx, err error) error {
	a.log.Debug("request body rejected", "path", c.Path(), "error", err)
	return c.Status(http.StatusBadRequest).JSON(core.Failure("Invalid request", errors.New("invalid request body")))
}

// handleAuthError maps authentication errors to enveloped HTTP responses.
// Server-side failures are logged and answered with a generic message.
func (a *Adapter) handleAuthError(c fiber.Ctx, err error) error {
	status := mapErrorToStatus(err)
	if status >= http.StatusInternalServerError && status != http.StatusNotImplemented {
		a.log.Error("request failed", "path", c.Path(), "error", err)
		return c.Status(status).JSON(core.Failure("Request failed", errors.New(errInternal)))
	}
	return c.Status(status).JSON(core.Failure(messageFor(status), err))
}

// mapErrorToStatus maps bantay error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrProviderMismatch),
		errors.Is(err, core.ErrSubjectConflict),
		errors.Is(err, core.ErrEmailTaken):
		return http.StatusConflict

	case errors.Is(err, core.ErrTokenInvalid),
		errors.Is(err, core.ErrCredentialInvalid),
		errors.Is(err, core.ErrEmailUnverified):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrProviderNotConfigured):
		return http.StatusNotImplemented

	default:
		return http.StatusInternalServerError
	}
}

func messageFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Invalid request"
	case http.StatusUnauthorized:
		return "Authentication failed"
	case http.StatusConflict:
		return "Account conflict"
	case http.StatusNotImplemented:
		return "Sign-in method unavailable"
	default:
		return "Request failed"
	}
}
