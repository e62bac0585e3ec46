package fiber

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v3"

	"github.com/lborres/bantay/core"
	"github.com/lborres/bantay/pkg/logger"
	"github.com/lborres/bantay/services"
)

type Adapter struct {
	app *fiber.App
	log *logger.Logger
}

var _ core.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App, log *logger.Logger) *Adapter {
	if log == nil {
		log = logger.Nop()
	}
	return &Adapter{app: app, log: log}
}

// RegisterRoutes mounts every registry endpoint under basePath.
func (a *Adapter) RegisterRoutes(handler core.AuthHandler, basePath string) error {
	api := a.app.Group(basePath)

	handlers := map[string]fiber.Handler{
		services.OpSignInWithGoogle: a.handleSocial(handler, core.ProviderGoogle),
		services.OpSignInWithApple:  a.handleSocial(handler, core.ProviderApple),
		services.OpSignIn:           a.handleSignIn(handler),
		services.OpSignUp:           a.handleSignUp(handler),
		services.OpRefresh:          a.handleRefresh(handler),
		services.OpMe:               a.handleMe(handler),
	}

	for _, ep := range services.NewEndpointRegistry().Endpoints() {
		h, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no fiber handler for operation %q", ep.Metadata.OperationID)
		}
		h = withStatus(h, ep.Metadata.SuccessCode)

		// Public routes
		if !ep.Protected {
			if err := mount(api, ep.Method, ep.Path, h); err != nil {
				return err
			}
			continue
		}

		// Protected routes
		if err := mount(api, ep.Method, ep.Path, a.requireBearer, h); err != nil {
			return err
		}
	}

	return nil
}

func mount(r fiber.Router, method, path string, handler fiber.Handler, handlers ...fiber.Handler) error {
	chain := make([]any, 0, len(handlers))
	for _, h := range handlers {
		chain = append(chain, h)
	}
	switch method {
	case http.MethodGet:
		r.Get(path, handler, chain...)
	case http.MethodPost:
		r.Post(path, handler, chain...)
	default:
		return fmt.Errorf("unsupported method %s for %s", method, path)
	}
	return nil
}

type statusKey struct{}

// withStatus records the endpoint's success code for the handler to answer with.
func withStatus(h fiber.Handler, code int) fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(statusKey{}, code)
		return h(c)
	}
}

func successStatus(c fiber.Ctx) int {
	if code, ok := c.Locals(statusKey{}).(int); ok && code != 0 {
		return code
	}
	return http.StatusOK
}
