package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/paes/core/user"
)

const contextPrincipalKey = "principal"

// principalMiddleware resolves the caller from the JWT claims. Must run after the JWT middleware.
func principalMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p, err := getContextPrincipal(ctx)
			if err != nil {
				return err
			}
			ctx.Set(contextPrincipalKey, p)
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextPrincipal(ctx).IsAdmin() {
				return next(ctx)
			}
			return errors.WithStack(errHttpForbidden)
		}
	}
}

func contextPrincipal(ctx echo.Context) user.Principal {
	p, _ := ctx.Get(contextPrincipalKey).(user.Principal)
	return p
}
