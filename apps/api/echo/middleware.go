package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/services/ratelimit"
)

func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware caps the requests of each reviewer to the route; a nil limiter disables it.
func rateLimitMiddleware(limiter ratelimitsvc.Limiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			reviewer, err := getContextReviewer(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context reviewer")
			}
			if !limiter.Allow(ctx.Request().Context(), action+":"+reviewer.ID) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
