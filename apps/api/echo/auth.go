package echoapi

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
	"github.com/trezcool/backoffice/core/auth"
)

var contextTokenKey = "reviewerToken"

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: auth.SigningMethod.Alg(),
		ContextKey:    contextTokenKey,
		Claims:        new(auth.Claims),
	}
}

func getContextClaims(ctx echo.Context) (auth.Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*auth.Claims); ok {
			return *claims, nil
		}
	}
	return auth.Claims{}, errUnauthorized
}

// getContextReviewer returns the reviewer authenticated by the request's token.
func getContextReviewer(ctx echo.Context) (admission.Reviewer, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return admission.Reviewer{}, err
	}
	reviewer := claims.Reviewer()
	if !reviewer.IsAuthenticated() {
		return admission.Reviewer{}, errUnauthorized
	}
	return reviewer, nil
}
