package middleware

import (
	"errors"
	"net/http"

	"classifier-api/internal/ctx"
	"classifier-api/internal/keys"
	"classifier-api/internal/metrics"
	"classifier-api/internal/shared"

	"github.com/labstack/echo/v4"
)

// NewAuthMiddleware rejects requests without a valid API key with a 403.
func NewAuthMiddleware(v keys.Validator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(cc echo.Context) error {
			c := cc.(*ctx.Context)
			apiKey, err := shared.ExtractAPIKey(c.Request().Header)
			if err != nil {
				return deny(c, "missing", err)
			}
			key, err := v.Validate(c.Request().Context(), apiKey)
			if err != nil {
				return deny(c, "invalid", err)
			}
			c.LogValues.KeyOwner = key.Owner
			c.Log = c.Log.With("key_owner", key.Owner)
			return next(c)
		}
	}
}

func deny(c *ctx.Context, reason string, err error) error {
	metrics.AuthFailures.WithLabelValues(reason).Inc()
	c.LogValues.AddError(errors.Join(errors.New("auth failed"), err))
	return c.JSON(http.StatusForbidden, shared.APIError{
		Detail: shared.ErrUnauthorized.Err.Error(),
		Type:   shared.KindUnauthorized,
	})
}
