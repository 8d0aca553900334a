// Package routers
package routers

import (
	"errors"
	"fmt"
	"net/http"

	"classifier-api/internal/handlers/inference"
	"classifier-api/internal/keys"
	"classifier-api/internal/middleware"
	"classifier-api/internal/shared"

	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Config struct {
	AppName       string
	Version       string
	MetricsAPIKey string
	Keys          keys.Validator
	Inference     *inference.InferenceHandler
	Log           *zap.SugaredLogger
}

// RegisterRoutes wires every route and middleware onto e.
func RegisterRoutes(e *echo.Echo, cfg Config) {
	e.HTTPErrorHandler = errorHandler(e)
	e.GET(("/ping"), func(c echo.Context) error {
		return c.String(200, "")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey, err := shared.ExtractAPIKey(c.Request().Header)
			if err != nil {
				return c.String(401, "Missing or invalid API key")
			}

			if cfg.MetricsAPIKey == "" || apiKey != cfg.MetricsAPIKey {
				return c.String(401, "Unauthorized API key")
			}
			return next(c)
		}
	})

	base := e.Group("")
	base.Use(emw.CORS())
	base.Use(middleware.NewRecoverMiddleware(cfg.Log))
	base.Use(middleware.NewTrackMiddleware(cfg.Log))
	base.Use(emw.BodyLimit(shared.MaxBodySize))

	auth := middleware.NewAuthMiddleware(cfg.Keys)
	info := shared.AppInfo{AppName: cfg.AppName, Version: cfg.Version, Status: "up & running"}
	base.GET("/", func(c echo.Context) error {
		return c.JSON(200, info)
	}, auth)

	RegisterInferenceRoutes(base, cfg.Inference, auth)
}

// errorHandler renders echo's own errors (unknown route, bad method, body
// too large) in the same shape as handler errors.
func errorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		detail := shared.ErrInternalServerError.Err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			detail = fmt.Sprint(he.Message)
		}
		if err := c.JSON(code, shared.APIError{Detail: detail, Type: http.StatusText(code)}); err != nil {
			e.Logger.Error(err)
		}
	}
}
