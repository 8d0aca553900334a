package middleware

import (
	"fmt"
	"time"

	"classifier-api/internal/ctx"
	"classifier-api/internal/metrics"
	"classifier-api/internal/shared"

	"github.com/aidarkhanov/nanoid"
	"github.com/labstack/echo/v4"
	emw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewTrackMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID, _ := nanoid.Generate("0123456789abcdefghijklmnopqrstuvwxyz", 28)
			reqID = "req_" + reqID
			logger := log.With("request_id", reqID)
			c.Response().Header().Set(echo.HeaderXRequestID, reqID)

			start := time.Now()
			cc := &ctx.Context{
				Context: c,
				Log:     logger,
				Reqid:   reqID,
				LogValues: &ctx.ContextLogValues{
					RequestID: reqID,
					StartTime: start,
					Path:      c.Request().URL.Path,
				},
			}
			err := next(cc)
			if err != nil {
				// let echo write the response before we read the status
				c.Error(err)
				cc.LogValues.AddError(err)
			}
			cc.LogValues.RequestDuration = time.Since(start)
			cc.LogValues.StatusCode = cc.Response().Status

			switch {
			case cc.LogValues.StatusCode >= 500:
				cc.Log.Errorw("end_of_request", zap.Object("request", cc.LogValues))
			case cc.LogValues.StatusCode >= 400:
				cc.Log.Warnw("end_of_request", zap.Object("request", cc.LogValues))
			default:
				cc.Log.Infow("end_of_request", zap.Object("request", cc.LogValues))
			}
			metrics.ResponseCodes.WithLabelValues(cc.Path(), fmt.Sprintf("%d", cc.LogValues.StatusCode)).Inc()
			return nil
		}
	}
}

func NewRecoverMiddleware(log *zap.SugaredLogger) echo.MiddlewareFunc {
	return emw.RecoverWithConfig(emw.RecoverConfig{
		StackSize: 1 << 10, // 1 KB
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			defer func() {
				_ = log.Sync()
			}()
			log.Errorw("Api Panic", "error", err.Error(), "stack", string(stack))
			return c.JSON(500, shared.APIError{
				Detail: shared.ErrInternalServerError.Err.Error(),
				Type:   shared.KindInternal,
			})
		},
	})
}
