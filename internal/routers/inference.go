package routers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"classifier-api/internal/ctx"
	"classifier-api/internal/handlers/inference"
	"classifier-api/internal/shared"

	"github.com/labstack/echo/v4"
)

type InferenceRouter struct {
	ih *inference.InferenceHandler
}

func RegisterInferenceRoutes(e *echo.Group, ih *inference.InferenceHandler, auth echo.MiddlewareFunc) {
	inferenceRouter := InferenceRouter{ih: ih}

	requireKey := e.Group("", auth)
	requireKey.GET("/models", inferenceRouter.GetModels)
	requireKey.POST("/predict/:model_name", inferenceRouter.Predict)
}

func (ir *InferenceRouter) GetModels(cc echo.Context) error {
	return cc.JSON(200, shared.ModelList{Data: ir.ih.ListModels()})
}

func (ir *InferenceRouter) Predict(cc echo.Context) error {
	c := cc.(*ctx.Context)
	modelName := c.Param("model_name")
	c.LogValues.Model = modelName

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		c.LogValues.AddError(errors.Join(errors.New("failed to read request body"), err))
		return c.JSON(http.StatusBadRequest, shared.APIError{
			Detail: "failed to read request body",
			Type:   shared.KindBadRequest,
		})
	}

	var req shared.PredictRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.LogValues.AddError(errors.Join(shared.ErrInvalidRequest, err))
		return c.JSON(http.StatusBadRequest, shared.APIError{
			Detail: shared.ErrInvalidRequest.Err.Error(),
			Type:   shared.KindBadRequest,
		})
	}
	c.LogValues.BatchSize = len(req.Inputs)

	resp, err := ir.ih.Predict(c.Request().Context(), modelName, req.Inputs)
	if err != nil {
		c.LogValues.AddError(err)
		rerr := inference.ToRequestError(err)
		return c.JSON(rerr.StatusCode, shared.APIError{
			Detail: rerr.Err.Error(),
			Type:   inference.ErrorKind(err),
		})
	}
	return c.JSON(http.StatusOK, resp)
}
