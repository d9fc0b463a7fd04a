package api

import (
	"context"
	"errors"
	"time"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/usecase"
	xhttp "CryptoPredict/pkg/http"
	xlogger "CryptoPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

const (
	ServiceName    = "Kronos CryptoPredict API"
	ServiceVersion = "2.0.0"
)

// Predictor produces a forecast for a validated request.
type Predictor interface {
	Predict(ctx context.Context, symbol string, days int) (models.Forecast, error)
}

// ForecastHandler serves the prediction endpoint and the liveness probe.
type ForecastHandler struct {
	logger    *xlogger.Logger
	predictor Predictor
	limit     []echo.MiddlewareFunc
}

// NewForecastHandler builds the handler. limit wraps only the prediction route.
func NewForecastHandler(logger *xlogger.Logger, predictor Predictor, limit ...echo.MiddlewareFunc) *ForecastHandler {
	return &ForecastHandler{logger: logger, predictor: predictor, limit: limit}
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)
	e.POST("/api/predict", h.Predict, h.limit...)
}

func (h *ForecastHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.Health{
		Status:    "OK",
		Timestamp: time.Now().Format(time.RFC3339),
		Service:   ServiceName,
		Version:   ServiceVersion,
	})
}

func (h *ForecastHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	f, err := h.predictor.Predict(c.Request().Context(), req.Symbol, req.Days)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidRequest):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		case errors.Is(err, usecase.ErrCascadeExhausted):
			h.logger.Error("predict: no source answered",
				xlogger.String("symbol", req.Symbol),
				xlogger.Int("days", req.Days),
				xlogger.Error(err),
			)
			return xhttp.AppErrorResponse(c, xhttp.InternalError("forecast unavailable").WithError(err))
		default:
			h.logger.Warn("predict usecase error", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}
	return xhttp.SuccessResponse(c, f)
}
