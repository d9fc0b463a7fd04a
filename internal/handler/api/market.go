package api

import (
	"context"
	"errors"

	"CryptoPredict/internal/domain/models"
	"CryptoPredict/internal/usecase"
	xhttp "CryptoPredict/pkg/http"
	xlogger "CryptoPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Market is the spot price and popular batch provider.
type Market interface {
	SpotPrice(ctx context.Context, symbol string) (models.SpotPrice, error)
	Popular(ctx context.Context, limit int) []models.PopularTicker
}

type MarketHandler struct {
	logger *xlogger.Logger
	market Market
}

// NewMarketHandler creates the spot price and popular board handler.
func NewMarketHandler(logger *xlogger.Logger, market Market) *MarketHandler {
	return &MarketHandler{logger: logger, market: market}
}

func (h *MarketHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/crypto/:symbol", h.Crypto)
	g.GET("/cryptos/popular", h.Popular)
}

func (h *MarketHandler) Crypto(c echo.Context) error {
	req := &models.CryptoRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	p, err := h.market.SpotPrice(c.Request().Context(), req.Symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidRequest) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		}
		h.logger.Warn("spot price unavailable", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c,
			xhttp.BadGatewayErrorf("price for %s is unavailable", req.Symbol).
				WithParam("symbol", req.Symbol).
				WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.SuccessResponse(c, p)
}

func (h *MarketHandler) Popular(c echo.Context) error {
	req := &models.PopularRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return xhttp.SuccessResponse(c, h.market.Popular(c.Request().Context(), req.Limit))
}
