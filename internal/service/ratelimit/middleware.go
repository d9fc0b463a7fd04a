package ratelimit

import (
	"math"
	"strconv"

	xhttp "CryptoPredict/pkg/http"
	"CryptoPredict/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Middleware rejects requests over budget with 429 and a Retry-After header, keyed by c.RealIP().
// The server's IP extractor decides which forwarding headers RealIP may trust.
// A counter store error lets the request through.
func (l *Limiter) Middleware(log *logger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = logger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			allowed, retryAfter, err := l.Allow(c.Request().Context(), key)
			if err != nil {
				log.Warn("rate limiter unavailable", logger.String("key", key), logger.Error(err))
				return next(c)
			}
			if allowed {
				return next(c)
			}
			secs := int(math.Ceil(retryAfter.Seconds()))
			if secs < 1 {
				secs = 1
			}
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(secs))
			return xhttp.TooManyRequestsError("too many prediction requests, retry later").
				WithParam("retryAfterSeconds", secs)
		}
	}
}
