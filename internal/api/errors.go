package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/selivandex/sentiment-proxy/internal/coordinator"
)

const (
	msgInvalidSymbol = "Symbol must be 1-10 characters of A-Z, 0-9, '.' or '-'"
	msgUpstream      = "News or sentiment services are temporarily unavailable, please retry later"
	msgStore         = "Sentiment storage is temporarily unavailable, please retry later"
	msgInternal      = "Internal server error"
)

// statusFor maps resolve errors to HTTP status and a message without internal detail
func statusFor(err error, symbol string) (int, string) {
	switch {
	case errors.Is(err, coordinator.ErrInvalidSymbol):
		return http.StatusBadRequest, msgInvalidSymbol
	case errors.Is(err, coordinator.ErrNoArticlesFound):
		return http.StatusNotFound, fmt.Sprintf("No articles found for symbol: %s", symbol)
	case errors.Is(err, coordinator.ErrUpstreamUnavailable):
		return http.StatusInternalServerError, msgUpstream
	case errors.Is(err, coordinator.ErrStoreUnavailable):
		return http.StatusInternalServerError, msgStore
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

func abortWithError(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Detail: msg})
}
