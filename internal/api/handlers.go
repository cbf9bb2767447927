package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/selivandex/sentiment-proxy/internal/coordinator"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
)

const (
	defaultHistoryDays = 30
	maxHistoryDays     = 365
	maxRecordsLimit    = 1000

	welcomeMessage = "Welcome to the News Sentiment Analysis API. POST /news-sentiment with {\"symbol\": \"AAPL\"}."
)

// Resolver returns the fresh sentiment record for a symbol
type Resolver interface {
	Resolve(ctx context.Context, symbol string) (*coordinator.Resolution, error)
}

// Handler serves sentiment endpoints
type Handler struct {
	resolver Resolver
	store    records.Store
	clock    func() time.Time
}

// NewHandler creates handler
func NewHandler(resolver Resolver, store records.Store) *Handler {
	return &Handler{
		resolver: resolver,
		store:    store,
		clock:    time.Now,
	}
}

// RegisterRoutes binds handler methods to router
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", h.Root)
	r.POST("/news-sentiment", h.NewsSentiment)
	r.GET("/news-sentiment/:symbol/history", h.History)
	r.GET("/news-sentiment/:symbol/records", h.Records)
	r.GET("/symbols", h.Symbols)
}

// Root returns welcome message
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

// NewsSentiment resolves sentiment for the requested symbol
func (h *Handler) NewsSentiment(c *gin.Context) {
	var req SentimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Request body must be JSON with a non-empty \"symbol\" field")
		return
	}

	res, err := h.resolver.Resolve(c.Request.Context(), req.Symbol)
	if err != nil {
		status, msg := statusFor(err, strings.ToUpper(strings.TrimSpace(req.Symbol)))
		if status >= http.StatusInternalServerError {
			logger.Error("sentiment resolve failed",
				zap.String("symbol", req.Symbol),
				zap.String("request_id", requestID(c)),
				zap.Error(err),
			)
		}
		abortWithError(c, status, msg)
		return
	}

	if res.CacheHit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	if !res.Persisted {
		c.Header("X-Persisted", "false")
	}

	c.JSON(http.StatusOK, toResponse(res.Record))
}

// History returns stored records for symbol over the last ?days= days, newest first
func (h *Handler) History(c *gin.Context) {
	symbol, err := coordinator.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidSymbol)
		return
	}

	days := defaultHistoryDays
	if raw := c.Query("days"); raw != "" {
		days, err = strconv.Atoi(raw)
		if err != nil || days < 1 || days > maxHistoryDays {
			abortWithError(c, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
	}

	since := h.clock().UTC().AddDate(0, 0, -days)

	history, err := h.store.FindHistory(c.Request.Context(), symbol, since)
	if err != nil {
		logger.Error("failed to load sentiment history",
			zap.String("symbol", symbol),
			zap.Int("days", days),
			zap.Error(err),
		)
		abortWithError(c, http.StatusInternalServerError, msgStore)
		return
	}

	c.JSON(http.StatusOK, toResponses(history))
}

// Records returns the latest ?limit= records for symbol regardless of age, newest first
func (h *Handler) Records(c *gin.Context) {
	symbol, err := coordinator.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, msgInvalidSymbol)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxRecordsLimit {
			abortWithError(c, http.StatusBadRequest, "limit must be an integer between 1 and 1000")
			return
		}
	}

	list, err := h.store.FindBySymbol(c.Request.Context(), symbol, limit)
	if err != nil {
		logger.Error("failed to load sentiment records", zap.String("symbol", symbol), zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, msgStore)
		return
	}

	c.JSON(http.StatusOK, toResponses(list))
}

// Symbols lists every symbol with stored records
func (h *Handler) Symbols(c *gin.Context) {
	symbols, err := h.store.ListDistinctSymbols(c.Request.Context())
	if err != nil {
		logger.Error("failed to list symbols", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, msgStore)
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	c.JSON(http.StatusOK, SymbolsResponse{Symbols: symbols})
}
