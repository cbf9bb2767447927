package coordinator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/selivandex/sentiment-proxy/internal/adapters/config"
	"github.com/selivandex/sentiment-proxy/internal/records"
	"github.com/selivandex/sentiment-proxy/internal/sentiment"
	"github.com/selivandex/sentiment-proxy/pkg/logger"
	"github.com/selivandex/sentiment-proxy/pkg/metrics"
	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// FreshnessWindow is how long a stored record is served without recomputation
const FreshnessWindow = 10 * time.Minute

const defaultMaxConcurrency = 3

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// NewsSource returns ordered headlines for a symbol
type NewsSource interface {
	Fetch(ctx context.Context, symbol string) (*models.HeadlineBatch, error)
}

// Classifier labels a single headline
type Classifier interface {
	Classify(ctx context.Context, text string) (sentiment.Result, error)
}

// Resolution is the outcome of a successful Resolve
type Resolution struct {
	Record    *models.SentimentRecord
	CacheHit  bool
	Persisted bool // false only when best-effort persistence failed
	Degraded  int  // headlines labelled by fallback or substituted with neutral
	Synthetic bool
}

// Coordinator serves fresh records from the store and computes new ones on miss
type Coordinator struct {
	store          records.Store
	news           NewsSource
	classifier     Classifier
	clock          func() time.Time
	persistMode    string
	maxConcurrency int
	recorders      []metrics.Recorder
}

// Option configures Coordinator
type Option func(*Coordinator)

// WithClock overrides time source
func WithClock(clock func() time.Time) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// WithPersistMode sets config.PersistStrict or config.PersistBestEffort
func WithPersistMode(mode string) Option {
	return func(c *Coordinator) {
		c.persistMode = mode
	}
}

// WithMaxConcurrency bounds concurrent classifications per resolve
func WithMaxConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxConcurrency = n
		}
	}
}

// WithRecorder adds resolution observer
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.recorders = append(c.recorders, r)
		}
	}
}

// New creates coordinator
func New(store records.Store, news NewsSource, classifier Classifier, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          store,
		news:           news,
		classifier:     classifier,
		clock:          time.Now,
		persistMode:    config.PersistStrict,
		maxConcurrency: defaultMaxConcurrency,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NormalizeSymbol trims and uppercases symbol, then validates it
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// Resolve returns the fresh record for symbol, computing and storing one on miss
func (c *Coordinator) Resolve(ctx context.Context, symbol string) (*Resolution, error) {
	start := time.Now()

	res, err := c.resolve(ctx, symbol)

	c.record(symbol, res, err, time.Since(start))

	return res, err
}

func (c *Coordinator) resolve(ctx context.Context, symbol string) (*Resolution, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	since := c.clock().UTC().Add(-FreshnessWindow)

	cached, err := c.store.FindRecent(ctx, sym, since)
	if err != nil {
		logger.Error("store lookup failed", zap.String("symbol", sym), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if cached != nil {
		logger.Debug("serving cached sentiment",
			zap.String("symbol", sym),
			zap.Time("timestamp", cached.Timestamp),
		)
		return &Resolution{
			Record:    cached,
			CacheHit:  true,
			Persisted: true,
			Synthetic: cached.HasSynthetic(),
		}, nil
	}

	return c.compute(ctx, sym)
}

func (c *Coordinator) compute(ctx context.Context, symbol string) (*Resolution, error) {
	batch, err := c.news.Fetch(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: news: %v", ErrUpstreamUnavailable, err)
	}
	if batch == nil || len(batch.Articles) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoArticlesFound, symbol)
	}
	if batch.IsSynthetic() {
		logger.Warn("no real headlines found, using placeholders",
			zap.String("symbol", symbol),
			zap.String("news_provider", batch.Provider),
			zap.Strings("titles", batch.Titles()),
		)
	}

	articles := make([]models.Article, 0, len(batch.Articles))
	for _, a := range batch.Articles {
		if strings.TrimSpace(a.Title) != "" {
			articles = append(articles, a)
		}
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: no usable headlines for %s", ErrUpstreamUnavailable, symbol)
	}

	headlines, degraded, err := c.classifyAll(ctx, symbol, articles)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	record := &models.SentimentRecord{
		Symbol:           symbol,
		Timestamp:        c.clock().UTC().Truncate(time.Microsecond),
		Headlines:        headlines,
		OverallSentiment: sentiment.AggregateHeadlines(headlines),
	}

	res := &Resolution{
		Record:    record,
		Persisted: true,
		Degraded:  degraded,
		Synthetic: record.HasSynthetic(),
	}

	if err := c.store.Append(ctx, record); err != nil {
		if c.persistMode != config.PersistBestEffort {
			logger.Error("failed to store sentiment record", zap.String("symbol", symbol), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}

		logger.Warn("failed to store sentiment record, returning unsaved result",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		res.Persisted = false
	}

	breakdown := sentiment.Breakdown(headlines)
	logger.Info("computed sentiment",
		zap.String("symbol", symbol),
		zap.String("news_provider", batch.Provider),
		zap.String("overall", record.OverallSentiment.String()),
		zap.Int("headlines", len(headlines)),
		zap.Int("positive", breakdown[models.SentimentPositive]),
		zap.Int("negative", breakdown[models.SentimentNegative]),
		zap.Int("neutral", breakdown[models.SentimentNeutral]),
		zap.Int("degraded", degraded),
		zap.Bool("synthetic", res.Synthetic),
		zap.Bool("persisted", res.Persisted),
	)

	return res, nil
}

// classifyAll labels articles concurrently and keeps their order. A failed or
// invalid classification becomes neutral. If ctx ends first the outstanding
// calls are abandoned and ctx's error is returned.
func (c *Coordinator) classifyAll(ctx context.Context, symbol string, articles []models.Article) ([]models.Headline, int, error) {
	headlines := make([]models.Headline, len(articles))
	var degraded atomic.Int32

	var g errgroup.Group
	g.SetLimit(c.maxConcurrency)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, a := range articles {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				headlines[i] = c.classifyOne(ctx, symbol, a, &degraded)
				return nil
			})
		}
		_ = g.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn("resolve deadline reached during classification", zap.String("symbol", symbol))
		return nil, 0, ctx.Err()
	}

	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	return headlines, int(degraded.Load()), nil
}

func (c *Coordinator) classifyOne(ctx context.Context, symbol string, a models.Article, degraded *atomic.Int32) models.Headline {
	h := models.Headline{Title: a.Title, Synthetic: a.Synthetic}

	res, err := c.classifier.Classify(ctx, a.Title)
	switch {
	case err != nil:
		logger.Warn("classification failed, using neutral",
			zap.String("symbol", symbol),
			zap.String("headline", a.Title),
			zap.Error(err),
		)
		h.Sentiment = models.SentimentNeutral
		degraded.Add(1)
	case !res.Label.IsValid():
		logger.Warn("classifier returned invalid label, using neutral",
			zap.String("symbol", symbol),
			zap.String("label", string(res.Label)),
		)
		h.Sentiment = models.SentimentNeutral
		degraded.Add(1)
	default:
		h.Sentiment = res.Label
		if res.Degraded {
			degraded.Add(1)
		}
	}

	return h
}

func (c *Coordinator) record(symbol string, res *Resolution, err error, elapsed time.Duration) {
	if len(c.recorders) == 0 {
		return
	}

	m := &metrics.ResolutionMetric{
		Timestamp: c.clock().UTC(),
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Outcome:   outcome(res, err),
		Duration:  elapsed,
	}

	if res != nil && res.Record != nil {
		m.Symbol = res.Record.Symbol
		m.HeadlineCount = len(res.Record.Headlines)
		m.DegradedCount = res.Degraded
		m.Synthetic = res.Synthetic
		m.OverallSentiment = res.Record.OverallSentiment.String()
		m.Persisted = res.Persisted
	}

	for _, r := range c.recorders {
		r.RecordResolution(m)
	}
}
