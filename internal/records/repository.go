package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/selivandex/sentiment-proxy/pkg/models"
)

// Repository is the PostgreSQL store backed by table news_sentiment
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates new sentiment record repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type recordRow struct {
	ID               int64          `db:"id"`
	Symbol           string         `db:"symbol"`
	Timestamp        time.Time      `db:"timestamp"`
	Headlines        []byte         `db:"headlines"`
	OverallSentiment sql.NullString `db:"overall_sentiment"`
}

func (r recordRow) toModel() (models.SentimentRecord, error) {
	rec := models.SentimentRecord{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Timestamp: r.Timestamp.UTC(),
	}

	if r.OverallSentiment.Valid {
		rec.OverallSentiment = models.Sentiment(r.OverallSentiment.String)
	}

	if len(r.Headlines) > 0 {
		if err := json.Unmarshal(r.Headlines, &rec.Headlines); err != nil {
			return rec, fmt.Errorf("failed to decode headlines of record %d: %w", r.ID, err)
		}
	}
	if rec.Headlines == nil {
		rec.Headlines = []models.Headline{}
	}

	return rec, nil
}

const selectColumns = `SELECT id, symbol, timestamp, headlines, overall_sentiment FROM news_sentiment`

// FindRecent returns newest record for symbol not older than since
func (r *Repository) FindRecent(ctx context.Context, symbol string, since time.Time) (*models.SentimentRecord, error) {
	var row recordRow

	err := r.db.GetContext(ctx, &row, selectColumns+`
		WHERE symbol = $1 AND timestamp >= $2
		ORDER BY timestamp DESC, id DESC
		LIMIT 1
	`, symbol, since)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recent record: %w", err)
	}

	rec, err := row.toModel()
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// Append inserts record and sets its ID
func (r *Repository) Append(ctx context.Context, record *models.SentimentRecord) error {
	headlines := record.Headlines
	if headlines == nil {
		headlines = []models.Headline{}
	}

	headlinesJSON, err := json.Marshal(headlines)
	if err != nil {
		return fmt.Errorf("failed to encode headlines: %w", err)
	}

	var overall sql.NullString
	if record.OverallSentiment != "" {
		overall = sql.NullString{String: string(record.OverallSentiment), Valid: true}
	}

	err = r.db.QueryRowxContext(ctx, `
		INSERT INTO news_sentiment (symbol, timestamp, headlines, overall_sentiment)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, record.Symbol, record.Timestamp, headlinesJSON, overall).Scan(&record.ID)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// FindHistory returns records for symbol since the given time, newest first
func (r *Repository) FindHistory(ctx context.Context, symbol string, since time.Time) ([]models.SentimentRecord, error) {
	var rows []recordRow

	err := r.db.SelectContext(ctx, &rows, selectColumns+`
		WHERE symbol = $1 AND timestamp >= $2
		ORDER BY timestamp DESC, id DESC
	`, symbol, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}

	return toModels(rows)
}

// FindBySymbol returns all records for symbol, newest first
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]models.SentimentRecord, error) {
	var rows []recordRow
	var err error

	query := selectColumns + `
		WHERE symbol = $1
		ORDER BY timestamp DESC, id DESC`

	if limit > 0 {
		err = r.db.SelectContext(ctx, &rows, query+` LIMIT $2`, symbol, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, query, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query records by symbol: %w", err)
	}

	return toModels(rows)
}

// ListDistinctSymbols returns stored symbols sorted ascending
func (r *Repository) ListDistinctSymbols(ctx context.Context) ([]string, error) {
	symbols := make([]string, 0)

	if err := r.db.SelectContext(ctx, &symbols, `
		SELECT DISTINCT symbol FROM news_sentiment ORDER BY symbol
	`); err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	return symbols, nil
}

// PurgeOlderThan removes records created before cutoff
func (r *Repository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM news_sentiment
		WHERE timestamp < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old records: %w", err)
	}

	deleted, _ := result.RowsAffected()
	return deleted, nil
}

func toModels(rows []recordRow) ([]models.SentimentRecord, error) {
	out := make([]models.SentimentRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}
