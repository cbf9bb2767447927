package testdb

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/selivandex/sentiment-proxy/internal/adapters/database"
)

// Setup connects to TEST_DATABASE_URL, applies migrations and empties
// news_sentiment before and after the test. Skips when the variable is unset.
func Setup(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	conn, err := sqlx.ConnectContext(context.Background(), "postgres", dsn)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	db := database.Wrap(conn)

	if err := db.RunMigrations(MigrationsPath()); err != nil {
		_ = db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	Truncate(t, db)

	t.Cleanup(func() {
		Truncate(t, db)
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close database: %v", err)
		}
	})

	return db
}

// Truncate removes every record
func Truncate(t *testing.T, db *database.DB) {
	t.Helper()

	if _, err := db.DB().Exec(`TRUNCATE news_sentiment RESTART IDENTITY`); err != nil {
		t.Fatalf("failed to truncate news_sentiment: %v", err)
	}
}

// MigrationsPath returns absolute path of the repository migrations directory
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}
