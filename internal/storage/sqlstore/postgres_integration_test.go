//go:build integration

package sqlstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/loanwise/platform/internal/database"
)

func setupPostgres(t *testing.T) *database.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping postgres integration tests")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, database.Options{Driver: "pgx", DSN: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(ctx, database.NewEmbeddedMigrator(db, nil)); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, stmt := range []string{"TRUNCATE predictions CASCADE", "TRUNCATE users CASCADE"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("cleanup %s: %v", stmt, err)
		}
	}
	return db
}

func TestPostgresUserRepositoryIntegration(t *testing.T) {
	testUserRepository(t, setupPostgres(t))
}

func TestPostgresPredictionRepositoryIntegration(t *testing.T) {
	testPredictionRepository(t, setupPostgres(t))
}
