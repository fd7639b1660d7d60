package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/loanwise/platform/internal/database"
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/domain/users"
	"github.com/loanwise/platform/internal/storage/sqlstore"
)

func setupSQLite(t *testing.T) *database.DB {
	t.Helper()

	dsn, err := database.SQLiteDSN(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	db, err := database.Connect(context.Background(), database.Options{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.RunMigrations(context.Background(), database.NewEmbeddedMigrator(db, nil)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestSQLiteUserRepository(t *testing.T) {
	testUserRepository(t, setupSQLite(t))
}

func TestSQLitePredictionRepository(t *testing.T) {
	testPredictionRepository(t, setupSQLite(t))
}

func testUserRepository(t *testing.T, db *database.DB) {
	ctx := context.Background()
	repo := sqlstore.NewUserRepository(db.DB, db.Dialect)

	created, err := repo.Save(ctx, users.User{Username: "Ngozi", Email: "Ngozi@Example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("save user: %v", err)
	}
	if created.ID == "" || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	byName, err := repo.FindByUsername(ctx, "ngozi")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if byName.ID != created.ID || byName.Email != "ngozi@example.com" {
		t.Fatalf("unexpected user %+v", byName)
	}
	if _, err := repo.FindByEmail(ctx, "NGOZI@example.com"); err != nil {
		t.Fatalf("find by email: %v", err)
	}
	if _, err := repo.FindByID(ctx, "missing"); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := repo.Save(ctx, users.User{Username: "NGOZI", PasswordHash: "x"}); !errors.Is(err, users.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
	if _, err := repo.Save(ctx, users.User{Username: "other", Email: "ngozi@example.com", PasswordHash: "x"}); !errors.Is(err, users.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}
	// Empty emails never collide.
	if _, err := repo.Save(ctx, users.User{Username: "a", PasswordHash: "x"}); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if _, err := repo.Save(ctx, users.User{Username: "b", PasswordHash: "x"}); err != nil {
		t.Fatalf("save b: %v", err)
	}

	created.IsAdmin = true
	updated, err := repo.Save(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsAdmin || !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("unexpected updated user %+v", updated)
	}

	if _, err := repo.Save(ctx, users.User{ID: "ghost", Username: "ghost", PasswordHash: "x"}); !errors.Is(err, users.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}

	// Non-ASCII names fold the same way as in memory.
	emile, err := repo.Save(ctx, users.User{Username: "Émile", Email: "ÉMILE@example.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("save Émile: %v", err)
	}
	if found, err := repo.FindByUsername(ctx, "émile"); err != nil || found.ID != emile.ID {
		t.Fatalf("find Émile by username: %+v, %v", found, err)
	}
	if found, err := repo.FindByEmail(ctx, "émile@EXAMPLE.com"); err != nil || found.ID != emile.ID {
		t.Fatalf("find Émile by email: %+v, %v", found, err)
	}
	if _, err := repo.Save(ctx, users.User{Username: "ÉMILE", PasswordHash: "x"}); !errors.Is(err, users.ErrUsernameExists) {
		t.Fatalf("expected ErrUsernameExists, got %v", err)
	}
}

func testPredictionRepository(t *testing.T, db *database.DB) {
	ctx := context.Background()
	userRepo := sqlstore.NewUserRepository(db.DB, db.Dialect)
	repo := sqlstore.NewPredictionRepository(db.DB, db.Dialect)

	owner, err := userRepo.Save(ctx, users.User{Username: "owner", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("save owner: %v", err)
	}
	other, err := userRepo.Save(ctx, users.User{Username: "other", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("save other: %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	seed := []predictions.Prediction{
		{PredictionID: "p1", UserID: owner.ID, Result: predictions.ResultEligible, CreatedAt: base,
			Applicant: applicant("Software_Developer", "Pune", "Maharashtra", 900000)},
		{PredictionID: "p2", UserID: owner.ID, Result: predictions.ResultNotEligible, CreatedAt: base.Add(time.Hour),
			Applicant: applicant("Civil_engineer", "Chennai", "Tamil_Nadu", 300000)},
		{PredictionID: "p3", UserID: owner.ID, Result: predictions.ResultEligible, CreatedAt: base.Add(2 * time.Hour),
			Applicant: applicant("Software_Developer", "Bangalore", "Karnataka", 1200000)},
		{PredictionID: "p4", UserID: other.ID, Result: predictions.ResultEligible, CreatedAt: base.Add(3 * time.Hour),
			Applicant: applicant("Lawyer", "Delhi_city", "Delhi", 50_000)},
	}
	for _, p := range seed {
		if _, err := repo.Save(ctx, p); err != nil {
			t.Fatalf("save %s: %v", p.PredictionID, err)
		}
	}

	if _, err := repo.Save(ctx, seed[0]); !errors.Is(err, predictions.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := repo.FindByPredictionID(ctx, "p2")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := seed[1]
	want.ID = got.ID
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
	if _, err := repo.FindByPredictionID(ctx, "nope"); !errors.Is(err, predictions.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := repo.List(ctx, predictions.Filter{UserID: owner.ID}, 0, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"p3", "p2", "p1"}, ids(list)); diff != "" {
		t.Fatalf("expected newest first (-want +got):\n%s", diff)
	}

	page, err := repo.List(ctx, predictions.Filter{UserID: owner.ID}, 1, 1)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if diff := cmp.Diff([]string{"p2"}, ids(page)); diff != "" {
		t.Fatalf("page mismatch:\n%s", diff)
	}

	filtered, err := repo.List(ctx, predictions.Filter{UserID: owner.ID, Profession: "software", Result: predictions.ResultEligible}, 0, 0)
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if diff := cmp.Diff([]string{"p3", "p1"}, ids(filtered)); diff != "" {
		t.Fatalf("filter mismatch:\n%s", diff)
	}

	n, err := repo.Count(ctx, predictions.Filter{City: "CHEN"})
	if err != nil || n != 1 {
		t.Fatalf("count city: %d, %v", n, err)
	}
	n, err = repo.Count(ctx, predictions.Filter{Query: "delhi"})
	if err != nil || n != 1 {
		t.Fatalf("count query: %d, %v", n, err)
	}
	n, err = repo.Count(ctx, predictions.Filter{Profession: "_"})
	if err != nil || n != 3 {
		t.Fatalf("underscore must match literally: %d, %v", n, err)
	}

	stats, err := repo.Stats(ctx, owner.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	wantStats := predictions.Stats{Total: 3, Eligible: 2, NotEligible: 1, AverageIncome: 800000, MaxIncome: 1200000, MinIncome: 300000}
	if diff := cmp.Diff(wantStats, stats); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}

	empty, err := repo.Stats(ctx, "nobody")
	if err != nil {
		t.Fatalf("empty stats: %v", err)
	}
	if diff := cmp.Diff(predictions.Stats{}, empty); diff != "" {
		t.Fatalf("expected zero stats:\n%s", diff)
	}

	facets, err := repo.Facets(ctx, owner.ID)
	if err != nil {
		t.Fatalf("facets: %v", err)
	}
	wantFacets := predictions.Facets{
		Professions: []string{"Civil_engineer", "Software_Developer"},
		Cities:      []string{"Bangalore", "Chennai", "Pune"},
	}
	if diff := cmp.Diff(wantFacets, facets); diff != "" {
		t.Fatalf("facets mismatch (-want +got):\n%s", diff)
	}

	n, err = repo.Count(ctx, predictions.Filter{Query: "OTHER"})
	if err != nil || n != 1 {
		t.Fatalf("query should match owner username: %d, %v", n, err)
	}
	byOwner, err := repo.List(ctx, predictions.Filter{Query: "own"}, 0, 0)
	if err != nil {
		t.Fatalf("list by username: %v", err)
	}
	if diff := cmp.Diff([]string{"p3", "p2", "p1"}, ids(byOwner)); diff != "" {
		t.Fatalf("username query mismatch:\n%s", diff)
	}

	if _, err := repo.Save(ctx, predictions.Prediction{PredictionID: "p5", UserID: other.ID, Result: predictions.ResultEligible,
		CreatedAt: base, Applicant: applicant("Ärzt", "Zürich", "Zürich", 600_000)}); err != nil {
		t.Fatalf("save p5: %v", err)
	}
	for _, f := range []predictions.Filter{
		{Profession: "Ärzt"},
		{Profession: "ärzt"},
		{City: "ZÜR"},
		{Query: "ÄRZ"},
	} {
		n, err := repo.Count(ctx, f)
		if err != nil || n != 1 {
			t.Fatalf("non-ASCII filter %+v: %d, %v", f, n, err)
		}
	}

	burst, err := userRepo.Save(ctx, users.User{Username: "burst", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("save burst: %v", err)
	}
	same := base.Add(5 * time.Hour)
	var wantOrder []string
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("b%d", i)
		if _, err := repo.Save(ctx, predictions.Prediction{PredictionID: id, UserID: burst.ID, Result: predictions.ResultEligible,
			CreatedAt: same, Applicant: applicant("Teacher", "Pune", "Maharashtra", 100_000)}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
		wantOrder = append([]string{id}, wantOrder...)
	}
	sameTime, err := repo.List(ctx, predictions.Filter{UserID: burst.ID}, 0, 0)
	if err != nil {
		t.Fatalf("list burst: %v", err)
	}
	if diff := cmp.Diff(wantOrder, ids(sameTime)); diff != "" {
		t.Fatalf("equal timestamps must list newest insert first (-want +got):\n%s", diff)
	}
}

func applicant(profession, city, state string, income int64) predictions.Applicant {
	return predictions.Applicant{
		MaritalStatus:     "single",
		HouseOwnership:    "rented",
		CarOwnership:      "no",
		Profession:        profession,
		City:              city,
		State:             state,
		CurrentJobYears:   4,
		CurrentHouseYears: 11,
		Income:            income,
		Age:               35,
	}
}

func ids(list []predictions.Prediction) []string {
	out := make([]string, 0, len(list))
	for _, p := range list {
		out = append(out, p.PredictionID)
	}
	return out
}
