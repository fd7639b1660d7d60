package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loanwise/platform/internal/database"
	"github.com/loanwise/platform/internal/domain/predictions"
)

// PredictionRepository persists prediction history in SQL.
type PredictionRepository struct {
	db *sql.DB
	q  queries
}

// NewPredictionRepository constructs a repository using a pooled DB handle.
func NewPredictionRepository(db *sql.DB, dialect database.Dialect) *PredictionRepository {
	return &PredictionRepository{db: db, q: queries{dialect: dialect}}
}

const predictionColumns = `
    id, prediction_id, user_id, marital_status, house_ownership, car_ownership,
    profession, city, state, current_job_years, current_house_years, income, age,
    result, created_at`

// Save inserts a new prediction.
func (r *PredictionRepository) Save(ctx context.Context, p predictions.Prediction) (predictions.Prediction, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Millisecond)

	insert := `INSERT INTO predictions (` + predictionColumns + `,
        profession_key, city_key, state_key)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	a := p.Applicant
	if _, err := r.db.ExecContext(ctx, r.q.bind(insert),
		p.ID,
		p.PredictionID,
		p.UserID,
		a.MaritalStatus,
		a.HouseOwnership,
		a.CarOwnership,
		a.Profession,
		a.City,
		a.State,
		a.CurrentJobYears,
		a.CurrentHouseYears,
		a.Income,
		a.Age,
		string(p.Result),
		toMillis(p.CreatedAt),
		foldKey(a.Profession),
		foldKey(a.City),
		foldKey(a.State),
	); err != nil {
		if isUniqueViolation(err) {
			return predictions.Prediction{}, predictions.ErrDuplicate
		}
		return predictions.Prediction{}, fmt.Errorf("insert prediction: %w", err)
	}
	return p, nil
}

// FindByPredictionID loads a prediction by its public id.
func (r *PredictionRepository) FindByPredictionID(ctx context.Context, predictionID string) (predictions.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE prediction_id = ?`
	p, err := scanPrediction(r.db.QueryRowContext(ctx, r.q.bind(query), predictionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return predictions.Prediction{}, predictions.ErrNotFound
		}
		return predictions.Prediction{}, fmt.Errorf("find prediction: %w", err)
	}
	return p, nil
}

// List returns a newest-first window of predictions matching filter. seq
// orders rows saved within the same millisecond.
func (r *PredictionRepository) List(ctx context.Context, filter predictions.Filter, offset, limit int) ([]predictions.Prediction, error) {
	where, args := whereClause(filter)
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + predictionColumns + ` FROM predictions` + where +
		` ORDER BY created_at DESC, seq DESC`
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	} else if offset > 0 {
		// LIMIT -1 is sqlite for "no limit"; postgres accepts LIMIT ALL.
		if r.q.dialect == database.DialectPostgres {
			query += ` LIMIT ALL OFFSET ?`
		} else {
			query += ` LIMIT -1 OFFSET ?`
		}
		args = append(args, offset)
	}

	rows, err := r.db.QueryContext(ctx, r.q.bind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	defer rows.Close()

	result := []predictions.Prediction{}
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return result, nil
}

// Count returns how many predictions match filter.
func (r *PredictionRepository) Count(ctx context.Context, filter predictions.Filter) (int, error) {
	where, args := whereClause(filter)
	var n int
	if err := r.db.QueryRowContext(ctx, r.q.bind(`SELECT COUNT(*) FROM predictions`+where), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

// Stats aggregates counts and income figures for a user.
func (r *PredictionRepository) Stats(ctx context.Context, userID string) (predictions.Stats, error) {
	const query = `
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
               COALESCE(SUM(CASE WHEN result = ? THEN 1 ELSE 0 END), 0),
               COALESCE(CAST(AVG(income) AS DOUBLE PRECISION), 0),
               COALESCE(MAX(income), 0),
               COALESCE(MIN(income), 0)
          FROM predictions
         WHERE user_id = ?
    `
	var s predictions.Stats
	err := r.db.QueryRowContext(ctx, r.q.bind(query),
		string(predictions.ResultEligible),
		string(predictions.ResultNotEligible),
		userID,
	).Scan(&s.Total, &s.Eligible, &s.NotEligible, &s.AverageIncome, &s.MaxIncome, &s.MinIncome)
	if err != nil {
		return predictions.Stats{}, fmt.Errorf("prediction stats: %w", err)
	}
	return s, nil
}

// Facets returns the distinct professions and cities of a user's history.
func (r *PredictionRepository) Facets(ctx context.Context, userID string) (predictions.Facets, error) {
	professions, err := r.distinct(ctx, "profession", userID)
	if err != nil {
		return predictions.Facets{}, err
	}
	cities, err := r.distinct(ctx, "city", userID)
	if err != nil {
		return predictions.Facets{}, err
	}
	return predictions.Facets{Professions: professions, Cities: cities}, nil
}

// distinct is only called with fixed column names.
func (r *PredictionRepository) distinct(ctx context.Context, column, userID string) ([]string, error) {
	query := `SELECT DISTINCT ` + column + ` FROM predictions WHERE user_id = ? ORDER BY ` + column
	rows, err := r.db.QueryContext(ctx, r.q.bind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", column, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", column, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("distinct %s rows: %w", column, err)
	}
	return out, nil
}

func whereClause(f predictions.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Result != "" {
		conds = append(conds, "result = ?")
		args = append(args, string(f.Result))
	}
	if f.Profession != "" {
		conds = append(conds, `profession_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.Profession))
	}
	if f.City != "" {
		conds = append(conds, `city_key LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(f.City))
	}
	if f.Query != "" {
		pattern := likePattern(f.Query)
		conds = append(conds, `(profession_key LIKE ? ESCAPE '\' OR city_key LIKE ? ESCAPE '\' OR state_key LIKE ? ESCAPE '\'
            OR user_id IN (SELECT id FROM users WHERE username_key LIKE ? ESCAPE '\'))`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrediction(row rowScanner) (predictions.Prediction, error) {
	var (
		p       predictions.Prediction
		result  string
		created int64
	)
	a := &p.Applicant
	if err := row.Scan(
		&p.ID,
		&p.PredictionID,
		&p.UserID,
		&a.MaritalStatus,
		&a.HouseOwnership,
		&a.CarOwnership,
		&a.Profession,
		&a.City,
		&a.State,
		&a.CurrentJobYears,
		&a.CurrentHouseYears,
		&a.Income,
		&a.Age,
		&result,
		&created,
	); err != nil {
		return predictions.Prediction{}, err
	}
	p.Result = predictions.Result(result)
	p.CreatedAt = fromMillis(created)
	return p, nil
}

var _ predictions.Repository = (*PredictionRepository)(nil)
