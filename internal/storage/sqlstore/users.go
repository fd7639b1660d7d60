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
	"github.com/loanwise/platform/internal/domain/users"
)

// UserRepository persists users in SQL.
type UserRepository struct {
	db *sql.DB
	q  queries
}

// NewUserRepository constructs a SQL-backed user repository.
func NewUserRepository(db *sql.DB, dialect database.Dialect) *UserRepository {
	return &UserRepository{db: db, q: queries{dialect: dialect}}
}

const userColumns = `id, username, email, password_hash, is_admin, created_at, updated_at`

func (r *UserRepository) FindByID(ctx context.Context, id string) (users.User, error) {
	return r.findOne(ctx, "find user", `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (users.User, error) {
	return r.findOne(ctx, "find user by username", `SELECT `+userColumns+` FROM users WHERE username_key = ?`, foldKey(username))
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (users.User, error) {
	if email == "" {
		return users.User{}, users.ErrNotFound
	}
	return r.findOne(ctx, "find user by email", `SELECT `+userColumns+` FROM users WHERE email <> '' AND email = ?`, foldKey(email))
}

func (r *UserRepository) findOne(ctx context.Context, op, query string, arg any) (users.User, error) {
	var (
		u                users.User
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx, r.q.bind(query), arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.IsAdmin, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return users.User{}, users.ErrNotFound
		}
		return users.User{}, fmt.Errorf("%s: %w", op, err)
	}
	u.CreatedAt = fromMillis(created)
	u.UpdatedAt = fromMillis(updated)
	return u, nil
}

func (r *UserRepository) Save(ctx context.Context, user users.User) (users.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	user.Email = foldKey(user.Email)

	if user.ID == "" {
		user.ID = uuid.NewString()
		const insert = `
            INSERT INTO users (id, username, username_key, email, password_hash, is_admin, created_at, updated_at)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        `
		if _, err := r.db.ExecContext(ctx, r.q.bind(insert),
			user.ID,
			user.Username,
			foldKey(user.Username),
			user.Email,
			user.PasswordHash,
			user.IsAdmin,
			toMillis(now),
			toMillis(now),
		); err != nil {
			return users.User{}, mapUserError("insert user", err)
		}
		user.CreatedAt = now
		user.UpdatedAt = now
		return user, nil
	}

	const update = `
        UPDATE users
           SET username = ?,
               username_key = ?,
               email = ?,
               password_hash = ?,
               is_admin = ?,
               updated_at = ?
         WHERE id = ?
    `
	res, err := r.db.ExecContext(ctx, r.q.bind(update),
		user.Username,
		foldKey(user.Username),
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		toMillis(now),
		user.ID,
	)
	if err != nil {
		return users.User{}, mapUserError("update user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return users.User{}, users.ErrNotFound
	}

	stored, err := r.FindByID(ctx, user.ID)
	if err != nil {
		return users.User{}, err
	}
	return stored, nil
}

func mapUserError(op string, err error) error {
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "email") {
			return users.ErrEmailExists
		}
		return users.ErrUsernameExists
	}
	return fmt.Errorf("%s: %w", op, err)
}

var _ users.Repository = (*UserRepository)(nil)
