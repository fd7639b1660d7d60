package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotImplemented     = errors.New("users repository: not implemented")
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already in use")
	ErrEmailExists        = errors.New("email already in use")
	ErrInvalidInput       = errors.New("invalid input")
)

const (
	maxUsernameLength = 150
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordBytes = 72
)

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)

// User represents an authenticated user record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Repository defines persistence behaviour for users.
type Repository interface {
	FindByID(ctx context.Context, id string) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	Save(ctx context.Context, user User) (User, error)
}

// NullRepository can be used when no storage is configured.
type NullRepository struct{}

func (NullRepository) FindByID(context.Context, string) (User, error)       { return User{}, ErrNotImplemented }
func (NullRepository) FindByUsername(context.Context, string) (User, error) { return User{}, ErrNotImplemented }
func (NullRepository) FindByEmail(context.Context, string) (User, error)    { return User{}, ErrNotImplemented }
func (NullRepository) Save(context.Context, User) (User, error)             { return User{}, ErrNotImplemented }

// Service exposes user registration and authentication logic.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (User, error)
	Authenticate(ctx context.Context, username, password string) (User, error)
	Get(ctx context.Context, id string) (User, error)
	Promote(ctx context.Context, id string) (User, error)
}

// RegisterInput captures data required to create an account.
type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	PasswordConfirm string
}

// Option tunes a Service.
type Option func(*service)

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *service) { s.cost = cost }
}

type service struct {
	repo Repository
	cost int
}

// NewService constructs a user service.
func NewService(repo Repository, opts ...Option) Service {
	s := &service{repo: repo, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Register(ctx context.Context, input RegisterInput) (User, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(strings.ToLower(input.Email))

	if err := validateRegistration(username, email, input.Password, input.PasswordConfirm); err != nil {
		return User{}, err
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameExists
	} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotImplemented) {
		return User{}, err
	}

	if email != "" {
		if _, err := s.repo.FindByEmail(ctx, email); err == nil {
			return User{}, ErrEmailExists
		} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotImplemented) {
			return User{}, err
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.repo.Save(ctx, User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
}

func (s *service) Authenticate(ctx context.Context, username, password string) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return User{}, ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) Promote(ctx context.Context, id string) (User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if user.IsAdmin {
		return user, nil
	}
	user.IsAdmin = true
	return s.repo.Save(ctx, user)
}

func validateRegistration(username, email, password, confirm string) error {
	switch {
	case username == "":
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	case len([]rune(username)) > maxUsernameLength:
		return fmt.Errorf("%w: username must be at most %d characters", ErrInvalidInput, maxUsernameLength)
	case !usernamePattern.MatchString(username):
		return fmt.Errorf("%w: username may contain only letters, digits and @/./+/-/_", ErrInvalidInput)
	}

	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: email is not valid", ErrInvalidInput)
		}
	}

	switch {
	case len(password) < minPasswordLength:
		return fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLength)
	case len(password) > maxPasswordBytes:
		return fmt.Errorf("%w: password must be at most %d bytes", ErrInvalidInput, maxPasswordBytes)
	case isNumeric(password):
		return fmt.Errorf("%w: password cannot be entirely numeric", ErrInvalidInput)
	case password != confirm:
		return fmt.Errorf("%w: passwords do not match", ErrInvalidInput)
	}
	return nil
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
