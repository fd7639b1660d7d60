package domain

import (
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/domain/users"
)

// Container wires domain services together.
type Container struct {
	Users       users.Service
	Predictions predictions.Service
}

// Options configures the domain container.
type Options struct {
	UserRepo       users.Repository
	PredictionRepo predictions.Repository
	Classifier     predictions.Classifier
	PageSize       int
	Recorder       predictions.Recorder
	// HashCost overrides the bcrypt cost when positive.
	HashCost int
}

// New constructs a domain container with provided repositories.
func New(opts Options) Container {
	userRepo := opts.UserRepo
	if userRepo == nil {
		userRepo = users.NullRepository{}
	}

	predictionRepo := opts.PredictionRepo
	if predictionRepo == nil {
		predictionRepo = predictions.NullRepository{}
	}

	var userOpts []users.Option
	if opts.HashCost > 0 {
		userOpts = append(userOpts, users.WithHashCost(opts.HashCost))
	}

	return Container{
		Users: users.NewService(userRepo, userOpts...),
		Predictions: predictions.NewService(predictionRepo, opts.Classifier, predictions.Options{
			PageSize: opts.PageSize,
			Recorder: opts.Recorder,
		}),
	}
}
