package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/loanwise/platform/internal/bootstrap"
	"github.com/loanwise/platform/internal/config"
	"github.com/loanwise/platform/internal/domain"
	"github.com/loanwise/platform/internal/domain/predictions"
	"github.com/loanwise/platform/internal/domain/users"
	"github.com/loanwise/platform/internal/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "seed",
		Usage: "create a user and sample loan predictions in the configured database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "username",
				Aliases: []string{"u"},
				Usage:   "account to create or reuse",
				Value:   "demo",
			},
			&cli.StringFlag{
				Name:    "password",
				Aliases: []string{"p"},
				Usage:   "password for the account",
				Value:   "demo-password-1",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "email for a newly created account",
			},
			&cli.BoolFlag{
				Name:  "admin",
				Usage: "grant the account admin access",
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "number of sample predictions to create",
				Value:   8,
			},
		},
		Action: seed,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Error("seed failed", "err", err)
		os.Exit(1)
	}
}

func seed(ctx context.Context, cmd *cli.Command) (err error) {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DataBackend == config.BackendMemory {
		return errors.New("seed command requires DATA_BACKEND=postgres or DATA_BACKEND=sqlite")
	}

	logr := logger.New(cfg.Env)

	repos, closeRepos, err := bootstrap.OpenRepositories(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeRepos(); cerr != nil {
			log.Error("error closing database", "err", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	model, err := bootstrap.LoadClassifier(cfg, logr)
	if err != nil {
		return err
	}

	container := domain.New(domain.Options{
		UserRepo:       repos.Users,
		PredictionRepo: repos.Predictions,
		Classifier:     model,
		PageSize:       cfg.HistoryPageSize,
	})

	user, err := ensureUser(ctx, container.Users, cmd.String("username"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	if cmd.Bool("admin") && !user.IsAdmin {
		promoted, err := container.Users.Promote(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("promote %s: %w", user.Username, err)
		}
		user = promoted
		log.Info("granted admin access", "username", user.Username)
	}

	count := int(cmd.Int("count"))
	for i := 0; i < count; i++ {
		p, err := container.Predictions.Predict(ctx, user.ID, sampleApplicant(i))
		if err != nil {
			return fmt.Errorf("sample prediction %d: %w", i, err)
		}
		log.Info("seeded prediction", "prediction_id", p.PredictionID, "result", p.Result)
	}

	log.Info("seed complete", "username", user.Username, "predictions", count)
	return nil
}

// ensureUser registers username, or signs in when the account already exists.
func ensureUser(ctx context.Context, svc users.Service, username, email, password string) (users.User, error) {
	user, err := svc.Register(ctx, users.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		PasswordConfirm: password,
	})
	switch {
	case err == nil:
		log.Info("created user", "username", user.Username)
		return user, nil
	case errors.Is(err, users.ErrUsernameExists):
		user, err = svc.Authenticate(ctx, username, password)
		if err != nil {
			return users.User{}, fmt.Errorf("existing user %s: %w", username, err)
		}
		log.Info("reusing user", "username", user.Username)
		return user, nil
	default:
		return users.User{}, fmt.Errorf("register %s: %w", username, err)
	}
}

var sampleProfiles = []predictions.Applicant{
	{MaritalStatus: "married", HouseOwnership: "owned", CarOwnership: "yes", Profession: "Software_Developer", City: "Pune", State: "Maharashtra", CurrentJobYears: 10, CurrentHouseYears: 12, Income: 1_000_000, Age: 40},
	{MaritalStatus: "single", HouseOwnership: "rented", CarOwnership: "no", Profession: "Teacher", City: "Chennai", State: "Tamil_Nadu", CurrentJobYears: 1, CurrentHouseYears: 10, Income: 90_000, Age: 23},
	{MaritalStatus: "single", HouseOwnership: "norent_noown", CarOwnership: "no", Profession: "Graphic_Designer", City: "Kolkata", State: "West_Bengal", CurrentJobYears: 3, CurrentHouseYears: 11, Income: 450_000, Age: 31},
	{MaritalStatus: "married", HouseOwnership: "rented", CarOwnership: "yes", Profession: "Surgeon", City: "Bangalore", State: "Karnataka", CurrentJobYears: 7, CurrentHouseYears: 13, Income: 2_400_000, Age: 52},
	{MaritalStatus: "married", HouseOwnership: "owned", CarOwnership: "no", Profession: "Lawyer", City: "Hyderabad", State: "Telangana", CurrentJobYears: 12, CurrentHouseYears: 14, Income: 700_000, Age: 66},
}

// sampleApplicant cycles through sampleProfiles, nudging income so repeated
// rounds are not identical.
func sampleApplicant(i int) predictions.Applicant {
	a := sampleProfiles[i%len(sampleProfiles)]
	a.Income += int64(i/len(sampleProfiles)) * 25_000
	return a
}
