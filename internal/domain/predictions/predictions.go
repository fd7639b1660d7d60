package predictions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/loanwise/platform/internal/classifier"
)

var (
	ErrNotImplemented = errors.New("predictions repository: not implemented")
	ErrNotFound       = errors.New("prediction not found")
	ErrDuplicate      = errors.New("prediction id already exists")
	ErrInvalidInput   = errors.New("invalid input")
)

// Result is the classifier's verdict.
type Result string

const (
	ResultEligible    Result = "eligible"
	ResultNotEligible Result = "not eligible"
)

// Valid reports whether r is one of the known results.
func (r Result) Valid() bool {
	return r == ResultEligible || r == ResultNotEligible
}

// Applicant holds the attributes submitted for a prediction. JSON keys match
// the form fields clients already send.
type Applicant struct {
	MaritalStatus     string `json:"marital"`
	HouseOwnership    string `json:"house_O"`
	CarOwnership      string `json:"car_O"`
	Profession        string `json:"profession"`
	City              string `json:"city"`
	State             string `json:"state"`
	CurrentJobYears   int    `json:"current_jy"`
	CurrentHouseYears int    `json:"current_hy"`
	Income            int64  `json:"income"`
	Age               int    `json:"age"`
}

// Prediction is a stored, per-user prediction record.
type Prediction struct {
	ID           string    `json:"-"`
	PredictionID string    `json:"prediction_id"`
	UserID       string    `json:"user_id"`
	Applicant    Applicant `json:"prediction_data"`
	Result       Result    `json:"result"`
	CreatedAt    time.Time `json:"timestamp"`
}

// IncomeCategory buckets the applicant's income.
func (p Prediction) IncomeCategory() string { return IncomeCategory(p.Applicant.Income) }

// AgeCategory buckets the applicant's age.
func (p Prediction) AgeCategory() string { return AgeCategory(p.Applicant.Age) }

// Filter narrows List and Count. Zero fields match everything; an empty
// UserID spans all users.
type Filter struct {
	UserID     string
	Result     Result
	Profession string // case-insensitive substring
	City       string // case-insensitive substring
	Query      string // case-insensitive substring of profession, city, state or owner username
}

// Stats aggregates a user's history.
type Stats struct {
	Total         int
	Eligible      int
	NotEligible   int
	AverageIncome float64
	MaxIncome     int64
	MinIncome     int64
}

// Facets are the distinct values offered as history filters, sorted.
type Facets struct {
	Professions []string
	Cities      []string
}

// Repository abstracts prediction persistence. List returns newest first.
type Repository interface {
	Save(ctx context.Context, p Prediction) (Prediction, error)
	FindByPredictionID(ctx context.Context, predictionID string) (Prediction, error)
	List(ctx context.Context, filter Filter, offset, limit int) ([]Prediction, error)
	Count(ctx context.Context, filter Filter) (int, error)
	Stats(ctx context.Context, userID string) (Stats, error)
	Facets(ctx context.Context, userID string) (Facets, error)
}

// NullRepository returns ErrNotImplemented for all operations.
type NullRepository struct{}

func (NullRepository) Save(context.Context, Prediction) (Prediction, error) {
	return Prediction{}, ErrNotImplemented
}

func (NullRepository) FindByPredictionID(context.Context, string) (Prediction, error) {
	return Prediction{}, ErrNotImplemented
}

func (NullRepository) List(context.Context, Filter, int, int) ([]Prediction, error) {
	return nil, ErrNotImplemented
}

func (NullRepository) Count(context.Context, Filter) (int, error) { return 0, ErrNotImplemented }

func (NullRepository) Stats(context.Context, string) (Stats, error) { return Stats{}, ErrNotImplemented }

func (NullRepository) Facets(context.Context, string) (Facets, error) {
	return Facets{}, ErrNotImplemented
}

// Normalize trims whitespace from the text attributes.
func (a *Applicant) Normalize() {
	a.MaritalStatus = strings.TrimSpace(a.MaritalStatus)
	a.HouseOwnership = strings.TrimSpace(a.HouseOwnership)
	a.CarOwnership = strings.TrimSpace(a.CarOwnership)
	a.Profession = strings.TrimSpace(a.Profession)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
}

// Validate checks required fields, ranges and the stored column widths.
func (a Applicant) Validate() error {
	text := []struct {
		field string
		value string
		max   int
	}{
		{"marital", a.MaritalStatus, 20},
		{"house_O", a.HouseOwnership, 20},
		{"car_O", a.CarOwnership, 10},
		{"profession", a.Profession, 50},
		{"city", a.City, 50},
		{"state", a.State, 50},
	}
	for _, f := range text {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", ErrInvalidInput, f.field)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s must be at most %d characters", ErrInvalidInput, f.field, f.max)
		}
	}

	switch {
	case a.CurrentJobYears < 0:
		return fmt.Errorf("%w: current_jy must not be negative", ErrInvalidInput)
	case a.CurrentHouseYears < 0:
		return fmt.Errorf("%w: current_hy must not be negative", ErrInvalidInput)
	case a.Income < 0:
		return fmt.Errorf("%w: income must not be negative", ErrInvalidInput)
	case a.Age <= 0:
		return fmt.Errorf("%w: age must be positive", ErrInvalidInput)
	}
	return nil
}

// Sample converts the applicant into the classifier's feature row.
func (a Applicant) Sample() classifier.Sample {
	return classifier.Sample{
		"Married/Single":    a.MaritalStatus,
		"House_Ownership":   a.HouseOwnership,
		"Car_Ownership":     a.CarOwnership,
		"Profession":        a.Profession,
		"CITY":              a.City,
		"STATE":             a.State,
		"CURRENT_JOB_YRS":   a.CurrentJobYears,
		"CURRENT_HOUSE_YRS": a.CurrentHouseYears,
		"Cat_Income":        IncomeCategory(a.Income),
		"Cat_Age":           AgeCategory(a.Age),
	}
}

// Field is one labelled row of a report.
type Field struct {
	Label string
	Value string
}

// Fields lists the applicant's attributes in report order.
func (a Applicant) Fields() []Field {
	return []Field{
		{"Marital Status", a.MaritalStatus},
		{"House Ownership", a.HouseOwnership},
		{"Car Ownership", a.CarOwnership},
		{"Profession", a.Profession},
		{"City", a.City},
		{"State", a.State},
		{"Current Job Years", fmt.Sprint(a.CurrentJobYears)},
		{"Current House Years", fmt.Sprint(a.CurrentHouseYears)},
		{"Income", fmt.Sprint(a.Income)},
		{"Income Category", IncomeCategory(a.Income)},
		{"Age", fmt.Sprint(a.Age)},
		{"Age Category", AgeCategory(a.Age)},
	}
}

// QRPayload is the text encoded into a prediction's QR code.
func QRPayload(p Prediction) string {
	return fmt.Sprintf("Loan Eligibility Result: %s\nGenerated on: %s\nPrediction ID: %s",
		strings.ToUpper(string(p.Result)),
		p.CreatedAt.Format("2006-01-02 15:04"),
		p.PredictionID,
	)
}
