package predictions

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loanwise/platform/internal/classifier"
)

const (
	DefaultPageSize   = 10
	RecentLimit       = 5
	defaultSearchSize = 50
	maxSearchSize     = 200
)

// Classifier scores an encoded applicant. *classifier.Model satisfies it.
type Classifier interface {
	Predict(sample classifier.Sample) (classifier.Prediction, error)
}

// Recorder observes stored predictions, e.g. for metrics.
type Recorder interface {
	ObservePrediction(result string)
}

// Service provides business logic around predictions.
type Service interface {
	Predict(ctx context.Context, userID string, applicant Applicant) (Prediction, error)
	Evaluate(ctx context.Context, applicant Applicant) (Result, Applicant, error)
	Get(ctx context.Context, userID, predictionID string) (Prediction, error)
	History(ctx context.Context, userID string, q HistoryQuery) (HistoryPage, error)
	Summary(ctx context.Context, userID string) (Summary, error)
	Dashboard(ctx context.Context, userID string) (Dashboard, error)
	Search(ctx context.Context, q SearchQuery) (SearchResult, error)
}

// HistoryQuery carries the raw history filters. Page is kept as text so a
// malformed value can fall back to the first page.
type HistoryQuery struct {
	Result     string `json:"result"`
	Profession string `json:"profession"`
	City       string `json:"city"`
	Page       string `json:"-"`
}

// HistoryPage is one page of a user's history plus the counters and facets
// a history screen shows next to it.
type HistoryPage struct {
	Items            []Prediction
	Page             int
	PageSize         int
	NumPages         int
	HasNext          bool
	HasPrevious      bool
	TotalCount       int
	EligibleCount    int
	NotEligibleCount int
	FilteredCount    int
	Professions      []string
	Cities           []string
	Filters          HistoryQuery
}

// Summary backs the home screen.
type Summary struct {
	Recent      []Prediction
	Total       int
	Eligible    int
	NotEligible int
	SuccessRate int
}

// Dashboard backs the analytics screen.
type Dashboard struct {
	Total         int
	Eligible      int
	NotEligible   int
	AverageIncome int64
	MaxIncome     int64
	MinIncome     int64
	Recent        []Prediction
}

// SearchQuery filters predictions across all users. Query also matches the
// owner's username.
type SearchQuery struct {
	Query      string
	Result     string
	Profession string
	Offset     int
	Limit      int
}

// SearchResult is one window of a cross-user search. Offset and Limit are
// the values applied after defaults and clamping.
type SearchResult struct {
	Items  []Prediction
	Total  int
	Offset int
	Limit  int
}

// Options configures the prediction service.
type Options struct {
	PageSize int
	Recorder Recorder
	Now      func() time.Time
	NewID    func() string
}

type service struct {
	repo     Repository
	model    Classifier
	pageSize int
	recorder Recorder
	now      func() time.Time
	newID    func() string
}

// NewService builds a prediction service.
func NewService(repo Repository, model Classifier, opts Options) Service {
	s := &service{
		repo:     repo,
		model:    model,
		pageSize: opts.PageSize,
		recorder: opts.Recorder,
		now:      opts.Now,
		newID:    opts.NewID,
	}
	if s.pageSize <= 0 {
		s.pageSize = DefaultPageSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

func (s *service) Predict(ctx context.Context, userID string, applicant Applicant) (Prediction, error) {
	if strings.TrimSpace(userID) == "" {
		return Prediction{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	result, applicant, err := s.Evaluate(ctx, applicant)
	if err != nil {
		return Prediction{}, err
	}

	saved, err := s.repo.Save(ctx, Prediction{
		PredictionID: s.newID(),
		UserID:       userID,
		Applicant:    applicant,
		Result:       result,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return Prediction{}, err
	}
	if s.recorder != nil {
		s.recorder.ObservePrediction(string(saved.Result))
	}
	return saved, nil
}

func (s *service) Evaluate(_ context.Context, applicant Applicant) (Result, Applicant, error) {
	applicant.Normalize()
	if err := applicant.Validate(); err != nil {
		return "", applicant, err
	}
	if s.model == nil {
		return "", applicant, errors.New("classifier is not configured")
	}

	out, err := s.model.Predict(applicant.Sample())
	if err != nil {
		if errors.Is(err, classifier.ErrUnknownCategory) || errors.Is(err, classifier.ErrMissingFeature) {
			return "", applicant, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return "", applicant, fmt.Errorf("classify: %w", err)
	}

	if out.Class == 1 {
		return ResultEligible, applicant, nil
	}
	return ResultNotEligible, applicant, nil
}

func (s *service) Get(ctx context.Context, userID, predictionID string) (Prediction, error) {
	predictionID = strings.TrimSpace(predictionID)
	if predictionID == "" {
		return Prediction{}, ErrNotFound
	}
	p, err := s.repo.FindByPredictionID(ctx, predictionID)
	if err != nil {
		return Prediction{}, err
	}
	// Other users' predictions are reported as missing.
	if p.UserID != userID {
		return Prediction{}, ErrNotFound
	}
	return p, nil
}

func (s *service) History(ctx context.Context, userID string, q HistoryQuery) (HistoryPage, error) {
	q.Result = strings.TrimSpace(q.Result)
	q.Profession = strings.TrimSpace(q.Profession)
	q.City = strings.TrimSpace(q.City)

	filter := Filter{
		UserID:     userID,
		Result:     Result(q.Result),
		Profession: q.Profession,
		City:       q.City,
	}

	filtered, err := s.repo.Count(ctx, filter)
	if err != nil {
		return HistoryPage{}, err
	}
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return HistoryPage{}, err
	}
	facets, err := s.repo.Facets(ctx, userID)
	if err != nil {
		return HistoryPage{}, err
	}

	numPages := pageCount(filtered, s.pageSize)
	page := resolvePage(q.Page, numPages)

	items, err := s.repo.List(ctx, filter, (page-1)*s.pageSize, s.pageSize)
	if err != nil {
		return HistoryPage{}, err
	}

	return HistoryPage{
		Items:            items,
		Page:             page,
		PageSize:         s.pageSize,
		NumPages:         numPages,
		HasNext:          page < numPages,
		HasPrevious:      page > 1,
		TotalCount:       stats.Total,
		EligibleCount:    stats.Eligible,
		NotEligibleCount: stats.NotEligible,
		FilteredCount:    filtered,
		Professions:      facets.Professions,
		Cities:           facets.Cities,
		Filters:          HistoryQuery{Result: q.Result, Profession: q.Profession, City: q.City},
	}, nil
}

func (s *service) Summary(ctx context.Context, userID string) (Summary, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	recent, err := s.repo.List(ctx, Filter{UserID: userID}, 0, RecentLimit)
	if err != nil {
		return Summary{}, err
	}

	rate := 0
	if stats.Total > 0 {
		rate = int(math.RoundToEven(float64(stats.Eligible) / float64(stats.Total) * 100))
	}

	return Summary{
		Recent:      recent,
		Total:       stats.Total,
		Eligible:    stats.Eligible,
		NotEligible: stats.NotEligible,
		SuccessRate: rate,
	}, nil
}

func (s *service) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return Dashboard{}, err
	}
	recent, err := s.repo.List(ctx, Filter{UserID: userID}, 0, RecentLimit)
	if err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		Total:       stats.Total,
		Eligible:    stats.Eligible,
		NotEligible: stats.NotEligible,
		Recent:      recent,
	}
	if stats.Total > 0 {
		d.AverageIncome = int64(math.RoundToEven(stats.AverageIncome))
		d.MaxIncome = stats.MaxIncome
		d.MinIncome = stats.MinIncome
	}
	return d, nil
}

func (s *service) Search(ctx context.Context, q SearchQuery) (SearchResult, error) {
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = defaultSearchSize
	}
	if q.Limit > maxSearchSize {
		q.Limit = maxSearchSize
	}

	filter := Filter{
		Result:     Result(strings.TrimSpace(q.Result)),
		Profession: strings.TrimSpace(q.Profession),
		Query:      strings.TrimSpace(q.Query),
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return SearchResult{}, err
	}
	items, err := s.repo.List(ctx, filter, q.Offset, q.Limit)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Items: items, Total: total, Offset: q.Offset, Limit: q.Limit}, nil
}

// pageCount always allows one, possibly empty, page.
func pageCount(count, size int) int {
	if count <= 0 {
		return 1
	}
	return (count + size - 1) / size
}

// resolvePage treats a missing or non-numeric page as the first page and an
// out-of-range number as the last.
func resolvePage(raw string, numPages int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 1
	}
	if n < 1 || n > numPages {
		return numPages
	}
	return n
}
