package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/loanwise/platform/internal/domain/predictions"
)

type predictionEntry struct {
	seq        int
	prediction predictions.Prediction
}

// PredictionRepository is an in-memory implementation of predictions.Repository.
type PredictionRepository struct {
	mu      sync.RWMutex
	seq     int
	entries map[string]predictionEntry // keyed by prediction id
	users   *UserRepository
}

// NewPredictionRepository creates an in-memory prediction repo.
func NewPredictionRepository() *PredictionRepository {
	return &PredictionRepository{entries: make(map[string]predictionEntry)}
}

// WithUsers lets free-text queries match the owner's username.
func (r *PredictionRepository) WithUsers(users *UserRepository) *PredictionRepository {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = users
	return r
}

func (r *PredictionRepository) Save(_ context.Context, p predictions.Prediction) (predictions.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[p.PredictionID]; exists {
		return predictions.Prediction{}, predictions.ErrDuplicate
	}
	if p.ID == "" {
		p.ID = newID()
	}
	r.seq++
	r.entries[p.PredictionID] = predictionEntry{seq: r.seq, prediction: p}
	return p, nil
}

func (r *PredictionRepository) FindByPredictionID(_ context.Context, predictionID string) (predictions.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[predictionID]
	if !ok {
		return predictions.Prediction{}, predictions.ErrNotFound
	}
	return e.prediction, nil
}

func (r *PredictionRepository) List(_ context.Context, filter predictions.Filter, offset, limit int) ([]predictions.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.matching(filter)
	if offset < 0 {
		offset = 0
	}
	if offset > len(list) {
		return []predictions.Prediction{}, nil
	}
	end := len(list)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]predictions.Prediction, 0, end-offset)
	for _, e := range list[offset:end] {
		out = append(out, e.prediction)
	}
	return out, nil
}

func (r *PredictionRepository) Count(_ context.Context, filter predictions.Filter) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matching(filter)), nil
}

func (r *PredictionRepository) Stats(_ context.Context, userID string) (predictions.Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats predictions.Stats
	var sum float64
	for _, e := range r.matching(predictions.Filter{UserID: userID}) {
		p := e.prediction
		income := p.Applicant.Income
		if stats.Total == 0 || income > stats.MaxIncome {
			stats.MaxIncome = income
		}
		if stats.Total == 0 || income < stats.MinIncome {
			stats.MinIncome = income
		}
		stats.Total++
		sum += float64(income)
		switch p.Result {
		case predictions.ResultEligible:
			stats.Eligible++
		case predictions.ResultNotEligible:
			stats.NotEligible++
		}
	}
	if stats.Total > 0 {
		stats.AverageIncome = sum / float64(stats.Total)
	}
	return stats, nil
}

func (r *PredictionRepository) Facets(_ context.Context, userID string) (predictions.Facets, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	professions := map[string]struct{}{}
	cities := map[string]struct{}{}
	for _, e := range r.matching(predictions.Filter{UserID: userID}) {
		professions[e.prediction.Applicant.Profession] = struct{}{}
		cities[e.prediction.Applicant.City] = struct{}{}
	}
	return predictions.Facets{
		Professions: sortedKeys(professions),
		Cities:      sortedKeys(cities),
	}, nil
}

// matching returns entries passing filter, newest first. Callers hold the lock.
func (r *PredictionRepository) matching(filter predictions.Filter) []predictionEntry {
	var list []predictionEntry
	for _, e := range r.entries {
		if r.matches(e.prediction, filter) {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i].prediction.CreatedAt, list[j].prediction.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return list[i].seq > list[j].seq
	})
	return list
}

func (r *PredictionRepository) matches(p predictions.Prediction, f predictions.Filter) bool {
	if f.UserID != "" && p.UserID != f.UserID {
		return false
	}
	if f.Result != "" && p.Result != f.Result {
		return false
	}
	if f.Profession != "" && !containsFold(p.Applicant.Profession, f.Profession) {
		return false
	}
	if f.City != "" && !containsFold(p.Applicant.City, f.City) {
		return false
	}
	if f.Query != "" &&
		!containsFold(p.Applicant.Profession, f.Query) &&
		!containsFold(p.Applicant.City, f.Query) &&
		!containsFold(p.Applicant.State, f.Query) &&
		!containsFold(r.ownerName(p.UserID), f.Query) {
		return false
	}
	return true
}

func (r *PredictionRepository) ownerName(userID string) string {
	if r.users == nil {
		return ""
	}
	return r.users.usernameOf(userID)
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var _ predictions.Repository = (*PredictionRepository)(nil)
