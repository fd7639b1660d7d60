// Package classifier evaluates a random forest exported from scikit-learn.
//
// A model is two JSON documents: the forest (classes, feature order and the
// flattened tree arrays sklearn keeps in estimator.tree_) and the label
// encoders used to turn categorical columns into integers before training.
package classifier

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	ErrInvalidModel    = errors.New("classifier: invalid model")
	ErrMissingFeature  = errors.New("classifier: missing feature")
	ErrUnknownCategory = errors.New("classifier: previously unseen label")
)

const leaf = -1

// Sample holds one row keyed by feature name. Categorical values are strings,
// numeric values are any Go integer or float type.
type Sample map[string]any

// Prediction is the forest's vote for a single sample.
type Prediction struct {
	Class         int
	Probabilities []float64
}

// Tree mirrors sklearn's flattened tree arrays. Node i is a leaf when
// ChildrenLeft[i] == -1.
type Tree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

// Forest is an ensemble of trees sharing classes and feature order.
type Forest struct {
	Classes  []int    `json:"classes"`
	Features []string `json:"features"`
	Trees    []Tree   `json:"trees"`
}

// Model couples a forest with the encoders for its categorical columns.
type Model struct {
	forest   Forest
	encoders Encoders
}

// New validates forest and encoders and returns a ready model.
func New(forest Forest, encoders Encoders) (*Model, error) {
	if err := forest.validate(); err != nil {
		return nil, err
	}
	for name := range encoders {
		if !contains(forest.Features, name) {
			return nil, fmt.Errorf("%w: encoder %q has no matching feature", ErrInvalidModel, name)
		}
	}
	if err := encoders.index(); err != nil {
		return nil, err
	}
	return &Model{forest: forest, encoders: encoders}, nil
}

// Load reads the forest and encoders from JSON files.
func Load(modelPath, encodersPath string) (*Model, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	encData, err := os.ReadFile(encodersPath)
	if err != nil {
		return nil, fmt.Errorf("read encoders: %w", err)
	}
	return Decode(bytes.NewReader(modelData), bytes.NewReader(encData))
}

// Decode parses forest and encoder JSON from readers.
func Decode(model, encoders io.Reader) (*Model, error) {
	var forest Forest
	if err := json.NewDecoder(model).Decode(&forest); err != nil {
		return nil, fmt.Errorf("%w: decode forest: %v", ErrInvalidModel, err)
	}
	var enc Encoders
	if err := json.NewDecoder(encoders).Decode(&enc); err != nil {
		return nil, fmt.Errorf("%w: decode encoders: %v", ErrInvalidModel, err)
	}
	return New(forest, enc)
}

// Features returns the column order the forest expects.
func (m *Model) Features() []string {
	out := make([]string, len(m.forest.Features))
	copy(out, m.forest.Features)
	return out
}

// Predict encodes sample and returns the class with the highest mean
// probability across trees. Ties resolve to the first class.
func (m *Model) Predict(sample Sample) (Prediction, error) {
	row, err := m.encode(sample)
	if err != nil {
		return Prediction{}, err
	}

	probs := make([]float64, len(m.forest.Classes))
	for i := range m.forest.Trees {
		dist := m.forest.Trees[i].leafDistribution(row)
		for c, p := range dist {
			probs[c] += p
		}
	}

	best := 0
	n := float64(len(m.forest.Trees))
	for c := range probs {
		probs[c] /= n
		if probs[c] > probs[best] {
			best = c
		}
	}

	return Prediction{Class: m.forest.Classes[best], Probabilities: probs}, nil
}

func (m *Model) encode(sample Sample) ([]float64, error) {
	row := make([]float64, len(m.forest.Features))
	for i, name := range m.forest.Features {
		raw, ok := sample[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, name)
		}

		if enc, ok := m.encoders[name]; ok {
			label, ok := raw.(string)
			if !ok {
				label = fmt.Sprint(raw)
			}
			code, err := enc.Transform(label)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			row[i] = float64(code)
			continue
		}

		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		row[i] = v
	}
	return row, nil
}

func (t *Tree) leafDistribution(row []float64) []float64 {
	node := 0
	for t.ChildrenLeft[node] != leaf {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}

	counts := t.Value[node]
	var total float64
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, len(counts))
	if total == 0 {
		return dist
	}
	for i, c := range counts {
		dist[i] = c / total
	}
	return dist
}

func (f Forest) validate() error {
	if len(f.Classes) < 2 {
		return fmt.Errorf("%w: need at least two classes", ErrInvalidModel)
	}
	if len(f.Features) == 0 {
		return fmt.Errorf("%w: no features", ErrInvalidModel)
	}
	if len(f.Trees) == 0 {
		return fmt.Errorf("%w: no trees", ErrInvalidModel)
	}
	for ti, t := range f.Trees {
		n := len(t.ChildrenLeft)
		if n == 0 || len(t.ChildrenRight) != n || len(t.Feature) != n || len(t.Threshold) != n || len(t.Value) != n {
			return fmt.Errorf("%w: tree %d has mismatched node arrays", ErrInvalidModel, ti)
		}
		for i := 0; i < n; i++ {
			if len(t.Value[i]) != len(f.Classes) {
				return fmt.Errorf("%w: tree %d node %d has %d class weights", ErrInvalidModel, ti, i, len(t.Value[i]))
			}
			left, right := t.ChildrenLeft[i], t.ChildrenRight[i]
			if left == leaf {
				continue
			}
			// sklearn numbers children after their parent, which also rules out cycles.
			if left <= i || left >= n || right <= i || right >= n {
				return fmt.Errorf("%w: tree %d node %d has out of range children", ErrInvalidModel, ti, i)
			}
			if t.Feature[i] < 0 || t.Feature[i] >= len(f.Features) {
				return fmt.Errorf("%w: tree %d node %d splits on unknown feature %d", ErrInvalidModel, ti, i, t.Feature[i])
			}
		}
	}
	return nil
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("unsupported numeric value %T", v)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
