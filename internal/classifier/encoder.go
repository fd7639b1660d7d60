package classifier

import (
	"fmt"
	"strings"
)

// Encoder reproduces sklearn's LabelEncoder: a label maps to its index in
// Classes.
type Encoder struct {
	Classes      []string `json:"classes"`
	AllowUnknown bool     `json:"allow_unknown,omitempty"`

	exact map[string]int
	fold  map[string]int
}

// Encoders keys encoders by feature name.
type Encoders map[string]Encoder

// UnknownCode is returned for unseen labels when AllowUnknown is set.
const UnknownCode = -1

// Transform returns the integer code for label. An exact match wins, then a
// case-insensitive one.
func (e Encoder) Transform(label string) (int, error) {
	if e.exact == nil {
		e.build()
	}
	label = strings.TrimSpace(label)
	if code, ok := e.exact[label]; ok {
		return code, nil
	}
	if code, ok := e.fold[strings.ToLower(label)]; ok {
		return code, nil
	}
	if e.AllowUnknown {
		return UnknownCode, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, label)
}

func (e *Encoder) build() {
	e.exact = make(map[string]int, len(e.Classes))
	e.fold = make(map[string]int, len(e.Classes))
	for i, c := range e.Classes {
		e.exact[c] = i
		key := strings.ToLower(c)
		if _, dup := e.fold[key]; !dup {
			e.fold[key] = i
		}
	}
}

func (enc Encoders) index() error {
	for name, e := range enc {
		if len(e.Classes) == 0 {
			return fmt.Errorf("%w: encoder %q has no classes", ErrInvalidModel, name)
		}
		e.build()
		if len(e.exact) != len(e.Classes) {
			return fmt.Errorf("%w: encoder %q has duplicate classes", ErrInvalidModel, name)
		}
		enc[name] = e
	}
	return nil
}
