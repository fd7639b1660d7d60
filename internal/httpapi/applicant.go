package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/loanwise/platform/internal/domain/predictions"
)

// applicantRequest accepts the prediction form as JSON. Numeric fields may
// arrive as numbers or as numeric strings, since browser forms send text.
type applicantRequest struct {
	MaritalStatus     string  `json:"marital"`
	HouseOwnership    string  `json:"house_O"`
	CarOwnership      string  `json:"car_O"`
	Profession        string  `json:"profession"`
	City              string  `json:"city"`
	State             string  `json:"state"`
	CurrentJobYears   flexInt `json:"current_jy"`
	CurrentHouseYears flexInt `json:"current_hy"`
	Income            flexInt `json:"income"`
	Age               flexInt `json:"age"`
}

func (a applicantRequest) toApplicant() (predictions.Applicant, error) {
	required := []struct {
		name string
		v    flexInt
	}{
		{"current_jy", a.CurrentJobYears},
		{"current_hy", a.CurrentHouseYears},
		{"income", a.Income},
		{"age", a.Age},
	}
	for _, f := range required {
		if !f.v.set {
			return predictions.Applicant{}, fmt.Errorf("%w: %s is required", predictions.ErrInvalidInput, f.name)
		}
	}
	return predictions.Applicant{
		MaritalStatus:     a.MaritalStatus,
		HouseOwnership:    a.HouseOwnership,
		CarOwnership:      a.CarOwnership,
		Profession:        a.Profession,
		City:              a.City,
		State:             a.State,
		CurrentJobYears:   int(a.CurrentJobYears.n),
		CurrentHouseYears: int(a.CurrentHouseYears.n),
		Income:            a.Income.n,
		Age:               int(a.Age.n),
	}, nil
}

type flexInt struct {
	n   int64
	set bool
}

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Whole-valued decimals such as 30.0 are accepted.
		v, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil || v != math.Trunc(v) || math.Abs(v) >= math.MaxInt64 {
			return fmt.Errorf("invalid integer %q", raw)
		}
		n = int64(v)
	}
	f.n, f.set = n, true
	return nil
}
