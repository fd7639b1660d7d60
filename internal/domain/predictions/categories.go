package predictions

// Income and age buckets used both as model features and in reports.
const (
	IncomeLow      = "Low Income"
	IncomeMedium   = "Medium Income"
	IncomeHigh     = "High Income"
	IncomeVeryHigh = "Very High Income"

	AgeYoungAdult = "Young Adult"
	AgeAdult      = "Adult"
	AgeMiddleAged = "Middle-aged"
	AgeSenior     = "Senior"
	AgeElderly    = "Elderly"
)

// IncomeCategory maps an annual income onto its bucket. Bounds are inclusive.
func IncomeCategory(income int64) string {
	switch {
	case income <= 375000:
		return IncomeLow
	case income <= 750000:
		return IncomeMedium
	case income <= 2250000:
		return IncomeHigh
	default:
		return IncomeVeryHigh
	}
}

// AgeCategory maps an age in years onto its bucket. Bounds are inclusive.
func AgeCategory(age int) string {
	switch {
	case age <= 32:
		return AgeYoungAdult
	case age <= 44:
		return AgeAdult
	case age <= 56:
		return AgeMiddleAged
	case age <= 68:
		return AgeSenior
	default:
		return AgeElderly
	}
}
