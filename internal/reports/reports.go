// Package reports renders a stored prediction as a downloadable document.
package reports

import (
	"fmt"
	"strings"

	"github.com/loanwise/platform/internal/domain/predictions"
)

const (
	Title = "Loan Eligibility Prediction Report"

	ContentTypePDF   = "application/pdf"
	ContentTypeExcel = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePNG   = "image/png"
)

// Report is the content shared by every rendering.
type Report struct {
	PredictionID string
	Result       predictions.Result
	Fields       []predictions.Field
}

// FromPrediction builds the report for p.
func FromPrediction(p predictions.Prediction) Report {
	return Report{
		PredictionID: p.PredictionID,
		Result:       p.Result,
		Fields:       p.Applicant.Fields(),
	}
}

// ResultLine is the headline shown under the title.
func (r Report) ResultLine() string {
	return "Prediction Result: " + strings.ToUpper(string(r.Result))
}

// PDFFilename is the attachment name for the PDF rendering.
func PDFFilename(predictionID string) string {
	return fmt.Sprintf("loan_prediction_%s.pdf", predictionID)
}

// ExcelFilename is the attachment name for the workbook rendering.
func ExcelFilename(predictionID string) string {
	return fmt.Sprintf("loan_prediction_%s.xlsx", predictionID)
}
