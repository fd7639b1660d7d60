package reports

import (
	"fmt"
	"io"

	"github.com/signintech/gopdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	fontRegular = "goregular"
	fontBold    = "gobold"

	pdfMargin    = 72.0
	pdfRowHeight = 22.0
	// Column widths in points, 2in and 3in.
	pdfLabelWidth = 144.0
	pdfValueWidth = 216.0
)

// PDF writes r as a single A4 page.
func PDF(w io.Writer, r Report) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFontData(fontRegular, goregular.TTF); err != nil {
		return fmt.Errorf("load regular font: %w", err)
	}
	if err := pdf.AddTTFFontData(fontBold, gobold.TTF); err != nil {
		return fmt.Errorf("load bold font: %w", err)
	}

	pageWidth := gopdf.PageSizeA4.W
	contentWidth := pageWidth - 2*pdfMargin
	centered := gopdf.CellOption{Align: gopdf.Center | gopdf.Middle}

	y := pdfMargin
	if err := pdf.SetFont(fontBold, "", 16); err != nil {
		return err
	}
	pdf.SetXY(pdfMargin, y)
	if err := pdf.CellWithOption(&gopdf.Rect{W: contentWidth, H: 24}, Title, centered); err != nil {
		return fmt.Errorf("write title: %w", err)
	}
	y += 24 + 30

	if err := pdf.SetFont(fontRegular, "", 14); err != nil {
		return err
	}
	pdf.SetXY(pdfMargin, y)
	if err := pdf.CellWithOption(&gopdf.Rect{W: contentWidth, H: 20}, r.ResultLine(), centered); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	y += 20 + 20

	tableX := (pageWidth - pdfLabelWidth - pdfValueWidth) / 2
	pdf.SetLineWidth(1)
	pdf.SetStrokeColor(0, 0, 0)

	// Header: grey background, whitesmoke bold text.
	if err := pdf.SetFont(fontBold, "", 12); err != nil {
		return err
	}
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	if err := tableRow(&pdf, tableX, y, pdfRowHeight+6, "Field", "Value"); err != nil {
		return err
	}
	y += pdfRowHeight + 6

	// Body: beige background.
	if err := pdf.SetFont(fontRegular, "", 10); err != nil {
		return err
	}
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, f := range r.Fields {
		if err := tableRow(&pdf, tableX, y, pdfRowHeight, f.Label, f.Value); err != nil {
			return err
		}
		y += pdfRowHeight
	}

	if err := pdf.Write(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func tableRow(pdf *gopdf.GoPdf, x, y, h float64, label, value string) error {
	cells := []struct {
		w    float64
		text string
	}{
		{pdfLabelWidth, label},
		{pdfValueWidth, value},
	}
	for _, c := range cells {
		pdf.RectFromUpperLeftWithStyle(x, y, c.w, h, "FD")
		pdf.SetXY(x, y)
		if err := pdf.CellWithOption(&gopdf.Rect{W: c.w, H: h}, c.text, gopdf.CellOption{Align: gopdf.Center | gopdf.Middle}); err != nil {
			return fmt.Errorf("write cell %q: %w", c.text, err)
		}
		x += c.w
	}
	return nil
}
