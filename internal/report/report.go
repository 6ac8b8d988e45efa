// Package report renders printable documents.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"

	"healthportal/backend/internal/models"

	"github.com/go-pdf/fpdf"
)

const (
	utf8Family    = "portal"
	builtinFamily = "Helvetica"
	timeLayout    = "2006-01-02 15:04"
)

// Renderer draws PDFs. With FontPath unset the built-in Latin font is used and
// characters outside cp1252 print as dots.
type Renderer struct {
	FontPath string
}

// ComplaintPDF renders c with the default Renderer.
func ComplaintPDF(c *models.Complaint) ([]byte, error) {
	return Renderer{}.Complaint(c)
}

// Complaint renders a one-page A4 summary of c.
func (r Renderer) Complaint(c *models.Complaint) ([]byte, error) {
	fontDir := ""
	if r.FontPath != "" {
		fontDir = filepath.Dir(r.FontPath)
	}
	pdf := fpdf.New("P", "mm", "A4", fontDir)
	pdf.SetTitle(fmt.Sprintf("Complaint #%d", c.ID), true)
	pdf.SetCreator("health-portal", true)

	family := builtinFamily
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if r.FontPath != "" {
		name := filepath.Base(r.FontPath)
		pdf.AddUTF8Font(utf8Family, "", name)
		pdf.AddUTF8Font(utf8Family, "B", name)
		family = utf8Family
		tr = func(s string) string { return s }
	}

	pdf.AddPage()
	pdf.SetFont(family, "B", 16)
	pdf.CellFormat(0, 10, tr(fmt.Sprintf("Complaint #%d", c.ID)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	assigned := "-"
	if c.AssignedAdmin != nil {
		assigned = c.AssignedAdmin.Username
	}
	rows := [][2]string{
		{"Title", c.Title},
		{"Category", c.Category},
		{"Status", c.Status},
		{"Requester", c.Requester.Username},
		{"Assigned admin", assigned},
		{"Created", c.CreatedAt.Format(timeLayout)},
		{"Updated", c.UpdatedAt.Format(timeLayout)},
	}
	for _, row := range rows {
		pdf.SetFont(family, "B", 11)
		pdf.CellFormat(40, 8, tr(row[0]), "1", 0, "L", false, 0, "")
		pdf.SetFont(family, "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFont(family, "B", 12)
	pdf.CellFormat(0, 8, tr("Details"), "", 1, "L", false, 0, "")
	pdf.SetFont(family, "", 11)
	pdf.MultiCell(0, 6, tr(c.Content), "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
