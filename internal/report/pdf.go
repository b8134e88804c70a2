package report

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Core PDF fonts only cover Latin-1. Parentheticals holding CJK are dropped,
// as are any other runes outside that range.
var nonLatinParen = regexp.MustCompile(`\s*\([^)]*[^\x00-\xff][^)]*\)`)

func latin1(s string) string {
	s = nonLatinParen.ReplaceAllString(s, "")
	return strings.Map(func(r rune) rune {
		if r > 0xff {
			return -1
		}
		return r
	}, s)
}

type pdfWriter struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) text(s string) string { return w.tr(latin1(s)) }

// RenderPDF writes v as an A4 report.
func RenderPDF(v *View, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle("Tongue Diagnosis Report", true)
	pdf.AddPage()

	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}

	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Tongue Diagnosis Report", "", 1, "C", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", generatedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	if v.OverallConfidence != "" {
		pdf.CellFormat(0, 6, w.text("Overall confidence: "+v.OverallConfidence), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	w.primary(v)
	if len(v.Cards) > 0 {
		w.header("Tongue Features")
		for _, c := range v.Cards {
			w.line(c.Label, c.Value)
		}
		pdf.Ln(3)
	}
	if len(v.Zones) > 0 {
		w.header("Tongue Zones")
		for _, z := range v.Zones {
			w.line(fmt.Sprintf("%s (%s)", z.Name, z.Organ), z.Description)
			w.bullets(z.Findings)
		}
		pdf.Ln(3)
	}
	for _, s := range v.Sections {
		w.header(s.Title)
		for _, it := range s.Items {
			label := it.Label
			if it.Confidence != nil {
				label = fmt.Sprintf("%s [%s]", label, it.Confidence.Text)
			}
			w.line(label, it.Value)
			w.bullets(it.List)
		}
		pdf.Ln(3)
	}
	if f := v.Formula; f != nil {
		w.header("Classical Formula: " + f.Key)
		w.line("Ingredients", strings.Join(f.Ingredients, ", "))
		w.line("Benefits", strings.Join(f.Benefits, ", "))
		w.line("Lifestyle", f.Lifestyle)
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "I", 8)
	pdf.MultiCell(0, 4, "This report is for educational purposes only and is not a medical diagnosis. Consult a licensed practitioner before starting any treatment.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (w *pdfWriter) primary(v *View) {
	w.header("Primary Pattern")
	p := v.Primary
	w.pdf.SetFont("Arial", "B", 12)
	w.pdf.MultiCell(0, 6, w.text(p.Name), "", "L", false)
	w.pdf.SetFont("Arial", "", 10)
	if p.ChineseName != "" {
		w.line("Chinese name", p.ChineseName)
	}
	if p.Confidence != nil {
		w.line("Confidence", p.Confidence.Text)
	}
	w.line("Severity", p.Severity.Label)
	if len(v.SecondaryPatterns) > 0 {
		w.line("Secondary patterns", strings.Join(v.SecondaryPatterns, ", "))
	}
	w.bullets(p.Evidence)
	w.pdf.Ln(3)
}

func (w *pdfWriter) header(title string) {
	w.pdf.SetFont("Arial", "B", 14)
	w.pdf.SetFillColor(230, 230, 230)
	w.pdf.CellFormat(0, 10, w.text(title), "", 1, "L", true, 0, "")
	w.pdf.Ln(2)
	w.pdf.SetFont("Arial", "", 10)
}

func (w *pdfWriter) line(label, value string) {
	if value == "" {
		w.pdf.SetFont("Arial", "B", 10)
		w.pdf.MultiCell(0, 5, w.text(label), "", "L", false)
		w.pdf.SetFont("Arial", "", 10)
		return
	}
	w.pdf.MultiCell(0, 5, w.text(label+": "+value), "", "L", false)
}

func (w *pdfWriter) bullets(list []string) {
	for _, s := range list {
		w.pdf.MultiCell(0, 5, w.text("  - "+s), "", "L", false)
	}
}
