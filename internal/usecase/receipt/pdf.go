package receipt

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin     = 20.0
	pdfLineHeight = 8.0
	pdfLabelWidth = 55.0
)

// Core PDF fonts are cp1252; currency signs outside it are spelled out
var pdfReplacer = strings.NewReplacer("₦", "NGN ", "₵", "GHS ", "₹", "INR ")

// PDFConverter renders documents as A4 PDFs
type PDFConverter struct{}

// NewPDFConverter creates a new PDFConverter instance
func NewPDFConverter() *PDFConverter {
	return &PDFConverter{}
}

// MediaType implements Converter
func (c *PDFConverter) MediaType() string { return "application/pdf" }

// Extension implements Converter
func (c *PDFConverter) Extension() string { return "pdf" }

// Convert lays out doc on a single A4 page
func (c *PDFConverter) Convert(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetTitle(doc.Title+" "+doc.Reference, true)
	pdf.SetCreator(doc.Institution, true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(s string) string { return tr(pdfReplacer.Replace(s)) }
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin

	// Header
	pdf.SetTextColor(17, 24, 39)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(contentWidth, 10, text(doc.Institution), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(contentWidth, 8, text(doc.Title), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	// Status block
	color := doc.Status.Color
	pdf.SetFillColor(color.R, color.G, color.B)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(contentWidth, 14, text(doc.Status.Amount), "", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentWidth, 9, text(doc.Status.Label), "", 1, "C", true, 0, "")
	pdf.Ln(8)

	for _, section := range doc.Sections {
		pdf.SetTextColor(17, 24, 39)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(contentWidth, pdfLineHeight+2, text(section.Title), "B", 1, "L", false, 0, "")
		pdf.Ln(2)
		for _, item := range section.Items {
			pdf.SetFont("Helvetica", "", 11)
			pdf.SetTextColor(107, 114, 128)
			pdf.CellFormat(pdfLabelWidth, pdfLineHeight, text(item.Label), "", 0, "L", false, 0, "")
			pdf.SetTextColor(17, 24, 39)
			pdf.MultiCell(contentWidth-pdfLabelWidth, pdfLineHeight, text(item.Value), "", "R", false)
		}
		pdf.Ln(6)
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 9)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(contentWidth, 6, text(doc.Footer), "T", 1, "C", false, 0, "")

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out receipt: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
