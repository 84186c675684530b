package main

import (
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin     = 10 // mm
	pdfLineHeight = 5  // mm
	pdfFontSize   = 9
)

// writePDFReport renders the text report into a PDF document at outputPath.
// Lines are wrapped to the printable width; the report is monospaced since
// it is mostly aligned counts and paths.
func writePDFReport(report, outputPath string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.AddPage()
	pdf.SetFont("Courier", "", pdfFontSize)

	pageWidth, _ := pdf.GetPageSize()
	printableWidth := pageWidth - 2*pdfMargin

	for _, line := range strings.Split(report, "\n") {
		if line == "" {
			pdf.Ln(pdfLineHeight)
			continue
		}
		for _, chunk := range wrapLine(pdf, line, printableWidth) {
			pdf.CellFormat(printableWidth, pdfLineHeight, chunk, "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.OutputFileAndClose(outputPath); err != nil {
		return fmt.Errorf("error writing PDF to %s: %w", outputPath, err)
	}
	return nil
}

// wrapLine splits a line into chunks that fit the printable width.
func wrapLine(pdf *gofpdf.Fpdf, line string, width float64) []string {
	if pdf.GetStringWidth(line) <= width {
		return []string{line}
	}
	var chunks []string
	current := ""
	for _, r := range line {
		next := current + string(r)
		if pdf.GetStringWidth(next) > width && current != "" {
			chunks = append(chunks, current)
			current = string(r)
			continue
		}
		current = next
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
