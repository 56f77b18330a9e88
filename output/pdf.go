package output

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const nbsp = "\u00a0"

// WritePDFReport lays out the title block, the optional executive summary and
// one section per result file holding its pretty-printed JSON.
func WritePDFReport(doc Document, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(ReportTitle, true)
	pdf.SetCreator("corrosive", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(ReportTitle), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Target: "+doc.Target), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+doc.Generated.Format("2006-01-02 15:04:05"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	if doc.Summary != "" {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, "Executive Summary", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(doc.Summary), "", "L", false)
		pdf.Ln(6)
	}

	for i, r := range doc.Reports {
		pdf.SetFont("Helvetica", "B", 13)
		pdf.CellFormat(0, 8, tr("Module: "+r.Module), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 6, tr("File: "+doc.sourceName(i)), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		pretty, err := json.MarshalIndent(r, "", "  ")
		if err != nil {
			pretty = []byte(fmt.Sprintf("%+v", r))
		}
		pdf.SetFont("Courier", "", 8)
		for _, line := range strings.Split(string(pretty), "\n") {
			pdf.MultiCell(0, 4, tr(strings.ReplaceAll(line, " ", nbsp)), "", "L", false)
		}
		pdf.Ln(6)
	}

	if len(doc.Unreadable) > 0 {
		pdf.SetFont("Helvetica", "", 10)
		for _, msg := range doc.Unreadable {
			pdf.MultiCell(0, 5, tr("Error reading "+msg), "", "L", false)
		}
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.OutputFileAndClose(path)
}
