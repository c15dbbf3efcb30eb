package writers

import (
	"fmt"
	"io"
	"sync"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"github.com/jshound/jshound/pkg/defaults"
	"github.com/jshound/jshound/pkg/finding"
	"github.com/jshound/jshound/pkg/output/dispatcher"
	"github.com/jshound/jshound/pkg/output/events"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*PDFWriter)(nil)

// pdfSeverityColors maps severity names to RGB accents used in tables
// and finding headers.
var pdfSeverityColors = map[string][]int{
	"critical": {220, 38, 38},
	"high":     {234, 88, 12},
	"medium":   {202, 138, 4},
	"low":      {22, 163, 74},
	"info":     {37, 99, 235},
}

// PDFConfig configures the PDF report writer.
type PDFConfig struct {
	// Title overrides the report title on the cover page.
	Title string

	// PageSize is the page format (default: A4).
	PageSize string

	// Orientation is "P" for portrait or "L" for landscape (default: P).
	Orientation string

	// IncludeEvidence adds the redacted match text to each finding
	// detail block.
	IncludeEvidence bool
}

// PDFWriter renders a complete scan report as a PDF document.
// Events are buffered in memory and the document is generated on
// Close. Intended for handing results to people who will never run
// the tool: stakeholder reports, pentest deliverable appendices,
// compliance evidence.
type PDFWriter struct {
	w        io.Writer
	mu       sync.Mutex
	config   PDFConfig
	findings []finding.Finding
	start    *events.StartEvent
	summary  *events.SummaryEvent
	closed   bool
}

// NewPDFWriter creates a PDF report writer targeting w.
func NewPDFWriter(w io.Writer, config PDFConfig) *PDFWriter {
	if config.Title == "" {
		config.Title = "Secret Exposure Report"
	}
	if config.PageSize == "" {
		config.PageSize = "A4"
	}
	if config.Orientation == "" {
		config.Orientation = "P"
	}
	return &PDFWriter{
		w:        w,
		config:   config,
		findings: make([]finding.Finding, 0),
	}
}

// Write buffers an event for the final report.
func (pw *PDFWriter) Write(event events.Event) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return nil
	}

	switch e := event.(type) {
	case *events.StartEvent:
		pw.start = e
	case *events.FindingEvent:
		pw.findings = append(pw.findings, e.Finding)
	case *events.SummaryEvent:
		pw.summary = e
	}
	return nil
}

// Flush is a no-op; the document only exists as a whole.
func (pw *PDFWriter) Flush() error { return nil }

// Close generates the PDF document and writes it to the underlying
// writer. If the writer implements io.Closer it is closed afterwards.
func (pw *PDFWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.closed {
		return nil
	}
	pw.closed = true

	pdf := gofpdf.New(pw.config.Orientation, "mm", pw.config.PageSize, "")
	// Uncompressed content streams keep the report text searchable.
	pdf.SetCompression(false)
	pdf.SetTitle(pw.config.Title, true)
	pdf.SetAuthor("jshound "+defaults.Version, true)
	pdf.SetCreator("jshound", true)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(150, 150, 150)
		pdf.CellFormat(0, 10, fmt.Sprintf("jshound %s  |  Page %d of {nb}", defaults.Version, pdf.PageNo()),
			"", 0, "C", false, 0, "")
	})

	pw.addCoverPage(pdf)
	pw.addScanOverview(pdf)
	pw.addSeveritySummary(pdf)
	pw.addFindingsDetail(pdf)

	if err := pdf.Output(pw.w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}

	if closer, ok := pw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for the events that feed the report.
func (pw *PDFWriter) SupportsEvent(eventType events.EventType) bool {
	switch eventType {
	case events.EventTypeStart, events.EventTypeFinding, events.EventTypeSummary:
		return true
	default:
		return false
	}
}

// addSectionHeader renders a dark banner with the section title.
func (pw *PDFWriter) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(0, 10, "  "+title, "", 1, "L", true, 0, "")
	pdf.Ln(4)
}

// domain returns the scanned domain from whichever event carried it.
func (pw *PDFWriter) domain() string {
	if pw.start != nil && pw.start.Domain != "" {
		return pw.start.Domain
	}
	if pw.summary != nil {
		return pw.summary.Domain
	}
	return "unknown"
}

// addCoverPage renders the title page with scan identity.
func (pw *PDFWriter) addCoverPage(pdf *gofpdf.Fpdf) {
	pdf.AddPage()

	pdf.Ln(50)
	pdf.SetFont("Helvetica", "B", 28)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 14, pw.config.Title, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 13)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 9, "JavaScript Asset Secret Scan", "", 1, "C", false, 0, "")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(244, 168, 37)
	pdf.CellFormat(0, 10, pw.domain(), "", 1, "C", false, 0, "")
	pdf.Ln(16)

	generated := time.Now()
	if pw.summary != nil && !pw.summary.Timing.CompletedAt.IsZero() {
		generated = pw.summary.Timing.CompletedAt
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 7, "Generated "+generated.UTC().Format("January 2, 2006 15:04 UTC"), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, "jshound "+defaults.Version, "", 1, "C", false, 0, "")
}

// addScanOverview renders the scan metadata and pipeline totals.
func (pw *PDFWriter) addScanOverview(pdf *gofpdf.Fpdf) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, "Scan Overview")

	rows := [][2]string{
		{"Domain", pw.domain()},
	}
	if pw.start != nil {
		rows = append(rows,
			[2]string{"Scan ID", pw.start.ScanID()},
			[2]string{"Started", pw.start.Timestamp().UTC().Format(time.RFC3339)},
		)
	}
	if pw.summary != nil {
		rows = append(rows,
			[2]string{"Duration", fmt.Sprintf("%.1fs", pw.summary.Timing.DurationSec)},
			[2]string{"Subdomains", fmt.Sprintf("%d", pw.summary.Totals.Subdomains)},
			[2]string{"Script Assets", fmt.Sprintf("%d", pw.summary.Totals.Assets)},
			[2]string{"Files Downloaded", fmt.Sprintf("%d", pw.summary.Totals.Downloaded)},
			[2]string{"Findings", fmt.Sprintf("%d", pw.summary.Totals.Findings)},
		)
		if pw.summary.Totals.RuleFailures > 0 {
			rows = append(rows, [2]string{"Rule Failures", fmt.Sprintf("%d", pw.summary.Totals.RuleFailures)})
		}
	} else {
		rows = append(rows, [2]string{"Findings", fmt.Sprintf("%d", len(pw.findings))})
	}

	for i, row := range rows {
		if i%2 == 0 {
			pdf.SetFillColor(248, 250, 252)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(50, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(0, 8, row[1], "1", 1, "L", true, 0, "")
	}
}

// addSeveritySummary renders the findings-by-severity table and the
// overall verdict line.
func (pw *PDFWriter) addSeveritySummary(pdf *gofpdf.Fpdf) {
	pdf.Ln(8)
	pw.addSectionHeader(pdf, "Findings by Severity")

	counts := finding.CountBySeverity(pw.findings)
	titleCase := cases.Title(language.English)

	// Header row.
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(60, 8, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Findings", "1", 1, "C", true, 0, "")

	total := 0
	for _, sev := range finding.Ordered() {
		n := counts[sev]
		if n == 0 {
			continue
		}
		total += n

		color := pdfSeverityColors[string(sev)]
		if color == nil {
			color = []int{128, 128, 128}
		}

		pdf.SetFillColor(255, 255, 255)
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(color[0], color[1], color[2])
		pdf.CellFormat(60, 7, titleCase.String(string(sev)), "1", 0, "L", true, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(40, 7, fmt.Sprintf("%d", n), "1", 1, "C", true, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(60, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 7, fmt.Sprintf("%d", total), "1", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	if total > 0 {
		pdf.SetTextColor(220, 38, 38)
		pdf.MultiCell(0, 5, fmt.Sprintf("%d potential secrets are exposed in publicly reachable JavaScript. "+
			"Treat every affected credential as compromised and rotate it.", total), "", "L", false)
	} else {
		pdf.SetTextColor(22, 163, 74)
		pdf.MultiCell(0, 5, "No secrets were detected in the scanned assets.", "", "L", false)
	}
}

// addFindingsDetail renders one block per finding, ordered by severity.
func (pw *PDFWriter) addFindingsDetail(pdf *gofpdf.Fpdf) {
	if len(pw.findings) == 0 {
		return
	}

	pdf.AddPage()
	pw.addSectionHeader(pdf, "Finding Details")

	ordered := make([]finding.Finding, len(pw.findings))
	copy(ordered, pw.findings)
	finding.Sort(ordered)

	titleCase := cases.Title(language.English)
	for i, f := range ordered {
		// Keep each block on one page where possible.
		if pdf.GetY() > 240 {
			pdf.AddPage()
		}

		color := pdfSeverityColors[string(f.Severity)]
		if color == nil {
			color = []int{128, 128, 128}
		}

		// Severity tag + rule name banner.
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(color[0], color[1], color[2])
		pdf.SetTextColor(255, 255, 255)
		pdf.CellFormat(28, 8, titleCase.String(string(f.Severity)), "1", 0, "C", true, 0, "")
		pdf.SetFillColor(248, 250, 252)
		pdf.SetTextColor(30, 41, 59)
		pdf.CellFormat(0, 8, fmt.Sprintf("  %d. %s", i+1, f.Rule), "1", 1, "L", true, 0, "")

		detail := func(label, value string) {
			if value == "" {
				return
			}
			pdf.SetFont("Helvetica", "B", 9)
			pdf.SetTextColor(100, 100, 100)
			pdf.CellFormat(28, 6, label, "", 0, "L", false, 0, "")
			pdf.SetFont("Helvetica", "", 9)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 6, value, "", "L", false)
		}

		detail("Asset", f.Asset)
		if f.Line > 0 {
			detail("Line", fmt.Sprintf("%d", f.Line))
		}
		detail("Plugin", f.Plugin)
		detail("Description", f.Description)
		if pw.config.IncludeEvidence {
			detail("Match", f.Match)
		}

		pdf.Ln(4)
	}
}
