package writers

import (
	"bytes"
	"fmt"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/jshound/jshound/pkg/finding"
)

// pdfResult holds a generated PDF and provides semantic assertions.
type pdfResult struct {
	t      *testing.T
	raw    []byte
	reader *bytes.Reader
}

func generatePDF(t *testing.T, config PDFConfig, findings []finding.Finding, withSummary bool) pdfResult {
	t.Helper()
	buf := &bytes.Buffer{}
	w := NewPDFWriter(buf, config)

	if err := w.Write(newStartEvent("example.com")); err != nil {
		t.Fatalf("Write start: %v", err)
	}
	for _, f := range findings {
		if err := w.Write(newFindingEvent(f)); err != nil {
			t.Fatalf("Write finding: %v", err)
		}
	}
	if withSummary {
		bySev := make(map[string]int)
		for _, f := range findings {
			bySev[string(f.Severity)]++
		}
		if err := w.Write(newSummaryEvent("example.com", len(findings), bySev)); err != nil {
			t.Fatalf("Write summary: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	raw := buf.Bytes()
	return pdfResult{t: t, raw: raw, reader: bytes.NewReader(raw)}
}

// assertValid validates the PDF structure using pdfcpu.
func (p *pdfResult) assertValid() {
	p.t.Helper()
	if err := pdfapi.Validate(p.reader, nil); err != nil {
		p.t.Errorf("PDF validation failed: %v", err)
	}
	p.reader.Seek(0, 0)
}

// assertPageCount checks the exact number of pages.
func (p *pdfResult) assertPageCount(expected int) {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	if count != expected {
		p.t.Errorf("page count = %d, want %d", count, expected)
	}
}

// assertPageCountAtLeast checks minimum page count.
func (p *pdfResult) assertPageCountAtLeast(min int) {
	p.t.Helper()
	p.reader.Seek(0, 0)
	count, err := pdfapi.PageCount(p.reader, nil)
	if err != nil {
		p.t.Fatalf("PageCount failed: %v", err)
	}
	if count < min {
		p.t.Errorf("page count = %d, want at least %d", count, min)
	}
}

// assertContainsText checks that the raw PDF bytes contain the given
// text. The writer emits uncompressed content streams, so Helvetica
// text appears as literal bytes.
func (p *pdfResult) assertContainsText(text string) {
	p.t.Helper()
	if !bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF does not contain text %q", text)
	}
}

// assertNotContainsText checks that the raw PDF bytes do NOT contain the given text.
func (p *pdfResult) assertNotContainsText(text string) {
	p.t.Helper()
	if bytes.Contains(p.raw, []byte(text)) {
		p.t.Errorf("PDF unexpectedly contains text %q", text)
	}
}

// assertMinSize checks the PDF is at least n bytes.
func (p *pdfResult) assertMinSize(n int) {
	p.t.Helper()
	if len(p.raw) < n {
		p.t.Errorf("PDF size = %d bytes, want at least %d", len(p.raw), n)
	}
}

func TestPDFWriterValidDocument(t *testing.T) {
	findings := []finding.Finding{
		testFinding("aws-access-key-id", finding.Critical,
			"https://cdn.example.com/app.js", 88, "AKIA************MPLE"),
		testFinding("generic-api-key", finding.Medium,
			"https://cdn.example.com/vendor.js", 4102, "api_********key"),
	}
	p := generatePDF(t, PDFConfig{}, findings, true)

	p.assertValid()
	p.assertPageCountAtLeast(3)
	p.assertMinSize(2000)
	p.assertContainsText("Secret Exposure Report")
	p.assertContainsText("example.com")
	p.assertContainsText("Scan Overview")
	p.assertContainsText("Finding Details")
	p.assertContainsText("aws-access-key-id")
}

func TestPDFWriterEmptyScan(t *testing.T) {
	p := generatePDF(t, PDFConfig{}, nil, true)

	p.assertValid()
	p.assertPageCount(2) // cover + overview, no detail section
	p.assertContainsText("No secrets")
	p.assertNotContainsText("Finding Details")
}

func TestPDFWriterEvidenceToggle(t *testing.T) {
	findings := []finding.Finding{
		testFinding("stripe-secret-key", finding.Critical,
			"https://cdn.example.com/pay.js", 9, "sk_l********************p7dc"),
	}

	t.Run("included", func(t *testing.T) {
		p := generatePDF(t, PDFConfig{IncludeEvidence: true}, findings, true)
		p.assertValid()
		p.assertContainsText("sk_l********************p7dc")
	})

	t.Run("excluded by default", func(t *testing.T) {
		p := generatePDF(t, PDFConfig{}, findings, true)
		p.assertValid()
		p.assertNotContainsText("sk_l********************p7dc")
	})
}

func TestPDFWriterCustomTitle(t *testing.T) {
	p := generatePDF(t, PDFConfig{Title: "Acme Quarterly Exposure Review"}, nil, true)
	p.assertValid()
	p.assertContainsText("Acme Quarterly Exposure Review")
}

func TestPDFWriterManyFindingsPaginate(t *testing.T) {
	findings := make([]finding.Finding, 0, 30)
	for i := 0; i < 30; i++ {
		findings = append(findings, testFinding(
			fmt.Sprintf("generic-api-key-%02d", i), finding.Medium,
			fmt.Sprintf("https://cdn.example.com/chunk-%02d.js", i), i+1, "api_****"))
	}
	p := generatePDF(t, PDFConfig{}, findings, true)

	p.assertValid()
	p.assertPageCountAtLeast(4)
	p.assertContainsText("generic-api-key-29")
}

func TestPDFWriterLandscape(t *testing.T) {
	p := generatePDF(t, PDFConfig{Orientation: "L"}, nil, true)
	p.assertValid()
}
