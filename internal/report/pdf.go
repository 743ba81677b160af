package report

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/nfnt/resize"
)

// thumbWidth is the pixel width screenshots are downscaled to before
// embedding. Full-page captures can be several thousand pixels tall; the
// thumbnail keeps the PDF small while staying legible.
const thumbWidth = 900

// PDFInfo describes the run the report covers.
type PDFInfo struct {
	RunID    string
	StoreURL string
	Started  time.Time
}

// WritePDF renders the issue list as a report document: header, executive
// summary with severity/device/category breakdown, then per-page sections
// with each issue and its screenshot.
func WritePDF(issues []Issue, info PDFInfo, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	writeHeader(pdf, issues, info)
	writeSummary(pdf, issues)
	writePages(pdf, issues)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func writeHeader(pdf *fpdf.Fpdf, issues []Issue, info PDFInfo) {
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Storefront QA Report", "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Generated: "+info.Started.Format("January 2, 2006 at 3:04 PM"), "", 1, "C", false, 0, "")
	if info.StoreURL != "" {
		pdf.CellFormat(0, 5, "Store: "+info.StoreURL, "", 1, "C", false, 0, "")
	}
	if info.RunID != "" {
		pdf.CellFormat(0, 5, "Run: "+info.RunID, "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Total issues found: %d", len(issues)), "", 1, "C", false, 0, "")
	pdf.Ln(4)
}

func writeSummary(pdf *fpdf.Fpdf, issues []Issue) {
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 8, "Executive Summary", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)

	sev := CountBySeverity(issues)
	pdf.CellFormat(0, 5, "Issue severity:", "", 1, "L", false, 0, "")
	for _, s := range []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow} {
		pdf.CellFormat(0, 5, fmt.Sprintf("    %s: %d", titleCase(string(s)), sev[s]), "", 1, "L", false, 0, "")
	}

	devices := make(map[string]int)
	for _, is := range issues {
		devices[is.Device]++
	}
	pdf.CellFormat(0, 5, "Issues by device:", "", 1, "L", false, 0, "")
	for _, d := range sortedKeys(devices) {
		pdf.CellFormat(0, 5, fmt.Sprintf("    %s: %d", d, devices[d]), "", 1, "L", false, 0, "")
	}

	cats := CountByCategory(issues)
	pdf.CellFormat(0, 5, "Top issue categories:", "", 1, "L", false, 0, "")
	for i, c := range keysByCount(cats) {
		if i >= 5 {
			break
		}
		pdf.CellFormat(0, 5, fmt.Sprintf("    %s: %d", c, cats[c]), "", 1, "L", false, 0, "")
	}

	if n := sev[SeverityCritical] + sev[SeverityHigh]; n > 0 {
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("ATTENTION REQUIRED: %d critical/high severity issues.", n), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func writePages(pdf *fpdf.Fpdf, issues []Issue) {
	byPage := make(map[string][]Issue)
	var order []string
	for _, is := range issues {
		if _, seen := byPage[is.URL]; !seen {
			order = append(order, is.URL)
		}
		byPage[is.URL] = append(byPage[is.URL], is)
	}

	for _, url := range order {
		pageIssues := byPage[url]

		pdf.SetFont("Arial", "B", 11)
		pdf.MultiCell(0, 6, "Page: "+url, "B", "L", false)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(0, 5, fmt.Sprintf("Issues found: %d", len(pageIssues)), "", 1, "L", false, 0, "")
		pdf.Ln(2)

		for i, is := range pageIssues {
			writeIssue(pdf, is, i+1)
		}
	}
}

func writeIssue(pdf *fpdf.Fpdf, is Issue, num int) {
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issue #%d: %s", num, is.Category), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 5, "Severity: "+strings.ToUpper(string(is.Severity)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Device: "+strings.ToUpper(is.Device), "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 5, "Description: "+is.Description, "", "L", false)
	pdf.CellFormat(0, 5, "Time: "+is.Timestamp.Format(time.RFC3339), "", 1, "L", false, 0, "")

	if is.Screenshot != "" {
		embedScreenshot(pdf, is.Screenshot)
	}

	pdf.Ln(1)
	pdf.Line(12, pdf.GetY(), 198, pdf.GetY())
	pdf.Ln(3)
}

// embedScreenshot places a downscaled copy of the capture under the issue
// text. Unreadable files are skipped silently; the report must never fail
// because one screenshot went missing.
func embedScreenshot(pdf *fpdf.Fpdf, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return
	}

	thumb := resize.Resize(thumbWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return
	}

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(path, opts, &buf)

	bounds := thumb.Bounds()
	w := 170.0
	h := w * float64(bounds.Dy()) / float64(bounds.Dx())
	// Cap very tall full-page captures to roughly one page.
	if h > 240 {
		h = 240
	}
	pdf.Ln(2)
	pdf.ImageOptions(path, pdf.GetX(), pdf.GetY(), w, h, true, opts, 0, "")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func keysByCount(m map[string]int) []string {
	keys := sortedKeys(m)
	sort.SliceStable(keys, func(i, j int) bool {
		return m[keys[i]] > m[keys[j]]
	})
	return keys
}
