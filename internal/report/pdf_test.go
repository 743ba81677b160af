package report_test

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/v0xg/funnelqa/internal/report"
)

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	var buf bytes.Buffer
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestWritePDF(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "003_mobile_09_added_to_cart_20260830_120000.png")
	writeTestPNG(t, shot)

	issues := []report.Issue{
		{
			URL:         "https://shop.example.com/products/seat-covers",
			Device:      "mobile",
			Severity:    report.SeverityCritical,
			Category:    "Add to Cart Failed",
			Description: "Could not add product to cart",
			Screenshot:  shot,
			Timestamp:   time.Now(),
		},
		{
			URL:         "https://shop.example.com/products/floor-mats",
			Device:      "desktop",
			Severity:    report.SeverityMedium,
			Category:    "Checkout Navigation",
			Description: "Clicked checkout but URL is: https://shop.example.com/products/floor-mats",
			Timestamp:   time.Now(),
		},
	}

	path := filepath.Join(dir, "qa-report.pdf")
	info := report.PDFInfo{RunID: "a1b2c3d4", StoreURL: "https://shop.example.com", Started: time.Now()}
	require.NoError(t, report.WritePDF(issues, info, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")), "output is not a PDF")
}

func TestWritePDFNoIssues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qa-report.pdf")
	info := report.PDFInfo{RunID: "a1b2c3d4", Started: time.Now()}
	require.NoError(t, report.WritePDF(nil, info, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestWritePDFMissingScreenshotIsSkipped(t *testing.T) {
	dir := t.TempDir()
	issues := []report.Issue{{
		URL:         "https://shop.example.com/products/seat-covers",
		Device:      "desktop",
		Severity:    report.SeverityHigh,
		Category:    "Broken Images",
		Description: "3 images failed to load",
		Screenshot:  filepath.Join(dir, "gone.png"),
		Timestamp:   time.Now(),
	}}

	path := filepath.Join(dir, "qa-report.pdf")
	info := report.PDFInfo{RunID: "a1b2c3d4", Started: time.Now()}
	require.NoError(t, report.WritePDF(issues, info, path))
}
