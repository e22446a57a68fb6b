package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// minEmbeddedTextLen is the threshold below which a page's embedded text
// is considered empty (scanned page) and OCR is attempted instead.
const minEmbeddedTextLen = 50

// PDFPlugin extracts text per page with pdftotext and falls back to
// rasterize+OCR (pdftoppm + tesseract) for pages with no embedded text.
type PDFPlugin struct {
	runner CommandRunner
}

func NewPDFPlugin(runner CommandRunner) *PDFPlugin {
	return &PDFPlugin{runner: runner}
}

func (p *PDFPlugin) Name() string { return "pdf_parser" }

func (p *PDFPlugin) SupportedIdentifiers() []string { return []string{".pdf"} }

func (p *PDFPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	pages, err := p.pageCount(ctx, sourcePath)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	var records []Record
	for page := 1; page <= pages; page++ {
		text, err := p.extractPage(ctx, sourcePath, page)
		if err != nil {
			return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
		}

		method := "embedded"
		if len(strings.TrimSpace(text)) < minEmbeddedTextLen {
			ocrText, err := p.ocrPage(ctx, sourcePath, page)
			if err != nil {
				return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
			}
			if len(strings.TrimSpace(ocrText)) > len(strings.TrimSpace(text)) {
				text = ocrText
				method = "ocr"
			}
		}

		if strings.TrimSpace(text) == "" {
			continue
		}

		records = append(records, Record{
			TextContent: text,
			Metadata: map[string]interface{}{
				"page_number":       page,
				"source_file":       filepath.Base(sourcePath),
				"parser":            p.Name(),
				"extraction_method": method,
			},
		})
	}

	return records, nil
}

func (p *PDFPlugin) pageCount(ctx context.Context, path string) (int, error) {
	out, err := p.runner.Run(ctx, "pdfinfo", path)
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.HasPrefix(line, "Pages:") {
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Pages:")))
			if err != nil {
				return 0, fmt.Errorf("unparseable page count: %w", err)
			}
			return n, nil
		}
	}
	return 0, fmt.Errorf("pdfinfo output missing page count")
}

func (p *PDFPlugin) extractPage(ctx context.Context, path string, page int) (string, error) {
	pg := strconv.Itoa(page)
	out, err := p.runner.Run(ctx, "pdftotext", "-f", pg, "-l", pg, "-layout", path, "-")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ocrPage rasterizes a single page into a temporary directory and runs
// tesseract over the result. The directory is removed on every path.
func (p *PDFPlugin) ocrPage(ctx context.Context, path string, page int) (string, error) {
	tmpDir, err := os.MkdirTemp("", "lectern-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(tmpDir)

	pg := strconv.Itoa(page)
	prefix := filepath.Join(tmpDir, "page")
	if _, err := p.runner.Run(ctx, "pdftoppm", "-f", pg, "-l", pg, "-r", "300", "-png", path, prefix); err != nil {
		return "", err
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return "", fmt.Errorf("rasterization produced no image for page %d", page)
	}

	out, err := p.runner.Run(ctx, "tesseract", matches[0], "stdout", "-l", "eng", "--psm", "3")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
