package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRunner dispatches on command name. pdftoppm invocations drop a
// fake rasterized page next to the requested prefix so the glob finds it.
type scriptedRunner struct {
	run   func(name string, args []string) ([]byte, error)
	calls []string
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, name)
	return s.run(name, args)
}

func pdfFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lecture.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestPDFPlugin_EmbeddedText(t *testing.T) {
	embedded := strings.Repeat("lecture notes on contract law ", 5)
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdfinfo":
			return []byte("Title: Lecture\nPages: 2\n"), nil
		case "pdftotext":
			return []byte(embedded), nil
		default:
			return nil, errors.New("unexpected command: " + name)
		}
	}}

	p := NewPDFPlugin(runner)
	records, err := p.Process(context.Background(), pdfFixture(t))
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, embedded, records[0].TextContent)
	assert.Equal(t, 1, records[0].Metadata["page_number"])
	assert.Equal(t, 2, records[1].Metadata["page_number"])
	assert.Equal(t, "embedded", records[0].Metadata["extraction_method"])
	assert.Equal(t, "pdf_parser", records[0].Metadata["parser"])
}

func TestPDFPlugin_OCRFallback(t *testing.T) {
	runner := &scriptedRunner{}
	runner.run = func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdfinfo":
			return []byte("Pages: 1\n"), nil
		case "pdftotext":
			return []byte("  \n"), nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			require.NoError(t, os.WriteFile(prefix+"-1.png", []byte("png"), 0o644))
			return nil, nil
		case "tesseract":
			return []byte("Scanned page content recovered by OCR"), nil
		default:
			return nil, errors.New("unexpected command: " + name)
		}
	}

	p := NewPDFPlugin(runner)
	records, err := p.Process(context.Background(), pdfFixture(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Scanned page content recovered by OCR", records[0].TextContent)
	assert.Equal(t, "ocr", records[0].Metadata["extraction_method"])
	assert.Contains(t, runner.calls, "pdftoppm")
	assert.Contains(t, runner.calls, "tesseract")
}

func TestPDFPlugin_BlankPageSkipped(t *testing.T) {
	runner := &scriptedRunner{}
	runner.run = func(name string, args []string) ([]byte, error) {
		switch name {
		case "pdfinfo":
			return []byte("Pages: 1\n"), nil
		case "pdftotext":
			return []byte(""), nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			require.NoError(t, os.WriteFile(prefix+"-1.png", []byte("png"), 0o644))
			return nil, nil
		case "tesseract":
			return []byte("   "), nil
		default:
			return nil, errors.New("unexpected command: " + name)
		}
	}

	p := NewPDFPlugin(runner)
	records, err := p.Process(context.Background(), pdfFixture(t))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestPDFPlugin_MissingFile(t *testing.T) {
	p := NewPDFPlugin(&scriptedRunner{run: func(string, []string) ([]byte, error) {
		return nil, errors.New("should not be called")
	}})

	_, err := p.Process(context.Background(), "/nonexistent/file.pdf")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "pdf_parser", perr.Plugin)
}

func TestPDFPlugin_PdfinfoFailure(t *testing.T) {
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		return nil, errors.New("pdfinfo: command not found")
	}}

	p := NewPDFPlugin(runner)
	_, err := p.Process(context.Background(), pdfFixture(t))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestPDFPlugin_MissingPageCount(t *testing.T) {
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		return []byte("Title: no pages line\n"), nil
	}}

	p := NewPDFPlugin(runner)
	_, err := p.Process(context.Background(), pdfFixture(t))
	assert.Error(t, err)
}
