package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func imageFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "slide.png")
	require.NoError(t, os.WriteFile(path, []byte("png-bytes"), 0o644))
	return path
}

func TestImageOCRPlugin_Success(t *testing.T) {
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		assert.Equal(t, "tesseract", name)
		return []byte("Slide 3: The rule in Rylands v Fletcher"), nil
	}}

	p := NewImageOCRPlugin(runner)
	records, err := p.Process(context.Background(), imageFixture(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "Slide 3: The rule in Rylands v Fletcher", records[0].TextContent)
	assert.Equal(t, "ocr", records[0].Metadata["extraction_method"])
	assert.Equal(t, "slide.png", records[0].Metadata["source_file"])
}

func TestImageOCRPlugin_NoTextDetected(t *testing.T) {
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		return []byte("  \n\n"), nil
	}}

	p := NewImageOCRPlugin(runner)
	records, err := p.Process(context.Background(), imageFixture(t))
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "[No text detected in image]", records[0].TextContent)
	assert.Equal(t, "no text detected in image", records[0].Metadata["note"])
}

func TestImageOCRPlugin_TesseractFailure(t *testing.T) {
	runner := &scriptedRunner{run: func(name string, args []string) ([]byte, error) {
		return nil, errors.New("tesseract: not installed")
	}}

	p := NewImageOCRPlugin(runner)
	_, err := p.Process(context.Background(), imageFixture(t))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "image_ocr_parser", perr.Plugin)
}

func TestImageOCRPlugin_MissingFile(t *testing.T) {
	p := NewImageOCRPlugin(&scriptedRunner{run: func(string, []string) ([]byte, error) {
		return nil, errors.New("should not be called")
	}})

	_, err := p.Process(context.Background(), "/nonexistent/slide.png")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}
