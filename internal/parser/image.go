package parser

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// ImageOCRPlugin runs whole-image OCR via tesseract. It always emits at
// least one record; empty OCR output is flagged in metadata so callers
// can tell "no text" apart from "not processed".
type ImageOCRPlugin struct {
	runner CommandRunner
}

func NewImageOCRPlugin(runner CommandRunner) *ImageOCRPlugin {
	return &ImageOCRPlugin{runner: runner}
}

func (p *ImageOCRPlugin) Name() string { return "image_ocr_parser" }

func (p *ImageOCRPlugin) SupportedIdentifiers() []string {
	return []string{".png", ".jpg", ".jpeg", ".tiff", ".tif", ".bmp", ".gif"}
}

func (p *ImageOCRPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	if _, err := os.Stat(sourcePath); err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	out, err := p.runner.Run(ctx, "tesseract", sourcePath, "stdout", "-l", "eng", "--psm", "3")
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	text := string(out)
	meta := map[string]interface{}{
		"source_file":       filepath.Base(sourcePath),
		"parser":            p.Name(),
		"extraction_method": "ocr",
	}

	if strings.TrimSpace(text) == "" {
		meta["note"] = "no text detected in image"
		return []Record{{TextContent: "[No text detected in image]", Metadata: meta}}, nil
	}

	return []Record{{TextContent: text, Metadata: meta}}, nil
}
