package parser

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
)

// MOBIPlugin salvages readable text from MOBI/AZW files. The PalmDoc
// container usually embeds an HTML body; when one is found its tags are
// stripped, otherwise printable runs are recovered from the raw bytes.
type MOBIPlugin struct{}

func NewMOBIPlugin() *MOBIPlugin { return &MOBIPlugin{} }

func (p *MOBIPlugin) Name() string { return "mobi_parser" }

func (p *MOBIPlugin) SupportedIdentifiers() []string {
	return []string{".mobi", ".azw", ".azw3"}
}

var (
	mobiTagRe    = regexp.MustCompile(`<[^>]*>`)
	mobiEntityRe = regexp.MustCompile(`&[a-zA-Z#0-9]+;`)
)

func (p *MOBIPlugin) Process(ctx context.Context, sourcePath string) ([]Record, error) {
	raw, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}

	content := string(raw)
	method := "raw_salvage"

	if idx := strings.Index(strings.ToLower(content), "<body"); idx >= 0 {
		body := content[idx:]
		if end := strings.Index(strings.ToLower(body), "</body>"); end >= 0 {
			body = body[:end]
		}
		body = mobiTagRe.ReplaceAllString(body, " ")
		body = mobiEntityRe.ReplaceAllString(body, " ")
		content = body
		method = "html_strip"
	}

	content = keepPrintable(content)

	meta := map[string]interface{}{
		"source_file":       filepath.Base(sourcePath),
		"parser":            p.Name(),
		"extraction_method": method,
	}
	if strings.TrimSpace(content) == "" {
		meta["note"] = "no readable text recovered"
		return []Record{{TextContent: "[No readable text recovered]", Metadata: meta}}, nil
	}

	return []Record{{TextContent: content, Metadata: meta}}, nil
}

// keepPrintable drops control bytes and collapses runs of whitespace,
// keeping only text that survived the container format.
func keepPrintable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		case unicode.IsPrint(r):
			b.WriteRune(r)
			lastSpace = false
		}
	}
	return strings.TrimSpace(b.String())
}
