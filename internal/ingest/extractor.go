package ingest

import (
	"context"
	"strings"

	"lectern/internal/parser"
)

// Extractor re-runs text extraction for a stored file, used by the
// summary flow when neither the cached raw text nor the index has
// content.
type Extractor struct {
	Plugins PluginResolver
}

func (e *Extractor) ExtractText(ctx context.Context, path, pluginName string) (string, error) {
	plugin, err := e.Plugins.ForFile(path, pluginName)
	if err != nil {
		return "", err
	}

	records, err := parser.Process(ctx, plugin, path)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(records))
	for _, record := range records {
		if t := sanitize(record.TextContent); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
