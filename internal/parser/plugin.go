package parser

import (
	"context"
	"fmt"
	"os/exec"
)

// Record is a single unit of extracted text produced by a plugin.
// Metadata typically carries page_number, source_file and parser name.
type Record struct {
	TextContent string
	Metadata    map[string]interface{}
}

// Plugin turns a source file into a sequence of text records.
// Plugins are stateless; a single instance is shared across requests.
type Plugin interface {
	Name() string
	SupportedIdentifiers() []string
	Process(ctx context.Context, sourcePath string) ([]Record, error)
}

// ParseError wraps a plugin-internal failure with the plugin name and
// source path so callers can report which parser broke on which file.
type ParseError struct {
	Plugin string
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error (plugin=%s, path=%s): %v", e.Plugin, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CommandRunner executes an external tool and returns its stdout.
// Plugins that shell out (pdftotext, tesseract) take one so tests can
// substitute canned output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %w: %s", name, err, exitErr.Stderr)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
