package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrPluginNotFound = errors.New("plugin not found")

// PluginInfo describes a registered plugin for listing endpoints.
type PluginInfo struct {
	Name             string   `json:"name"`
	SupportedFormats []string `json:"supported_formats"`
}

// Registry maps plugin names and file-extension identifiers to plugins.
// Registration happens once at startup; lookups are read-only after that.
// Identifier resolution is first-registered-wins when extensions overlap.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Plugin
	ordered []Plugin
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Plugin)}
}

func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("plugin already registered: %s", name)
	}
	r.byName[name] = p
	r.ordered = append(r.ordered, p)
	slog.Info("registered parser plugin", "plugin", name, "identifiers", p.SupportedIdentifiers())
	return nil
}

func (r *Registry) ByName(name string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}
	return p, nil
}

// ByIdentifier returns the first registered plugin whose identifier set
// contains the extension. The extension is matched case-insensitively
// and must include the leading dot.
func (r *Registry) ByIdentifier(ext string) (Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext = strings.ToLower(ext)
	for _, p := range r.ordered {
		for _, id := range p.SupportedIdentifiers() {
			if id == ext {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no plugin for identifier %q", ErrPluginNotFound, ext)
}

// ForFile resolves by explicit plugin name if given, else by extension.
func (r *Registry) ForFile(path, pluginName string) (Plugin, error) {
	if pluginName != "" {
		return r.ByName(pluginName)
	}
	return r.ByIdentifier(strings.ToLower(filepath.Ext(path)))
}

func (r *Registry) List() []PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]PluginInfo, 0, len(r.ordered))
	for _, p := range r.ordered {
		infos = append(infos, PluginInfo{
			Name:             p.Name(),
			SupportedFormats: p.SupportedIdentifiers(),
		})
	}
	return infos
}

// SupportedFormats returns the union of all registered identifiers, sorted.
func (r *Registry) SupportedFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var formats []string
	for _, p := range r.ordered {
		for _, id := range p.SupportedIdentifiers() {
			if !seen[id] {
				seen[id] = true
				formats = append(formats, id)
			}
		}
	}
	sort.Strings(formats)
	return formats
}

// Process runs the plugin and wraps failures in a ParseError.
func Process(ctx context.Context, p Plugin, sourcePath string) ([]Record, error) {
	records, err := p.Process(ctx, sourcePath)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			return nil, err
		}
		return nil, &ParseError{Plugin: p.Name(), Path: sourcePath, Err: err}
	}
	return records, nil
}
