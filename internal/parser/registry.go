package parser

import (
	"fmt"
	"strings"
)

// Registry holds all available parsers and provides auto-detection.
type Registry struct {
	parsers []Parser
}

// NewRegistry creates a registry with the built-in parsers configured by opts.
// The single-pass parser is registered first so auto-detection prefers it.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		parsers: []Parser{
			NewCoordsParser(opts),
			NewTwoPassParser(opts),
		},
	}
}

// Register adds a new parser to the registry.
func (r *Registry) Register(p Parser) {
	r.parsers = append(r.parsers, p)
}

// Names lists the registered parser names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for _, p := range r.parsers {
		names = append(names, p.Name())
	}
	return names
}

// FindParser detects the correct parser for a file. Lines outside the grammar
// are ignored rather than rejected, so a file no parser recognises (comment
// headers, an empty file) falls back to the first registered parser.
func (r *Registry) FindParser(filePath string) (Parser, error) {
	if len(r.parsers) == 0 {
		return nil, fmt.Errorf("no parsers registered")
	}
	for _, p := range r.parsers {
		can, err := p.CanParse(filePath)
		if err != nil {
			return nil, fmt.Errorf("probing %s: %w", p.Name(), err)
		}
		if can {
			return p, nil
		}
	}
	return r.parsers[0], nil
}

// GetParserByName returns a parser by its name.
func (r *Registry) GetParserByName(name string) (Parser, error) {
	name = strings.ToLower(name)
	for _, p := range r.parsers {
		if strings.ToLower(p.Name()) == name {
			return p, nil
		}
	}
	return nil, fmt.Errorf("parser not found: %s", name)
}
