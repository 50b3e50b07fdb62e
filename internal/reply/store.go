// Package reply holds the persona-aware reply templates and renders them
// against a customer profile.
package reply

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vovarama1992/collection-bot/internal/intent"
	"github.com/Vovarama1992/collection-bot/internal/persona"
)

//go:embed templates.yaml
var embedded []byte

// Fallback is the category used when a lookup names a category the store lacks.
const Fallback = string(intent.Unknown)

// Store is an immutable category -> persona -> template table.
type Store struct {
	templates map[string]map[persona.Persona]string
}

var defaultStore = mustParse(embedded)

// Default returns the built-in templates.
func Default() *Store { return defaultStore }

func mustParse(data []byte) *Store {
	s, err := Parse(data)
	if err != nil {
		panic(fmt.Sprintf("reply: embedded templates: %v", err))
	}
	return s
}

// LoadFile parses a template file laid out like the embedded templates.yaml.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse builds a store and checks that every intent category has a
// non-empty template for every persona.
func Parse(data []byte) (*Store, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Store{templates: make(map[string]map[persona.Persona]string, len(raw))}
	for category, byPersona := range raw {
		m := make(map[persona.Persona]string, len(byPersona))
		for name, text := range byPersona {
			p, err := persona.Parse(name)
			if err != nil {
				return nil, fmt.Errorf("category %q: %w", category, err)
			}
			m[p] = text
		}
		s.templates[category] = m
	}

	var missing []string
	for _, in := range intent.All() {
		for _, p := range persona.All() {
			if strings.TrimSpace(s.templates[string(in)][p]) == "" {
				missing = append(missing, string(in)+"/"+string(p))
			}
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing templates: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

// Lookup returns the template for category and persona, using the unknown
// category when the store has no such category.
func (s *Store) Lookup(category string, p persona.Persona) string {
	byPersona, ok := s.templates[category]
	if !ok {
		byPersona = s.templates[Fallback]
	}
	return byPersona[p]
}
