// Package registry holds the standardized bank line items and the
// source tags each one is resolved from.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/banklab/internal/model"
)

// ErrUnknownConcept is returned when a requested concept is not in the registry
var ErrUnknownConcept = errors.New("unknown concept")

// allowedNamespaces are the taxonomies a tag may come from
var allowedNamespaces = []string{"us-gaap:", "dei:", "srt:"}

var byName = func() map[string]int {
	if err := Validate(lineItems); err != nil {
		panic(fmt.Sprintf("registry: %v", err))
	}
	idx := make(map[string]int, len(lineItems))
	for i, def := range lineItems {
		idx[def.Name] = i
	}
	return idx
}()

// Lookup returns the definition for a standardized concept name
func Lookup(name string) (model.LineItemDefinition, error) {
	i, ok := byName[name]
	if !ok {
		return model.LineItemDefinition{}, fmt.Errorf("lookup %q: %w", name, ErrUnknownConcept)
	}
	return clone(lineItems[i]), nil
}

// MustLookup is Lookup for names known at compile time
func MustLookup(name string) model.LineItemDefinition {
	def, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return def
}

// All returns every definition in table order
func All() []model.LineItemDefinition {
	defs := make([]model.LineItemDefinition, len(lineItems))
	for i, def := range lineItems {
		defs[i] = clone(def)
	}
	return defs
}

// Names returns concept names in table order
func Names() []string {
	names := make([]string, len(lineItems))
	for i, def := range lineItems {
		names[i] = def.Name
	}
	return names
}

// ByCategory returns the definitions of one statement category
func ByCategory(cat model.Category) []model.LineItemDefinition {
	var defs []model.LineItemDefinition
	for _, def := range lineItems {
		if def.Category == cat {
			defs = append(defs, clone(def))
		}
	}
	return defs
}

// Validate checks a definition table: every definition has a name and at least
// one namespaced tag, and no name appears twice.
func Validate(defs []model.LineItemDefinition) error {
	seen := make(map[string]bool, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return errors.New("definition with empty name")
		}
		if seen[def.Name] {
			return fmt.Errorf("duplicate definition %q", def.Name)
		}
		seen[def.Name] = true

		if len(def.Tags) == 0 {
			return fmt.Errorf("definition %q has no tags", def.Name)
		}
		for _, tag := range def.Tags {
			if !hasAllowedNamespace(tag) {
				return fmt.Errorf("definition %q: tag %q has no recognized namespace", def.Name, tag)
			}
		}
		if def.Unit == "" {
			return fmt.Errorf("definition %q has no unit", def.Name)
		}
	}
	return nil
}

func hasAllowedNamespace(tag string) bool {
	for _, ns := range allowedNamespaces {
		if strings.HasPrefix(tag, ns) && len(tag) > len(ns) {
			return true
		}
	}
	return false
}

// clone copies the tag slice so callers cannot modify the table
func clone(def model.LineItemDefinition) model.LineItemDefinition {
	def.Tags = append([]string(nil), def.Tags...)
	return def
}

// DictionaryEntry documents one line item for the data dictionary output
type DictionaryEntry struct {
	LineItem     string
	DisplayName  string
	Category     model.Category
	IsFlow       bool
	ExpectedSign model.Sign
	Unit         model.Unit
	PrimaryTag   string
	FallbackTags string // comma separated, empty when there is only one tag
	Description  string
}

// DataDictionary documents every line item in table order
func DataDictionary() []DictionaryEntry {
	entries := make([]DictionaryEntry, 0, len(lineItems))
	for _, def := range lineItems {
		entries = append(entries, DictionaryEntry{
			LineItem:     def.Name,
			DisplayName:  def.DisplayName,
			Category:     def.Category,
			IsFlow:       def.IsFlow,
			ExpectedSign: def.ExpectedSign,
			Unit:         def.Unit,
			PrimaryTag:   def.PrimaryTag(),
			FallbackTags: strings.Join(def.FallbackTags(), ", "),
			Description:  def.Description,
		})
	}
	return entries
}
