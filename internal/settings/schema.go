package settings

import (
	"errors"
	"fmt"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
)

// ErrSchemaMissing is returned when settings_schema.json cannot be found.
var ErrSchemaMissing = errors.New("settings schema missing")

// FieldType is the declared type of a settings field.
type FieldType string

const (
	TypeBool   FieldType = "bool"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeString FieldType = "string"
	TypePath   FieldType = "path"
	TypeEnum   FieldType = "enum"
	TypeArray  FieldType = "array"
	TypeDict   FieldType = "dict"
	TypeObject FieldType = "object"
)

// Scope selects the layer a field is written to.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLocal  Scope = "local"
	ScopeSecret Scope = "secret"
)

// FieldSpec describes one settings key.
type FieldSpec struct {
	Key        string    `json:"key"`
	Type       FieldType `json:"type"`
	Label      string    `json:"label,omitempty"`
	Default    any       `json:"default,omitempty"`
	Min        *float64  `json:"min,omitempty"`
	Max        *float64  `json:"max,omitempty"`
	Enum       []any     `json:"enum,omitempty"`
	Values     []any     `json:"values,omitempty"`
	ValueType  FieldType `json:"value_type,omitempty"`
	Scope      Scope     `json:"scope,omitempty"`
	Deprecated bool      `json:"deprecated,omitempty"`
}

// Choices returns the allowed values from enum and values combined.
func (f FieldSpec) Choices() []any {
	return append(append([]any(nil), f.Enum...), f.Values...)
}

// TargetScope returns the write scope, global when unset.
func (f FieldSpec) TargetScope() Scope {
	switch f.Scope {
	case ScopeLocal, ScopeSecret:
		return f.Scope
	default:
		return ScopeGlobal
	}
}

// Group is a labelled list of fields inside a tab.
type Group struct {
	Label  string      `json:"label"`
	Fields []FieldSpec `json:"fields"`
}

// Tab is a settings tab; subtabs nest recursively.
type Tab struct {
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title"`
	Groups  []Group `json:"groups"`
	Subtabs []Tab   `json:"subtabs,omitempty"`
}

// Schema is the parsed settings_schema.json.
type Schema struct {
	ConfigVersion any         `json:"config_version"`
	Tabs          []Tab       `json:"tabs,omitempty"`
	Options       []FieldSpec `json:"options,omitempty"`

	fields []FieldSpec
	index  map[string]int
}

// LoadSchema reads and indexes a schema file.
func LoadSchema(path string) (*Schema, error) {
	var s Schema
	if err := jsonio.Read(path, &s); err != nil {
		if errors.Is(err, jsonio.ErrMissing) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaMissing, path)
		}
		return nil, fmt.Errorf("loading schema: %w", err)
	}
	s.buildIndex()
	return &s, nil
}

// NewSchema builds an indexed schema from flat options (used by tools and tests).
func NewSchema(fields ...FieldSpec) *Schema {
	s := &Schema{ConfigVersion: 1, Options: fields}
	s.buildIndex()
	return s
}

func (s *Schema) buildIndex() {
	s.fields = nil
	s.index = map[string]int{}

	add := func(f FieldSpec) {
		if f.Key == "" {
			return
		}
		if _, dup := s.index[f.Key]; dup {
			return
		}
		s.index[f.Key] = len(s.fields)
		s.fields = append(s.fields, f)
	}

	var walk func(tabs []Tab)
	walk = func(tabs []Tab) {
		for _, tab := range tabs {
			for _, g := range tab.Groups {
				for _, f := range g.Fields {
					add(f)
				}
			}
			walk(tab.Subtabs)
		}
	}

	walk(s.Tabs)
	for _, f := range s.Options {
		add(f)
	}
}

// Fields returns every field in declaration order; the first declaration of
// a key wins.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field looks up a field by key.
func (s *Schema) Field(key string) (FieldSpec, bool) {
	i, ok := s.index[key]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}
