// Package registry holds the static field configuration: which fields exist,
// their datatypes, and the operators each field allows.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/solatis/querykeeper/internal/types"
	"gopkg.in/yaml.v3"
)

// Value editor types reported by ValueEditorType.
const (
	EditorNone   = ""
	EditorSelect = "select"
	EditorText   = "text"
)

//go:embed default_fields.yaml
var defaultDocument []byte

// defaultValueOptions are served for isInList when a document declares none.
var defaultValueOptions = []types.Option{
	{Name: "dropDown1", Label: "Drop Down 1"},
	{Name: "dropDown2", Label: "Drop Down 2"},
	{Name: "dropDown3", Label: "Drop Down 3"},
}

// ErrInvalidDocument indicates a field configuration that cannot be indexed.
var ErrInvalidDocument = errors.New("invalid field configuration")

// Document is the on-disk field configuration. JSON documents parse as
// YAML, so a single decoder handles both formats.
type Document struct {
	Fields       []types.FieldConfig `yaml:"fields"`
	Operators    map[string][]string `yaml:"operators"`
	ValueOptions []types.Option      `yaml:"valueOptions"`
}

// Registry is the read-only, indexed form of a Document.
// Safe for concurrent use: nothing mutates it after construction.
type Registry struct {
	fields    []types.FieldConfig
	byName    map[string]int
	operators map[string][]string
	options   []types.Option
}

// New indexes a document, rejecting duplicate or incomplete fields and
// operator lists for undeclared fields.
func New(doc Document) (*Registry, error) {
	r := &Registry{
		fields:    make([]types.FieldConfig, 0, len(doc.Fields)),
		byName:    make(map[string]int, len(doc.Fields)),
		operators: make(map[string][]string, len(doc.Operators)),
		options:   append([]types.Option(nil), doc.ValueOptions...),
	}
	if len(r.options) == 0 {
		r.options = append(r.options, defaultValueOptions...)
	}

	for _, f := range doc.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("%w: field with empty name", ErrInvalidDocument)
		}
		if f.Datatype == "" {
			return nil, fmt.Errorf("%w: field %q has no datatype", ErrInvalidDocument, f.Name)
		}
		if _, dup := r.byName[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidDocument, f.Name)
		}
		r.byName[f.Name] = len(r.fields)
		r.fields = append(r.fields, f)
	}

	for name, ops := range doc.Operators {
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("%w: operators declared for unknown field %q", ErrInvalidDocument, name)
		}
		r.operators[name] = append([]string(nil), ops...)
	}

	return r, nil
}

// Parse decodes a YAML or JSON document and indexes it.
func Parse(data []byte) (*Registry, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return New(doc)
}

// Load reads the document at path; an empty path selects the embedded default.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field configuration: %w", err)
	}
	return Parse(data)
}

// Default returns the registry built from the embedded configuration.
func Default() (*Registry, error) {
	return Parse(defaultDocument)
}

// OperatorsFor returns the ordered operators allowed for field.
// Unknown fields have no operators; the result is never nil.
func (r *Registry) OperatorsFor(field string) []string {
	ops, ok := r.operators[field]
	if !ok {
		return []string{}
	}
	return append([]string(nil), ops...)
}

// Lookup returns the configuration for field.
func (r *Registry) Lookup(field string) (types.FieldConfig, bool) {
	i, ok := r.byName[field]
	if !ok {
		return types.FieldConfig{}, false
	}
	return r.fields[i], true
}

// Fields returns all fields in document order.
func (r *Registry) Fields() []types.FieldConfig {
	return append([]types.FieldConfig(nil), r.fields...)
}

// ValueEditorType reports which value editor a (field, operator) pair uses.
// Range comparisons have no editor, list membership uses a select, and
// everything else falls back to the field's input type or plain text.
func (r *Registry) ValueEditorType(field, op string) string {
	switch op {
	case types.OpGreater, types.OpLess:
		return EditorNone
	case types.OpIsInList:
		return EditorSelect
	}
	if f, ok := r.Lookup(field); ok && f.InputType != "" {
		return f.InputType
	}
	return EditorText
}

// ValueOptions returns the selectable values for list membership.
func (r *Registry) ValueOptions(field, op string) []types.Option {
	if op != types.OpIsInList {
		return []types.Option{}
	}
	return append([]types.Option{}, r.options...)
}
