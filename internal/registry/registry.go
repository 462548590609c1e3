// Package registry defines the fixed set of record tools, their argument
// schemas and their defaults.
package registry

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const subjectOnlySchema = `{
	"type": "object",
	"required": ["password", "subject_id"],
	"properties": {
		"password": {"type": "string"},
		"subject_id": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`

const subjectWithLimitSchema = `{
	"type": "object",
	"required": ["password", "subject_id"],
	"properties": {
		"password": {"type": "string"},
		"subject_id": {"type": "string", "minLength": 1},
		"limit": {"type": "integer", "minimum": 1, "maximum": 100}
	},
	"additionalProperties": false
}`

const passwordOnlySchema = `{
	"type": "object",
	"required": ["password"],
	"properties": {
		"password": {"type": "string"}
	},
	"additionalProperties": false
}`

// Registry is an immutable lookup of tool definitions.
type Registry struct {
	tools map[string]*ToolDefinition
}

// New compiles the schemas of the given definitions.
func New(defs ...*ToolDefinition) (*Registry, error) {
	r := &Registry{tools: make(map[string]*ToolDefinition, len(defs))}
	for _, td := range defs {
		sch, err := compileSchema(td.Name, td.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("New: %s: %w", td.Name, err)
		}
		td.schema = sch
		r.tools[td.Name] = td
	}
	return r, nil
}

// Default returns the registry of the five record tools.
func Default() *Registry {
	r, err := New(
		&ToolDefinition{
			Name:        ToolListSubjects,
			Description: "List all patient IDs",
			InputSchema: []byte(passwordOnlySchema),
		},
		&ToolDefinition{
			Name:        ToolGetIdentity,
			Description: "Get core demographics",
			InputSchema: []byte(subjectOnlySchema),
		},
		&ToolDefinition{
			Name:         ToolGetReadings,
			Description:  "Latest vitals (limit=3)",
			InputSchema:  []byte(subjectWithLimitSchema),
			DefaultLimit: DefaultReadingsLimit,
		},
		&ToolDefinition{
			Name:        ToolGetMedications,
			Description: "Active medications",
			InputSchema: []byte(subjectOnlySchema),
		},
		&ToolDefinition{
			Name:         ToolGetHistory,
			Description:  "Problem / social / surgical history (limit=5)",
			InputSchema:  []byte(subjectWithLimitSchema),
			DefaultLimit: DefaultHistoryLimit,
		},
	)
	if err != nil {
		panic(fmt.Sprintf("registry: built-in schemas must compile: %v", err))
	}
	return r
}

// GetTool returns nil when the tool is not registered.
func (r *Registry) GetTool(name string) *ToolDefinition {
	return r.tools[name]
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// List returns the definitions sorted by name.
func (r *Registry) List() []*ToolDefinition {
	names := r.Names()
	defs := make([]*ToolDefinition, len(names))
	for i, name := range names {
		defs[i] = r.tools[name]
	}
	return defs
}

// Validate checks decoded JSON arguments against the tool's schema.
func (td *ToolDefinition) Validate(args map[string]any) error {
	if td.schema == nil {
		return fmt.Errorf("Validate: %s: schema not compiled", td.Name)
	}
	if err := td.schema.Validate(toAny(args)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func compileSchema(name string, raw []byte) (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema unmarshal error: %w", err)
	}

	url := name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("schema compile error: %w", err)
	}
	sch, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("schema compile error: %w", err)
	}
	return sch, nil
}

// toAny widens the map so the validator sees a plain JSON object.
func toAny(args map[string]any) any {
	if args == nil {
		return map[string]any{}
	}
	return args
}
