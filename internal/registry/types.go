package registry

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Tool names served by the worker.
const (
	ToolListSubjects   = "list_subjects"
	ToolGetIdentity    = "get_identity"
	ToolGetReadings    = "get_readings"
	ToolGetMedications = "get_medications"
	ToolGetHistory     = "get_history"
)

// Default row limits when the caller omits "limit".
const (
	DefaultReadingsLimit = 3
	DefaultHistoryLimit  = 5
)

// ToolDefinition describes one record tool.
type ToolDefinition struct {
	Name         string
	Description  string
	InputSchema  json.RawMessage // JSON Schema, served verbatim by tools/list
	DefaultLimit int             // 0 when the tool takes no limit

	schema *jsonschema.Schema
}
