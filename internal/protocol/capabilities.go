package protocol

import "slices"

// Method names.
const (
	MethodSearch           = "search"
	MethodMemoryStore      = "memory_store"
	MethodMemorySearch     = "memory_search"
	MethodGetPreferences   = "get_preferences"
	MethodAddDocument      = "add_document"
	MethodDeleteDocument   = "delete_document"
	MethodGetStats         = "get_stats"
	MethodListCapabilities = "list_capabilities"
	MethodMemoryArchive    = "memory_archive"
	MethodMemoryClear      = "memory_clear"
	MethodGetDocument      = "get_document"
	MethodListDocuments    = "list_documents"
)

// Param type names used in the capabilities table.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeObject = "object"
)

// Param describes one method parameter.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Description string `json:"description,omitempty"`
}

// Capability describes one protocol method for client introspection.
type Capability struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Capabilities is the introspection table returned by list_capabilities
// and GET /capabilities.
type Capabilities struct {
	Methods []Capability `json:"methods"`
}

var capabilityTable = []Capability{
	{
		Name:        MethodSearch,
		Description: "Search the knowledge base",
		Params: []Param{
			{Name: "query", Type: TypeString, Required: true, Description: "Free-text query"},
			{Name: "top_k", Type: TypeNumber, Description: "Maximum results (default 5)"},
		},
	},
	{
		Name:        MethodMemoryStore,
		Description: "Store a conversation message in short-term memory",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Required: true},
			{Name: "data", Type: TypeObject, Required: true, Description: `Message {"role": "user"|"assistant", "content": string}`},
		},
	},
	{
		Name:        MethodMemorySearch,
		Description: "Retrieve recent conversation and related long-term memories",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Required: true},
			{Name: "query", Type: TypeString, Description: "Long-term search query; empty skips the search"},
			{Name: "limit", Type: TypeNumber, Description: "Recent messages to return (default 10)"},
		},
	},
	{
		Name:        MethodGetPreferences,
		Description: "Get user preferences",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Required: true},
		},
	},
	{
		Name:        MethodAddDocument,
		Description: "Add or replace a document in the knowledge base",
		Params: []Param{
			{Name: "doc_id", Type: TypeString, Required: true},
			{Name: "content", Type: TypeString, Required: true},
			{Name: "metadata", Type: TypeObject},
		},
	},
	{
		Name:        MethodDeleteDocument,
		Description: "Delete a document from the knowledge base",
		Params: []Param{
			{Name: "doc_id", Type: TypeString, Required: true},
		},
	},
	{
		Name:        MethodGetDocument,
		Description: "Fetch a stored document by id",
		Params: []Param{
			{Name: "doc_id", Type: TypeString, Required: true},
		},
	},
	{
		Name:        MethodListDocuments,
		Description: "List document ids in insertion order",
		Params:      []Param{},
	},
	{
		Name:        MethodMemoryArchive,
		Description: "Archive a question/answer pair in long-term memory",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Required: true},
			{Name: "qa_text", Type: TypeString, Required: true},
			{Name: "topic", Type: TypeString, Description: `Defaults to "general"`},
		},
	},
	{
		Name:        MethodMemoryClear,
		Description: "Clear a user's short-term history and preferences",
		Params: []Param{
			{Name: "user_id", Type: TypeString, Required: true},
		},
	},
	{
		Name:        MethodGetStats,
		Description: "Get system statistics",
		Params:      []Param{},
	},
	{
		Name:        MethodListCapabilities,
		Description: "List server capabilities",
		Params:      []Param{},
	},
}

// Describe returns the static capabilities table. The result is a copy.
func Describe() Capabilities {
	methods := make([]Capability, len(capabilityTable))
	for i, c := range capabilityTable {
		c.Params = slices.Clone(c.Params)
		methods[i] = c
	}
	return Capabilities{Methods: methods}
}
