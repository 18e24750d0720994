package domain

// Output is one element of a model's streamed reply: either a text
// fragment or a tool invocation request. Closed set; dispatch with a
// type switch over Chunk and ToolCall.
type Output interface {
	isOutput()
}

// Chunk is one fragment of streamed model text.
type Chunk struct {
	Text string
}

// ToolCall is a model request to invoke a named tool.
type ToolCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

func (Chunk) isOutput()    {}
func (ToolCall) isOutput() {}

// Update is one element of a turn's output stream. It is a superset of
// Output: every model output is forwarded as-is, and each completed
// tool call is followed by a Result carrying what the tool returned.
type Update interface {
	isUpdate()
}

// Result notifies the client of a resolved tool call. It always
// immediately follows the ToolCall it belongs to.
type Result struct {
	Value any
}

func (Chunk) isUpdate()    {}
func (ToolCall) isUpdate() {}
func (Result) isUpdate()   {}
