package model

import "encoding/json"

// CorrelationID is the tool call id shared by an invocation and every result answering it.
type CorrelationID string

func (id CorrelationID) String() string { return string(id) }

// ToolInvocation is a client-side tool call emitted by the assistant and
// waiting for the UI to answer it.
type ToolInvocation struct {
	ID        CorrelationID   `json:"toolCallId"`
	Name      string          `json:"toolName"`
	Arguments json.RawMessage `json:"args,omitempty"`
}

// ToolResult is the structured outcome of a tool invocation.
type ToolResult struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

// NewToolResult builds a ToolResult.
func NewToolResult(success bool, data any) ToolResult {
	return ToolResult{Success: success, Data: data}
}

// String encodes the result the way the transcript stores it.
func (r ToolResult) String() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"success":false,"data":{"error":"unencodable tool result"}}`
	}
	return string(b)
}

// ToolCallResult is what gets handed back to the conversation host.
type ToolCallResult struct {
	ToolCallID CorrelationID `json:"toolCallId"`
	ToolName   string        `json:"toolName,omitempty"`
	Result     string        `json:"result"`
}
