package models

import "encoding/json"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one entry of the conversation replayed to the completion
// endpoint. Tool messages must answer a ToolCallID emitted by an earlier
// assistant message in the same slice.
type ChatMessage struct {
	Role       string           `json:"role"` // system, user, assistant or tool
	Content    string           `json:"content"`
	ToolCalls  []ToolInvocation `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"` // tool name on tool messages
}

// ToolInvocation is a tool call requested by the assistant. Arguments holds
// the raw JSON object text exactly as the endpoint produced it.
type ToolInvocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ClientCall is a tool invocation the browser must execute itself.
type ClientCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

// AssistantTurn is what one completion round trip returned.
type AssistantTurn struct {
	Content   string
	ToolCalls []ToolInvocation
}

// CopyMessages returns a copy of msgs that shares no backing array with it.
func CopyMessages(msgs []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(msgs))
	copy(out, msgs)
	return out
}
