package assistant

import "fmt"

// Role identifies the author of a thread message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RunStatus is the lifecycle state of a run as reported by the platform.
// Anything outside queued/in_progress is terminal; only completed carries
// a usable assistant response.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Terminal reports whether the status will not change without intervention.
func (s RunStatus) Terminal() bool {
	return s != RunStatusQueued && s != RunStatusInProgress
}

// Thread is a server-side conversation container.
type Thread struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	CreatedAt int64  `json:"created_at"`
}

// Tool enables a capability on a message attachment or an assistant.
type Tool struct {
	Type string `json:"type"`
}

// ToolFileSearch marks an attachment as searchable by the assistant's
// retrieval tool.
var ToolFileSearch = Tool{Type: "file_search"}

// Attachment binds a stored file to a message.
type Attachment struct {
	FileID string `json:"file_id"`
	Tools  []Tool `json:"tools,omitempty"`
}

// TextContent is the text body of a message content part.
type TextContent struct {
	Value string `json:"value"`
}

// ContentPart is one element of a message's content array. Only parts of
// type "text" carry a Text payload.
type ContentPart struct {
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

// Message is an ordered utterance in a thread. Owned by the platform;
// this client only appends and reads.
type Message struct {
	ID          string        `json:"id"`
	Object      string        `json:"object"`
	CreatedAt   int64         `json:"created_at"`
	ThreadID    string        `json:"thread_id"`
	Role        Role          `json:"role"`
	RunID       string        `json:"run_id,omitempty"`
	Content     []ContentPart `json:"content"`
	Attachments []Attachment  `json:"attachments,omitempty"`
}

// RunError is the platform's diagnostic for a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Run is one asynchronous invocation of an assistant against a thread.
type Run struct {
	ID          string    `json:"id"`
	Object      string    `json:"object"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
	LastError   *RunError `json:"last_error,omitempty"`
}

// FileObject is the platform's record of an uploaded file.
type FileObject struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

// Assistant is the configured assistant identity.
type Assistant struct {
	ID           string `json:"id"`
	Object       string `json:"object"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Instructions string `json:"instructions"`
	Tools        []Tool `json:"tools"`
}

// MessageCreateParams describes a message append.
type MessageCreateParams struct {
	Role        Role         `json:"role"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// AssistantCreateParams describes a new assistant identity.
type AssistantCreateParams struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Model        string `json:"model"`
	Tools        []Tool `json:"tools"`
}

type runCreateParams struct {
	AssistantID string `json:"assistant_id"`
}

type messageList struct {
	Object  string    `json:"object"`
	Data    []Message `json:"data"`
	FirstID string    `json:"first_id"`
	LastID  string    `json:"last_id"`
	HasMore bool      `json:"has_more"`
}

type errorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// APIError is a non-2xx response from the platform, decoded from its
// error envelope when possible.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("assistant API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("assistant API error (status %d)", e.StatusCode)
}
