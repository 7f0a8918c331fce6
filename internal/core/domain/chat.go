package domain

import "strings"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid returns true if the role is recognised.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ValidateConversation checks that a message history can be sent to the chat
// pipeline: non-empty, known roles, and ending with a user turn.
func ValidateConversation(messages []Message) error {
	if len(messages) == 0 {
		return ErrEmptyConversation
	}
	for _, m := range messages {
		if !m.Role.IsValid() {
			return ErrInvalidInput
		}
	}
	if messages[len(messages)-1].Role != RoleUser {
		return ErrLastMessageNotUser
	}
	return nil
}

// LastUserMessage returns the content of the final message when it is a user turn.
func LastUserMessage(messages []Message) (string, bool) {
	if len(messages) == 0 || messages[len(messages)-1].Role != RoleUser {
		return "", false
	}
	return messages[len(messages)-1].Content, true
}

// ChatRequest is the input to the chat entry point.
type ChatRequest struct {
	// Messages is the full conversation, ending with a user turn.
	Messages []Message `json:"messages"`

	// FileID scopes retrieval to a single document.
	FileID string `json:"fileId"`
}

// Validate checks the request is well formed.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.FileID) == "" {
		return ErrMissingDocumentID
	}
	return ValidateConversation(r.Messages)
}

// Token is one piece of a streamed generation.
// A token with a non-nil Err is the last value on its stream.
type Token struct {
	Text string
	Err  error
}
