package llmsummary

import openai "github.com/sashabaranov/go-openai"

const (
	RoleSystem = openai.ChatMessageRoleSystem
	RoleUser   = openai.ChatMessageRoleUser
)

// Message is one role-tagged prompt entry.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
