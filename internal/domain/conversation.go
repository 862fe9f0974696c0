package domain

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one role-tagged message of a bot conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
