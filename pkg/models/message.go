package models

// Message roles for the chat transcript
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents one turn of the conversation transcript.
// Messages are immutable once written: the transcript is only appended
// to and optionally deleted, never edited.
type ChatMessage struct {
	ID        string `json:"id" db:"id"`
	Role      string `json:"role" db:"role"`
	Content   string `json:"content" db:"content"`
	CreatedAt string `json:"createdAt" db:"created_at"` // RFC3339
}
