package model

type Conversation struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	RollingSummary string `json:"rolling_summary"`
	MessageCount   int    `json:"message_count"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	ID             string           `json:"id"`
	ConversationID string           `json:"conversation_id"`
	Role           string           `json:"role"`
	Content        string           `json:"content"`
	Sources        []SourceCitation `json:"sources"`
	Ctime          int64            `json:"ctime"`
}

// SourceCitation is a bounded reference to a retrieved chunk, embedded into
// assistant messages for persistence.
type SourceCitation struct {
	FileName   string  `json:"file_name"`
	PageNumber *int    `json:"page_number,omitempty"`
	Excerpt    string  `json:"excerpt"`
	Similarity float32 `json:"similarity"`
	MaterialID string  `json:"material_id"`
}
