package models

// Sender values for Message.Sender.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

type Message struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"` // user | bot
	Content string `json:"content"`
	// TS is the append timestamp (ns). Messages within a conversation are
	// stored and listed in non-decreasing TS order.
	TS int64 `json:"ts"`
	// Reactions maps a reacting user id -> reaction type
	// (like, dislike, helpful, not_helpful).
	Reactions map[string]string `json:"reactions,omitempty"`
}

// Conversation is per-user metadata; the messages themselves are stored as
// individual keys under the conversation prefix.
type Conversation struct {
	UserID    string `json:"user_id"`
	CreatedTS int64  `json:"created_ts"`
	// UpdatedTS records the timestamp (ns) of the most recent append.
	UpdatedTS int64 `json:"updated_ts"`
}
