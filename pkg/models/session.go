package models

import "time"

// Role identifies the author side of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DefaultTitle is the placeholder title a session carries until its first
// message arrives.
const DefaultTitle = "New Chat"

// TitleMaxLen is the number of characters kept when a session title is
// derived from the first message.
const TitleMaxLen = 30

// Message is a single transcript entry. Messages are append-only: sessions
// never edit or remove individual messages.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is a titled, timestamped transcript owned by one identity.
type ChatSession struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeriveTitle produces a session title from its first message: the content
// truncated to TitleMaxLen characters with an ellipsis marker when cut.
// Truncation counts runes so multi-byte content is not split mid-character.
func DeriveTitle(content string) string {
	r := []rune(content)
	if len(r) <= TitleMaxLen {
		return content
	}
	return string(r[:TitleMaxLen]) + "..."
}

// SessionPatch carries the optional fields a session update may merge.
// Nil fields are left untouched.
type SessionPatch struct {
	Title    *string   `json:"title,omitempty"`
	Messages []Message `json:"messages,omitempty"`
}
