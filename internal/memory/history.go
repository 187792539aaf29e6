package memory

import (
	"time"
)

// Role identifies who produced a conversation message.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is a known conversation role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one conversation turn kept in short-term memory.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultShortTermLimit is the number of messages kept per user.
const DefaultShortTermLimit = 20

// History is a per-user, capacity-bounded message log. The oldest
// messages are dropped once a user exceeds the limit.
type History struct {
	limit int
	users *shardedMap[[]Message]
}

// NewHistory returns an empty history keeping at most limit messages per
// user. A non-positive limit selects DefaultShortTermLimit.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultShortTermLimit
	}
	return &History{limit: limit, users: newShardedMap[[]Message]()}
}

// Append adds msg to the user's log, evicting the oldest entries beyond
// the limit.
func (h *History) Append(userID string, msg Message) {
	sh := h.users.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	msgs := append(sh.m[userID], msg)
	if over := len(msgs) - h.limit; over > 0 {
		copy(msgs, msgs[over:])
		msgs = msgs[:h.limit]
	}
	sh.m[userID] = msgs
}

// Recent returns a copy of the user's last n messages in chronological
// order. Unknown users yield nil.
func (h *History) Recent(userID string, n int) []Message {
	sh := h.users.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	msgs := sh.m[userID]
	if n < len(msgs) {
		msgs = msgs[len(msgs)-n:]
	}
	if len(msgs) == 0 {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// Clear forgets every message of userID.
func (h *History) Clear(userID string) {
	h.users.delete(userID)
}

// Users returns the number of users with at least one message.
func (h *History) Users() int {
	return h.users.sum(func([]Message) int { return 1 })
}

// Total returns the number of messages across all users.
func (h *History) Total() int {
	return h.users.sum(func(m []Message) int { return len(m) })
}
