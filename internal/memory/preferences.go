package memory

import (
	"fmt"
	"strings"
)

// Preferences accumulates facts learned about each user. Writes merge at
// key level; reads return normalised copies.
type Preferences struct {
	users *shardedMap[map[string]any]
}

// NewPreferences returns an empty preference store.
func NewPreferences() *Preferences {
	return &Preferences{users: newShardedMap[map[string]any]()}
}

// Merge overwrites the user's preferences key by key with facts. Keys not
// present in facts are kept. An empty facts map is a no-op.
func (p *Preferences) Merge(userID string, facts map[string]any) {
	if len(facts) == 0 {
		return
	}
	sh := p.users.shardFor(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	prefs, ok := sh.m[userID]
	if !ok {
		prefs = make(map[string]any, len(facts))
		sh.m[userID] = prefs
	}
	for k, v := range facts {
		prefs[k] = copyValue(v)
	}
}

// Get returns a copy of the user's preferences with list values
// normalised. Unknown users yield an empty, non-nil map.
func (p *Preferences) Get(userID string) map[string]any {
	sh := p.users.shardFor(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	prefs := sh.m[userID]
	out := make(map[string]any, len(prefs))
	for k, v := range prefs {
		out[k] = normalizeValue(v)
	}
	return out
}

// Clear forgets all preferences of userID.
func (p *Preferences) Clear(userID string) {
	p.users.delete(userID)
}

// Users returns the number of users with stored preferences.
func (p *Preferences) Users() int {
	return p.users.sum(func(map[string]any) int { return 1 })
}

// normalizeValue trims and lower-cases list items, drops empty ones and
// removes duplicates keeping first-seen order. Other values are returned
// as deep copies.
func normalizeValue(v any) any {
	var items []string
	switch val := v.(type) {
	case []any:
		items = make([]string, 0, len(val))
		for _, item := range val {
			items = append(items, fmt.Sprint(item))
		}
	case []string:
		items = val
	default:
		return copyValue(v)
	}

	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		norm := strings.ToLower(strings.TrimSpace(item))
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// copyValue deep-copies maps and slices so stored preferences never share
// memory with callers.
func copyValue(v any) any {
	switch val := v.(type) {
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = copyValue(item)
		}
		return cp
	case []string:
		cp := make([]string, len(val))
		copy(cp, val)
		return cp
	case map[string]any:
		cp := make(map[string]any, len(val))
		for k, item := range val {
			cp[k] = copyValue(item)
		}
		return cp
	default:
		return v
	}
}
