package rag

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/flemzord/recall/internal/ingest"
	"github.com/flemzord/recall/internal/knowledge"
	"github.com/flemzord/recall/internal/memory"
	"github.com/flemzord/recall/internal/provider"
)

const systemPrompt = `You are a helpful assistant with access to a knowledge base and to what you remember about the user.

Instructions:
1. Prefer the user's stated preferences and the recent conversation over general knowledge.
2. Use knowledge base excerpts only when they are relevant to the question.
3. Refer back to earlier parts of the conversation when it helps.
4. If you do not know something, say so plainly.
5. Be conversational, specific and concise.`

// BuildPrompt assembles the generation request: a system message with
// the instructions, then one user message carrying the retrieved context
// and the query.
func BuildPrompt(query string, docs []knowledge.Result, mc memory.Context, prefs map[string]any, cfg Config) []provider.LLMMessage {
	cfg.Defaults()

	var b strings.Builder
	b.WriteString("Context:\n")

	wrote := false
	if len(docs) > 0 {
		b.WriteString("\nRelevant knowledge:\n")
		for i, d := range docs[:min(cfg.Snippets, len(docs))] {
			fmt.Fprintf(&b, "%d. %s\n", i+1, ingest.Truncate(d.Content, cfg.SnippetLength))
		}
		wrote = true
	}

	if recent := mc.RecentContext; len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, m := range recent[max(0, len(recent)-cfg.RecentTurns):] {
			fmt.Fprintf(&b, "- %s: %s\n", titleCase(string(m.Role)), m.Content)
		}
		wrote = true
	}

	if len(mc.LongTermContext) > 0 {
		b.WriteString("\nEarlier exchanges:\n")
		for _, r := range mc.LongTermContext {
			fmt.Fprintf(&b, "- %s\n", ingest.Truncate(r.Content, cfg.SnippetLength))
		}
		wrote = true
	}

	if len(prefs) > 0 {
		b.WriteString("\nUser preferences:\n")
		for _, k := range slices.Sorted(maps.Keys(prefs)) {
			fmt.Fprintf(&b, "- %s: %v\n", k, prefs[k])
		}
		wrote = true
	}

	if !wrote {
		b.WriteString("No specific context available.\n")
	}
	fmt.Fprintf(&b, "\nUser query: %s", query)

	return []provider.LLMMessage{
		{Role: provider.MessageRoleSystem, Content: systemPrompt},
		{Role: provider.MessageRoleUser, Content: b.String()},
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
