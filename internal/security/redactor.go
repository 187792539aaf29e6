// Package security holds the secret-handling and abuse-protection pieces
// shared by recall's transports: a redactor that scrubs API keys from
// logs and config dumps, a slog handler applying it, and a per-client
// rate limiter for the HTTP gateway.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// secretKeyPattern matches map keys that likely contain secrets.
var secretKeyPattern = regexp.MustCompile(`(?i)(secret|token|password|pass$|key|credential)`)

// Redactor replaces secret values in strings and maps. It knows the
// shapes of common provider API keys and any literal value registered
// at startup (the configured keys themselves). Safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	patterns []*regexp.Regexp
	literals []string
}

// NewRedactor creates a Redactor pre-loaded with DefaultPatterns.
func NewRedactor() *Redactor {
	return &Redactor{patterns: DefaultPatterns()}
}

// AddPattern adds a compiled pattern.
func (r *Redactor) AddPattern(pattern *regexp.Regexp) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.patterns = append(r.patterns, pattern)
}

// AddLiteral registers secret values that must never appear in output.
// Values shorter than four bytes are ignored; replacing them would
// mangle ordinary text.
func (r *Redactor) AddLiteral(secrets ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range secrets {
		if len(s) < 4 {
			continue
		}
		r.literals = append(r.literals, s)
	}
}

// Redact replaces every known secret in s with RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	patterns := r.patterns
	literals := r.literals
	r.mu.RUnlock()

	// Literals first: a configured key may also match a pattern only
	// partially.
	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}
	for _, p := range patterns {
		s = p.ReplaceAllString(s, RedactPlaceholder)
	}
	return s
}

// RedactMap walks m in place. Non-empty string values under secret-looking
// keys are replaced outright; every other string goes through Redact.
func (r *Redactor) RedactMap(m map[string]any) {
	for k, v := range m {
		if IsSecretKey(k) {
			if s, ok := v.(string); ok && s != "" {
				m[k] = RedactPlaceholder
				continue
			}
		}
		switch val := v.(type) {
		case map[string]any:
			r.RedactMap(val)
		case []any:
			for i, item := range val {
				switch it := item.(type) {
				case map[string]any:
					r.RedactMap(it)
				case string:
					val[i] = r.Redact(it)
				}
			}
		case string:
			m[k] = r.Redact(val)
		}
	}
}

// IsSecretKey reports whether a config or map key likely names a secret.
func IsSecretKey(k string) bool { return secretKeyPattern.MatchString(k) }

// DefaultPatterns returns patterns for the API key formats recall's
// providers use, plus bearer tokens in headers echoed into errors.
func DefaultPatterns() []*regexp.Regexp {
	return []*regexp.Regexp{
		// Anthropic: sk-ant-...
		regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]{20,}`),
		// OpenAI: sk-... and sk-proj-...
		regexp.MustCompile(`sk-(proj-)?[a-zA-Z0-9\-_]{20,}`),
		// Authorization: Bearer <token>
		regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.=]{16,}`),
	}
}
