package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envPattern matches ${VAR} and ${VAR:-default} expressions.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-((?:[^}\\\n]|\\.)*))?\}`)

// Load reads a YAML configuration file, expands environment variables,
// parses it and applies defaults. Structural checks are left to Validate,
// which needs the module registry populated.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	expanded, err := expandEnv(raw, os.LookupEnv)
	if err != nil {
		return nil, fmt.Errorf("config: expanding variables in %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	cfg.Defaults()
	return &cfg, nil
}

// unresolvedVar is a ${VAR} with neither an environment value nor a
// default.
type unresolvedVar struct {
	name string
	line int
}

// expandEnv replaces ${VAR} and ${VAR:-default} patterns line by line.
// Every unresolved variable is reported with the dotted key that uses it,
// e.g. "modules.provider.anthropic.api_key (line 12): RECALL_KEY".
func expandEnv(raw []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var missing []unresolvedVar

	lines := bytes.SplitAfter(raw, []byte("\n"))
	for i, line := range lines {
		lines[i] = envPattern.ReplaceAllFunc(line, func(match []byte) []byte {
			subs := envPattern.FindSubmatch(match)
			name := string(subs[1])
			if value, ok := lookup(name); ok {
				return []byte(value)
			}
			if subs[2] != nil {
				return subs[2]
			}
			missing = append(missing, unresolvedVar{name: name, line: i + 1})
			return match
		})
	}
	if len(missing) == 0 {
		return bytes.Join(lines, nil), nil
	}

	keys := keyPaths(raw)
	errs := make([]error, 0, len(missing))
	for _, m := range missing {
		where := fmt.Sprintf("line %d", m.line)
		if key, ok := keys[m.line]; ok {
			where = fmt.Sprintf("%s (line %d)", key, m.line)
		}
		errs = append(errs, fmt.Errorf("%s: unresolved variable %s", where, m.name))
	}
	return nil, errors.Join(errs...)
}

// keyPaths maps the line of every scalar value in raw to its dotted key
// path. Sequence items are addressed as key[i]. A document that does not
// parse yields an empty map.
func keyPaths(raw []byte) map[int]string {
	out := make(map[int]string)
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil || len(doc.Content) == 0 {
		return out
	}

	var walk func(n *yaml.Node, path []string)
	walk = func(n *yaml.Node, path []string) {
		switch n.Kind {
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				walk(n.Content[i+1], append(path, n.Content[i].Value))
			}
		case yaml.SequenceNode:
			for i, item := range n.Content {
				p := append([]string(nil), path...)
				if len(p) > 0 {
					p[len(p)-1] = fmt.Sprintf("%s[%d]", p[len(p)-1], i)
				}
				walk(item, p)
			}
		case yaml.ScalarNode:
			if _, seen := out[n.Line]; !seen {
				out[n.Line] = strings.Join(path, ".")
			}
		}
	}
	walk(doc.Content[0], nil)
	return out
}
