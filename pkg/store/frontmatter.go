package store

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/stefanpenner/anchor/pkg/goals"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter reads a goal file: YAML frontmatter holding the goal and
// its task tree, followed by the motivation as a markdown body. The returned
// goal has its back-references linked.
func ParseFrontmatter(content string) (*goals.Goal, error) {
	content = strings.TrimSpace(content)

	if !strings.HasPrefix(content, frontmatterDelimiter) {
		return nil, fmt.Errorf("missing frontmatter")
	}

	// Find the closing delimiter
	rest := content[len(frontmatterDelimiter):]
	idx := strings.Index(rest, "\n"+frontmatterDelimiter)
	if idx == -1 {
		return nil, fmt.Errorf("unclosed frontmatter delimiter")
	}

	yamlContent := rest[:idx]
	body := rest[idx+len("\n"+frontmatterDelimiter):]
	body = strings.TrimLeft(body, "\n")

	var g goals.Goal
	if err := yaml.Unmarshal([]byte(yamlContent), &g); err != nil {
		return nil, fmt.Errorf("parsing frontmatter YAML: %w", err)
	}
	if g.ID == "" {
		return nil, fmt.Errorf("frontmatter has no id")
	}

	g.Motivation = strings.TrimRight(body, "\n")
	g.Link()
	return &g, nil
}

// SerializeFrontmatter renders a goal back to markdown with YAML frontmatter.
func SerializeFrontmatter(g *goals.Goal) (string, error) {
	yamlBytes, err := yaml.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("serializing frontmatter YAML: %w", err)
	}

	var b strings.Builder
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(string(yamlBytes), "\n"))
	b.WriteString("\n")
	b.WriteString(frontmatterDelimiter)
	b.WriteString("\n")
	if g.Motivation != "" {
		b.WriteString("\n")
		b.WriteString(g.Motivation)
		if !strings.HasSuffix(g.Motivation, "\n") {
			b.WriteString("\n")
		}
	}

	return b.String(), nil
}
