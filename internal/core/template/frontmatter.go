package template

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/layerprompt/layerprompt/internal/core"
)

// Meta is the optional YAML frontmatter of a prompt template.
type Meta struct {
	Title             string   `yaml:"title,omitempty"`
	Description       string   `yaml:"description,omitempty"`
	RequiredVariables []string `yaml:"required_variables,omitempty"`
}

// Template is a parsed prompt template.
type Template struct {
	Meta   Meta
	Body   string
	Source string
}

// Parse splits an optional `---` delimited YAML frontmatter from the body.
// The block counts as frontmatter only when it is empty or a YAML mapping;
// anything else, and a file without the block, is all body.
func Parse(source string, data []byte) (*Template, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\r\n\t "), []byte("---")) {
		return &Template{Body: string(data), Source: source}, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), len(data)+1)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
		closed      bool
	)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "":
			continue
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case !headerSeen:
			return &Template{Body: string(data), Source: source}, nil
		case inFront && strings.TrimSpace(line) == "---":
			inFront = false
			closed = true
		case inFront:
			frontmatter = append(frontmatter, line)
		default:
			body = append(body, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan template %s: %w", source, err)
	}
	if !closed {
		// An unterminated block is treated as plain body text.
		return &Template{Body: string(data), Source: source}, nil
	}

	block := strings.Join(frontmatter, "\n")
	var meta Meta
	if strings.TrimSpace(block) != "" {
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(block), &doc); err != nil || !isMapping(&doc) {
			// A leading horizontal rule, not frontmatter.
			return &Template{Body: string(data), Source: source}, nil
		}
		if err := doc.Decode(&meta); err != nil {
			return nil, fmt.Errorf("invalid frontmatter in %s: %w", source, err)
		}
	}

	text := strings.Join(body, "\n")
	if bytes.HasSuffix(data, []byte("\n")) {
		text += "\n"
	}
	return &Template{Meta: meta, Body: strings.TrimLeft(text, "\n"), Source: source}, nil
}

func isMapping(doc *yaml.Node) bool {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) == 1 {
		doc = doc.Content[0]
	}
	return doc.Kind == yaml.MappingNode
}

// CheckRequired fails when a variable the template declares as required is
// absent or empty in params.
func (t *Template) CheckRequired(params map[string]string) error {
	var missing []string
	for _, key := range t.Meta.RequiredVariables {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if strings.TrimSpace(params[key]) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &core.Error{
		Kind:  core.KindMissingVariable,
		Msg:   fmt.Sprintf("template requires variables: %s", strings.Join(missing, ", ")),
		Value: strings.Join(missing, ","),
		Paths: []string{t.Source},
	}
}
