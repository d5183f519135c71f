package npc

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrInvalidDocument is returned when imported text is not a definition.
	ErrInvalidDocument = errors.New("invalid document")
	// ErrInvalidValue is returned when a member receives a value its type cannot hold.
	ErrInvalidValue = errors.New("invalid value")
)

// DefaultFilename is the export name used when the definition has no usable
// NameTranslationKey parameter.
const DefaultFilename = "npc_template"

//go:embed templates/default.json
var defaultTemplate []byte

// Default returns a fresh copy of the built-in template new sessions start from.
func Default() *Definition {
	return MustParse(defaultTemplate)
}

// MustParse is Parse for text known to be valid, such as embedded templates.
func MustParse(data []byte) *Definition {
	d, err := Parse(data)
	if err != nil {
		panic(err)
	}
	return d
}

// Parse decodes JSON text into a definition. Members the model does not know
// are kept. Any failure wraps ErrInvalidDocument.
func Parse(data []byte) (*Definition, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidDocument)
	}
	var d Definition
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return &d, nil
}

// ParseYAML decodes a YAML definition. Mapping order is kept so parameters
// display in the order they were written.
func ParseYAML(data []byte) (*Definition, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	var buf bytes.Buffer
	if err := writeYAMLNode(&buf, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return Parse(buf.Bytes())
}

func writeYAMLNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNode(buf, n.Content[0])
	case yaml.AliasNode:
		return writeYAMLNode(buf, n.Alias)
	case yaml.MappingNode:
		members, err := mappingMembers(n)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, m := range members {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(m.key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNode(buf, m.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNode(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(raw)
		return nil
	}
	return fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

type yamlMember struct {
	key   string
	value *yaml.Node
}

// mappingMembers lists a mapping's members with merge keys (<<) expanded in
// place. Keys written in the mapping win over merged ones, and earlier merge
// sources win over later ones.
func mappingMembers(n *yaml.Node) ([]yamlMember, error) {
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if !isMergeKey(n.Content[i]) {
			explicit[n.Content[i].Value] = true
		}
	}

	var out []yamlMember
	merged := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMergeKey(k) {
			out = append(out, yamlMember{key: k.Value, value: v})
			continue
		}
		sources, err := mergeSources(v)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			members, err := mappingMembers(src)
			if err != nil {
				return nil, err
			}
			for _, m := range members {
				if explicit[m.key] || merged[m.key] {
					continue
				}
				merged[m.key] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func isMergeKey(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!merge"
}

// mergeSources resolves the value of a merge key: a mapping, or a sequence
// of mappings, either possibly behind aliases.
func mergeSources(v *yaml.Node) ([]*yaml.Node, error) {
	v = resolveAlias(v)
	switch v.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{v}, nil
	case yaml.SequenceNode:
		out := make([]*yaml.Node, 0, len(v.Content))
		for _, c := range v.Content {
			c = resolveAlias(c)
			if c.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge sequence must hold mappings", c.Line)
			}
			out = append(out, c)
		}
		return out, nil
	}
	return nil, fmt.Errorf("line %d: merge value must be a mapping", v.Line)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// Export renders the definition as 2-space indented JSON with a trailing newline.
func Export(d *Definition) ([]byte, error) {
	out, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to export definition: %w", err)
	}
	return append(out, '\n'), nil
}

// ExportFilename derives the download name from the NameTranslationKey
// parameter. Every character outside [A-Za-z0-9] becomes an underscore.
func ExportFilename(d *Definition) string {
	return sanitizeFilename(DisplayName(d, DefaultFilename)) + ".json"
}

// DisplayName returns the NameTranslationKey parameter when it is a non-empty
// string, else fallback.
func DisplayName(d *Definition, fallback string) string {
	p, ok := d.Parameters.Get(NameTranslationKeyParam)
	if !ok {
		return fallback
	}
	name, ok := p.Value.Text()
	if !ok || name == "" {
		return fallback
	}
	return name
}

func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
