package definition

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tablebuttons/pkg/button"
)

// LoadFS walks fsys and parses every JSON/YAML definition document. When fsys
// is nil or holds no definition files the returned catalog is empty. Toolbar
// names must be unique across files.
func LoadFS(fsys fs.FS) (*Catalog, error) {
	catalog := &Catalog{toolbars: make(map[string]Toolbar)}
	if fsys == nil {
		return catalog, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDefinitionFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("definition: read %s: %w", path, err)
		}

		toolbars, err := Parse(data, path)
		if err != nil {
			return err
		}
		for _, tb := range toolbars {
			if existing, exists := catalog.toolbars[tb.Name]; exists {
				return fmt.Errorf("definition: duplicate toolbar %q (files %s and %s)", tb.Name, existing.Source, path)
			}
			catalog.toolbars[tb.Name] = tb
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return catalog, nil
}

type documentFile struct {
	Toolbars yaml.Node `yaml:"toolbars"`
}

// Parse decodes a single definition document. JSON input is accepted since
// it is valid YAML; key order is preserved in either case. source is used in
// error messages and recorded on each toolbar.
func Parse(data []byte, source string) ([]Toolbar, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("definition: file %s is empty", source)
	}

	var doc documentFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("definition: parse %s: invalid JSON or YAML: %w", source, err)
	}
	if doc.Toolbars.Kind == 0 {
		return nil, fmt.Errorf("definition: file %s defines no toolbars", source)
	}
	if doc.Toolbars.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("definition: file %s: toolbars must be a mapping", source)
	}

	var out []Toolbar
	content := doc.Toolbars.Content
	for i := 0; i+1 < len(content); i += 2 {
		name := strings.TrimSpace(content[i].Value)
		if name == "" {
			return nil, fmt.Errorf("definition: file %s defines an empty toolbar name (line %d)", source, content[i].Line)
		}
		for _, prev := range out {
			if prev.Name == name {
				return nil, fmt.Errorf("definition: file %s defines toolbar %q twice", source, name)
			}
		}
		entries, err := parseEntries(content[i+1])
		if err != nil {
			return nil, fmt.Errorf("definition: toolbar %q (file %s): %w", name, source, err)
		}
		out = append(out, Toolbar{Name: name, Source: source, Entries: entries})
	}
	return out, nil
}

func parseEntries(node *yaml.Node) ([]Entry, error) {
	node = resolveAlias(node)
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list of buttons", node.Line)
	}
	entries := make([]Entry, 0, len(node.Content))
	for idx, item := range node.Content {
		entry, err := parseEntry(item)
		if err != nil {
			return nil, fmt.Errorf("button %d: %w", idx, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func parseEntry(node *yaml.Node) (Entry, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.ScalarNode:
		name := strings.TrimSpace(node.Value)
		if name == "" {
			return Entry{}, fmt.Errorf("line %d: empty button name", node.Line)
		}
		return Entry{Shorthand: name}, nil
	case yaml.MappingNode:
	default:
		return Entry{}, fmt.Errorf("line %d: a button must be a name or a mapping", node.Line)
	}

	pairs, err := mappingPairs(node, 0)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Attributes: button.NewAttributes()}
	for _, pair := range pairs {
		key := pair.key.Value
		valueNode := resolveAlias(pair.value)
		switch key {
		case keyRaw:
			err = valueNode.Decode(&entry.Raw)
		case keyCan:
			err = decodeString(valueNode, &entry.Can)
		case keyIf:
			err = decodeString(valueNode, &entry.If)
		case keyTextKey:
			err = decodeString(valueNode, &entry.TextKey)
		case keyButtons:
			entry.Buttons, err = parseEntries(valueNode)
		case keyFormButtons:
			entry.FormButtons, err = parseEntries(valueNode)
		default:
			var value button.Value
			value, err = nodeValue(valueNode)
			if err == nil {
				entry.Attributes.Set(key, value)
			}
		}
		if err != nil {
			return Entry{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return entry, nil
}

func decodeString(node *yaml.Node, dest *string) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a string", node.Line)
	}
	*dest = strings.TrimSpace(node.Value)
	return nil
}

// nodeValue converts a YAML node to a button value, keeping mapping order.
func nodeValue(node *yaml.Node) (button.Value, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.ScalarNode:
		var scalar any
		if err := node.Decode(&scalar); err != nil {
			return button.Value{}, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return button.Normalize(scalar)
	case yaml.SequenceNode:
		items := make([]button.Value, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := nodeValue(child)
			if err != nil {
				return button.Value{}, err
			}
			items = append(items, item)
		}
		return button.List(items...), nil
	case yaml.MappingNode:
		pairs, err := mappingPairs(node, 0)
		if err != nil {
			return button.Value{}, err
		}
		attrs := button.NewAttributes()
		for _, pair := range pairs {
			item, err := nodeValue(pair.value)
			if err != nil {
				return button.Value{}, err
			}
			attrs.Set(pair.key.Value, item)
		}
		return button.Mapping(attrs), nil
	default:
		return button.Value{}, fmt.Errorf("line %d: unsupported value", node.Line)
	}
}

type nodePair struct {
	key, value *yaml.Node
}

// maxMergeDepth bounds nested `<<` expansion so cyclic anchors fail.
const maxMergeDepth = 16

// mappingPairs returns the key/value pairs of a mapping with `<<` merge keys
// expanded in place. Keys written on the mapping itself win over merged
// keys, and earlier merge sources win over later ones.
func mappingPairs(node *yaml.Node, depth int) ([]nodePair, error) {
	if depth > maxMergeDepth {
		return nil, fmt.Errorf("line %d: merge keys nested too deeply", node.Line)
	}
	explicit := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		if !isMergeKey(node.Content[i]) {
			explicit[node.Content[i].Value] = struct{}{}
		}
	}

	var out []nodePair
	merged := make(map[string]struct{})
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !isMergeKey(key) {
			out = append(out, nodePair{key: key, value: value})
			continue
		}
		sources, err := mergeSources(value)
		if err != nil {
			return nil, err
		}
		for _, source := range sources {
			pairs, err := mappingPairs(source, depth+1)
			if err != nil {
				return nil, err
			}
			for _, pair := range pairs {
				name := pair.key.Value
				if _, ok := explicit[name]; ok {
					continue
				}
				if _, ok := merged[name]; ok {
					continue
				}
				merged[name] = struct{}{}
				out = append(out, pair)
			}
		}
	}
	return out, nil
}

func isMergeKey(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!merge"
}

func mergeSources(node *yaml.Node) ([]*yaml.Node, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{node}, nil
	case yaml.SequenceNode:
		sources := make([]*yaml.Node, 0, len(node.Content))
		for _, item := range node.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge key expects a mapping or a list of mappings", item.Line)
			}
			sources = append(sources, item)
		}
		return sources, nil
	default:
		return nil, fmt.Errorf("line %d: merge key expects a mapping or a list of mappings", node.Line)
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node != nil && node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node == nil {
		return &yaml.Node{}
	}
	return node
}

func isDefinitionFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
