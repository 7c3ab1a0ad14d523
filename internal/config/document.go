package config

import (
	"fmt"
	"sort"

	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Document is a parsed configuration resource. It is never modified after
// Load returns, so it can be shared between goroutines.
type Document struct {
	// Path is the resource the document was loaded from
	Path string

	// Raw holds the unparsed file contents
	Raw []byte

	values *koanf.Koanf
	root   *yaml.Node
}

// Exists reports whether the top-level key is present. A key with an explicit
// null value counts as present.
func (d *Document) Exists(key string) bool {
	return d.values.Exists(key)
}

// Keys returns the top-level keys sorted alphabetically.
func (d *Document) Keys() []string {
	raw := d.values.Raw()
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the value at key as a string, or "" if absent.
func (d *Document) String(key string) string {
	return d.values.String(key)
}

// IsNull reports whether key is present with a null value.
func (d *Document) IsNull(key string) bool {
	n := d.lookup(key)
	return n != nil && isNull(n)
}

// Entry is one key of an ordered mapping.
type Entry struct {
	Key  string
	node *yaml.Node
}

// IsNull reports whether the entry has no value (`key:` or `key: ~`).
func (e Entry) IsNull() bool {
	return isNull(e.node)
}

// Strings decodes the entry value as a list of strings. A null value yields
// an empty list.
func (e Entry) Strings() ([]string, error) {
	return stringList(e.node)
}

// Mapping returns the entries of the mapping stored under key, in file order.
// The second return value is false when the key is absent. A null value is
// an empty mapping. Merge keys (`<<: *anchor`) are expanded in place; keys
// set explicitly in the mapping take precedence over merged ones.
func (d *Document) Mapping(key string) ([]Entry, bool, error) {
	n := d.lookup(key)
	if n == nil {
		return nil, false, nil
	}
	if isNull(n) {
		return []Entry{}, true, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, true, fmt.Errorf("must be a mapping, got %s", kindName(n))
	}
	entries, err := mappingEntries(n)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}

// Scalar returns the scalar stored under key. The second return value is
// false when the key is absent. A null value yields "".
func (d *Document) Scalar(key string) (string, bool, error) {
	n := d.lookup(key)
	if n == nil {
		return "", false, nil
	}
	if isNull(n) {
		return "", true, nil
	}
	if n.Kind != yaml.ScalarNode {
		return "", true, fmt.Errorf("must be a scalar, got %s", kindName(n))
	}
	return n.Value, true, nil
}

// Strings returns the list of strings stored under key, in file order. The
// second return value is false when the key is absent.
func (d *Document) Strings(key string) ([]string, bool, error) {
	n := d.lookup(key)
	if n == nil {
		return nil, false, nil
	}
	list, err := stringList(n)
	return list, true, err
}

func (d *Document) lookup(key string) *yaml.Node {
	if d.root == nil {
		return nil
	}
	entries, err := mappingEntries(d.root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if e.Key == key {
			return e.node
		}
	}
	return nil
}

// mappingEntries flattens a mapping node into its entries. Entries pulled in
// through a merge key appear where the merge key is, minus any key the
// mapping sets itself.
func mappingEntries(n *yaml.Node) ([]Entry, error) {
	explicit := make(map[string]bool, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if k := resolve(n.Content[i]); !isMergeKey(k) {
			explicit[k.Value] = true
		}
	}

	seen := make(map[string]bool, len(n.Content)/2)
	entries := make([]Entry, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := resolve(n.Content[i])
		if isMergeKey(k) {
			merged, err := mergedEntries(resolve(n.Content[i+1]))
			if err != nil {
				return nil, err
			}
			for _, e := range merged {
				if explicit[e.Key] || seen[e.Key] {
					continue
				}
				seen[e.Key] = true
				entries = append(entries, e)
			}
			continue
		}
		if k.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("key at line %d must be a scalar, got %s", k.Line, kindName(k))
		}
		seen[k.Value] = true
		entries = append(entries, Entry{Key: k.Value, node: resolve(n.Content[i+1])})
	}
	return entries, nil
}

// mergedEntries returns the entries a merge key contributes: a single
// mapping, or a list of mappings where earlier ones win.
func mergedEntries(v *yaml.Node) ([]Entry, error) {
	switch {
	case v != nil && v.Kind == yaml.MappingNode:
		return mappingEntries(v)
	case v != nil && v.Kind == yaml.SequenceNode:
		var out []Entry
		seen := map[string]bool{}
		for i, item := range v.Content {
			item = resolve(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("merge item[%d] must be a mapping, got %s", i, kindName(item))
			}
			entries, err := mappingEntries(item)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !seen[e.Key] {
					seen[e.Key] = true
					out = append(out, e)
				}
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("merge value must be a mapping or a list of mappings, got %s", kindName(v))
	}
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

func stringList(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return []string{}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("must be a list, got %s", kindName(n))
	}
	out := make([]string, 0, len(n.Content))
	for i, item := range n.Content {
		item = resolve(item)
		if item.Kind != yaml.ScalarNode || isNull(item) {
			return nil, fmt.Errorf("item[%d] must be a string, got %s", i, kindName(item))
		}
		out = append(out, item.Value)
	}
	return out, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func kindName(n *yaml.Node) string {
	switch {
	case isNull(n):
		return "null"
	case n.Kind == yaml.MappingNode:
		return "mapping"
	case n.Kind == yaml.SequenceNode:
		return "list"
	case n.Kind == yaml.ScalarNode:
		return n.ShortTag()
	default:
		return "unknown"
	}
}
