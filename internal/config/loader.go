package config

import (
	"fmt"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Loader turns a resource path into a Document. Domain-specific types depend
// on this interface and add their own validation on top of the result.
type Loader interface {
	Load(path string) (*Document, error)
}

// FileLoader loads YAML documents from the local filesystem using Koanf.
type FileLoader struct{}

// NewFileLoader returns the default filesystem loader.
func NewFileLoader() *FileLoader {
	return &FileLoader{}
}

// Load reads and parses the YAML file at path.
//
// Error cases:
//   - File not found or cannot be read
//   - Invalid YAML syntax
//   - Top-level value is not a mapping
//
// No schema validation happens here; that is left to the caller.
func (l *FileLoader) Load(path string) (*Document, error) {
	data, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	return Parse(path, data)
}

// Parse builds a Document from raw YAML bytes. path is only used for error
// messages and Document.Path.
func Parse(path string, data []byte) (*Document, error) {
	k := koanf.New(".")
	if err := k.Load(rawBytes(data), koanfyaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}

	// Koanf flattens into Go maps, which lose key order. Keep the node tree
	// as well so ordered mappings can be read back in file order.
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}

	top, err := topLevelMapping(&root)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
	}

	return &Document{
		Path:   path,
		Raw:    data,
		values: k,
		root:   top,
	}, nil
}

// rawBytes feeds an in-memory buffer to Koanf so the file is read only once.
type rawBytes []byte

func (r rawBytes) ReadBytes() ([]byte, error) {
	return r, nil
}

func (r rawBytes) Read() (map[string]interface{}, error) {
	return nil, fmt.Errorf("raw bytes provider requires a parser")
}

// topLevelMapping unwraps the document node. An empty document yields a nil
// mapping, which Document treats as having no keys.
func topLevelMapping(root *yaml.Node) (*yaml.Node, error) {
	if root.Kind == 0 {
		return nil, nil
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, fmt.Errorf("unexpected YAML document structure")
	}
	top := root.Content[0]
	if isNull(top) {
		return nil, nil
	}
	if top.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top-level value must be a mapping, got %s", kindName(top))
	}
	return top, nil
}
