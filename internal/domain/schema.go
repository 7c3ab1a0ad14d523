// Package domain holds the simulation domain schema: which slots exist, which
// of them the simulated user may be asked to elicit, and which the user may
// inquire about.
//
// Example domain file:
//
//	name: MovieDomain
//	slot_names:
//	  title: ["no_elicitation"]
//	  genre:
//	  keywords:
//	inquire_slots:
//	  - plot
//	  - year
//	  - actors
package domain

import (
	"fmt"

	"github.com/moolen/usersim/internal/config"
	"github.com/moolen/usersim/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	// FieldName is the optional display name of the domain
	FieldName = "name"
	// FieldSlotNames maps slot identifiers to modifier tags
	FieldSlotNames = "slot_names"
	// FieldInquireSlots lists the slots eligible for inquiry
	FieldInquireSlots = "inquire_slots"

	// NoElicitation opts a slot out of elicitation
	NoElicitation = "no_elicitation"
)

// Slot is a named attribute of the simulated domain and its modifier tags.
type Slot struct {
	Name      string
	Modifiers []string
}

// Elicitable reports whether the slot may be elicited. Any occurrence of the
// no_elicitation tag excludes it, whatever other tags are present.
func (s Slot) Elicitable() bool {
	for _, m := range s.Modifiers {
		if m == NoElicitation {
			return false
		}
	}
	return true
}

// Schema is a loaded simulation domain. It is immutable after construction
// and safe for concurrent readers; accessors return fresh slices.
type Schema struct {
	path    string
	name    string
	slots   []Slot
	index   map[string]int
	inquire []string
}

// LoadFile loads the domain at path from the local filesystem.
func LoadFile(path string) (*Schema, error) {
	return Load(path, config.NewFileLoader())
}

// Load reads path through loader and validates it as a domain schema.
func Load(path string, loader config.Loader) (*Schema, error) {
	doc, err := loader.Load(path)
	if err != nil {
		return nil, err
	}

	schema, err := FromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("domain config validation failed for %q: %w", path, err)
	}

	logging.GetLogger("domain").DebugWithFields("domain loaded",
		logging.Field("path", path),
		logging.Field("slots", len(schema.slots)),
		logging.Field("inquire_slots", len(schema.inquire)),
	)
	return schema, nil
}

// FromDocument validates an already loaded document. All problems are
// reported together in a single *config.ConfigError.
//
// Both slot_names and inquire_slots are required. A present key with a null
// value is treated as empty. Entries of inquire_slots are not checked against
// slot_names.
func FromDocument(doc *config.Document) (*Schema, error) {
	cerr := &config.ConfigError{}
	s := &Schema{
		path:  doc.Path,
		index: map[string]int{},
	}

	if name, _, err := doc.Scalar(FieldName); err != nil {
		cerr.Add(FieldName, err.Error())
	} else {
		s.name = name
	}

	entries, ok, err := doc.Mapping(FieldSlotNames)
	switch {
	case !ok:
		cerr.AddMissing(FieldSlotNames)
	case err != nil:
		cerr.Add(FieldSlotNames, err.Error())
	default:
		// Keys are unique here: the loader rejects duplicate mapping keys.
		for _, e := range entries {
			mods, err := e.Strings()
			if err != nil {
				cerr.Addf(FieldSlotNames, "slot %q: modifiers %v", e.Key, err)
				continue
			}
			s.index[e.Key] = len(s.slots)
			s.slots = append(s.slots, Slot{Name: e.Key, Modifiers: mods})
		}
	}

	inquire, ok, err := doc.Strings(FieldInquireSlots)
	switch {
	case !ok:
		cerr.AddMissing(FieldInquireSlots)
	case err != nil:
		cerr.Add(FieldInquireSlots, err.Error())
	default:
		s.inquire = inquire
	}

	if err := cerr.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// New builds a schema in memory, for example to write it out with
// config.WriteFile. Slot names must be non-empty and unique.
func New(name string, slots []Slot, inquire []string) (*Schema, error) {
	cerr := &config.ConfigError{}
	s := &Schema{
		name:    name,
		index:   make(map[string]int, len(slots)),
		inquire: append([]string{}, inquire...),
	}
	for _, slot := range slots {
		switch _, dup := s.index[slot.Name]; {
		case slot.Name == "":
			cerr.Add(FieldSlotNames, "slot name cannot be empty")
		case dup:
			cerr.Addf(FieldSlotNames, "duplicate slot %q", slot.Name)
		default:
			s.index[slot.Name] = len(s.slots)
			s.slots = append(s.slots, Slot{Name: slot.Name, Modifiers: append([]string{}, slot.Modifiers...)})
		}
	}
	if err := cerr.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// Node renders the schema as a YAML mapping in the domain file layout, slots
// in order and modifiers in flow style.
func (s *Schema) Node() *yaml.Node {
	root := &yaml.Node{Kind: yaml.MappingNode}
	if s.name != "" {
		root.Content = append(root.Content, strNode(FieldName), strNode(s.name))
	}

	slots := &yaml.Node{Kind: yaml.MappingNode}
	for _, slot := range s.slots {
		mods := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
		for _, m := range slot.Modifiers {
			mods.Content = append(mods.Content, strNode(m))
		}
		slots.Content = append(slots.Content, strNode(slot.Name), mods)
	}

	inquire := &yaml.Node{Kind: yaml.SequenceNode}
	for _, name := range s.inquire {
		inquire.Content = append(inquire.Content, strNode(name))
	}

	root.Content = append(root.Content,
		strNode(FieldSlotNames), slots,
		strNode(FieldInquireSlots), inquire,
	)
	return root
}

// MarshalYAML implements yaml.Marshaler.
func (s *Schema) MarshalYAML() (interface{}, error) {
	return s.Node(), nil
}

func strNode(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
}

// Path returns the resource the schema was loaded from.
func (s *Schema) Path() string {
	return s.path
}

// Name returns the domain name, or "" if the file does not set one.
func (s *Schema) Name() string {
	return s.name
}

// SlotNames returns every slot in file order.
func (s *Schema) SlotNames() []string {
	out := make([]string, 0, len(s.slots))
	for _, slot := range s.slots {
		out = append(out, slot.Name)
	}
	return out
}

// SlotNamesElicitation returns the slots eligible for elicitation, in file order.
func (s *Schema) SlotNamesElicitation() []string {
	out := make([]string, 0, len(s.slots))
	for _, slot := range s.slots {
		if slot.Elicitable() {
			out = append(out, slot.Name)
		}
	}
	return out
}

// SlotNamesInquiry returns inquire_slots exactly as configured. It is empty,
// never nil, when the list is empty.
func (s *Schema) SlotNamesInquiry() []string {
	out := make([]string, len(s.inquire))
	copy(out, s.inquire)
	return out
}

// Slots returns a copy of every slot with its modifiers.
func (s *Schema) Slots() []Slot {
	out := make([]Slot, len(s.slots))
	for i, slot := range s.slots {
		out[i] = Slot{Name: slot.Name, Modifiers: append([]string(nil), slot.Modifiers...)}
	}
	return out
}

// HasSlot reports whether name is declared under slot_names.
func (s *Schema) HasSlot(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Modifiers returns the modifier tags of a slot.
func (s *Schema) Modifiers(name string) ([]string, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return append([]string{}, s.slots[i].Modifiers...), true
}
