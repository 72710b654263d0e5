package tiltschema

import (
	"fmt"
	"os"
	"strings"
)

// Schema is the compiled, immutable tilt schema. It is loaded once at
// process start and injected into every component that walks it.
type Schema struct {
	root *Node
}

// Load reads and compiles the schema file at path.
func Load(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open schema file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Root returns the root object node.
func (s *Schema) Root() *Node {
	return s.root
}

// LevelAt descends from the root along the given hierarchy and returns the
// node at that position. Hierarchy paths must originate from actual schema
// traversal; an unknown key yields ErrSchemaPath.
func (s *Schema) LevelAt(hierarchy []string) (*Node, error) {
	node := s.root
	for i, key := range hierarchy {
		if node.Kind != KindObject {
			return nil, pathErrorf("cannot descend into leaf at %q", strings.Join(hierarchy[:i], "."))
		}
		field, ok := node.FieldByName(key)
		if !ok {
			return nil, pathErrorf("no schema entry at %q", strings.Join(hierarchy[:i+1], "."))
		}
		switch field.Kind {
		case FieldChild:
			node = field.Child
		case FieldLeaf:
			node = &Node{Kind: KindLeaf, Label: field.Label, Repeated: field.Multiple}
		default:
			return nil, pathErrorf("schema entry at %q is not traversable", strings.Join(hierarchy[:i+1], "."))
		}
	}
	return node, nil
}

// FirstLevelLabels returns the annotation labels of the schema's top level.
// These are pinned onto every freshly ingested root task.
func (s *Schema) FirstLevelLabels() []AnnotationLabel {
	return s.root.AnnotationLabels()
}

// ValidatePath checks that a document key path (as used by default-value
// rules) addresses an existing schema position. Boolean fields match both
// their bare and "~"-prefixed names.
func (s *Schema) ValidatePath(path []string) error {
	if len(path) == 0 {
		return formatErrorf("empty default-value path")
	}
	node := s.root
	for i, key := range path {
		if node.Kind != KindObject {
			return formatErrorf("default-value path %q descends below a leaf", strings.Join(path, "."))
		}
		field, ok := node.FieldByName(key)
		if !ok {
			field, ok = node.FieldByName("~" + key)
		}
		if !ok {
			return formatErrorf("default-value path %q has no schema entry at %q", strings.Join(path, "."), key)
		}
		if i < len(path)-1 {
			if field.Kind != FieldChild {
				return formatErrorf("default-value path %q descends below a non-object entry %q", strings.Join(path, "."), key)
			}
			node = field.Child
		}
	}
	return nil
}
