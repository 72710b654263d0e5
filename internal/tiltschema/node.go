// Package tiltschema compiles the static tilt schema into a typed node tree.
// The schema's authoring conventions (structural "_desc"/"_key" keys, "_id"
// identifier fields, "~" boolean fields with "#" back-references, and
// single-element lists marking repeated cardinality) are resolved once at
// load time; the rest of the application only ever sees typed nodes and
// classified fields.
package tiltschema

// Kind discriminates the two node shapes a schema value can compile to.
type Kind int

const (
	// KindLeaf is a plain annotation label.
	KindLeaf Kind = iota
	// KindObject is a nested structure with classified fields.
	KindObject
)

// Node is one compiled schema node. Leaf nodes carry only Label; object
// nodes carry Desc, Key and their fields in declaration order. Repeated is
// set when the node was reached through a single-element list wrapper.
type Node struct {
	Kind     Kind
	Repeated bool

	// Leaf
	Label string

	// Object
	Desc   string
	Key    string
	Fields []Field
}

// FieldKind classifies one object field.
type FieldKind int

const (
	// FieldChild is a nested object (possibly repeated).
	FieldChild FieldKind = iota
	// FieldLeaf is a plain annotation label.
	FieldLeaf
	// FieldID is a hidden identifier field ("_id").
	FieldID
	// FieldManualBool is a "~" field with a literal default.
	FieldManualBool
	// FieldLinkedBool is a "~" field whose value back-references a sibling.
	FieldLinkedBool
)

// Field is the classifier output for one object entry. Structural keys
// ("_desc", "_key") never become fields.
type Field struct {
	Name string
	Kind FieldKind

	// FieldChild
	Child *Node

	// FieldLeaf: the label string; Multiple when the value was list-wrapped.
	// FieldID: the label under which the hidden identifier is stored.
	Label    string
	Multiple bool

	// FieldManualBool
	Default any

	// FieldLinkedBool: referenced sibling key and its resolved label string.
	Ref      string
	RefLabel string
}

// AnnotationLabel describes one annotatable label pinned onto a task.
type AnnotationLabel struct {
	Name     string `json:"name"`
	Multiple bool   `json:"multiple"`
}

// ManualBool describes a boolean field the client fills in directly.
type ManualBool struct {
	Name    string `json:"name"`
	Default any    `json:"default"`
}

// LinkedBool describes a boolean field derived from a sibling annotation.
type LinkedBool struct {
	Name     string `json:"name"`
	Ref      string `json:"ref"`
	RefLabel string `json:"ref_label"`
}

// FieldByName returns the field with the given schema key.
func (n *Node) FieldByName(name string) (Field, bool) {
	for _, f := range n.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// AnnotationLabels returns the annotatable labels of an object node: plain
// leaf fields plus the descriptions of nested objects. Multiplicity follows
// the list wrapping in the schema.
func (n *Node) AnnotationLabels() []AnnotationLabel {
	var labels []AnnotationLabel
	for _, f := range n.Fields {
		switch f.Kind {
		case FieldLeaf:
			labels = append(labels, AnnotationLabel{Name: f.Label, Multiple: f.Multiple})
		case FieldChild:
			labels = append(labels, AnnotationLabel{Name: f.Child.Desc, Multiple: f.Child.Repeated})
		}
	}
	return labels
}

// ManualBools returns the manually entered boolean fields of an object node.
func (n *Node) ManualBools() []ManualBool {
	var bools []ManualBool
	for _, f := range n.Fields {
		if f.Kind == FieldManualBool {
			bools = append(bools, ManualBool{Name: f.Name, Default: f.Default})
		}
	}
	return bools
}

// LinkedBools returns the back-referencing boolean fields of an object node.
func (n *Node) LinkedBools() []LinkedBool {
	var bools []LinkedBool
	for _, f := range n.Fields {
		if f.Kind == FieldLinkedBool {
			bools = append(bools, LinkedBool{Name: f.Name, Ref: f.Ref, RefLabel: f.RefLabel})
		}
	}
	return bools
}

// IDLabels returns the labels of hidden identifier fields.
func (n *Node) IDLabels() []string {
	var labels []string
	for _, f := range n.Fields {
		if f.Kind == FieldID {
			labels = append(labels, f.Label)
		}
	}
	return labels
}

// SeedLabel resolves the label named by the node's "_key" field. This is the
// label under which a freshly expanded subtask receives its seed annotation.
func (n *Node) SeedLabel() (string, error) {
	f, ok := n.FieldByName(n.Key)
	if !ok {
		return "", formatErrorf("node %q: _key references missing field %q", n.Desc, n.Key)
	}
	switch f.Kind {
	case FieldLeaf:
		return f.Label, nil
	case FieldChild:
		return f.Child.Desc, nil
	default:
		return "", formatErrorf("node %q: _key field %q is not annotatable", n.Desc, n.Key)
	}
}

// NeedsSubtask reports whether an annotation carrying the given label must
// spawn a subtask for this node: the label matches the node's description
// and the node carries either more than one non-structural field or a
// directly nested object.
func (n *Node) NeedsSubtask(label string) bool {
	if n.Kind != KindObject || n.Desc != label {
		return false
	}
	nonStructural := 0
	hasObject := false
	for _, f := range n.Fields {
		if f.Name != "" && f.Name[0] != '_' {
			nonStructural++
		}
		if f.Kind == FieldChild && !f.Child.Repeated {
			hasObject = true
		}
	}
	return nonStructural > 1 || hasObject
}
