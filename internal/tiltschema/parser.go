package tiltschema

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Structural keys consumed by the parser. They never become fields.
const (
	descKey = "_desc"
	keyKey  = "_key"
	idKey   = "_id"
)

// rawValue is the ordered intermediate form of one JSON value. The stdlib
// map decoding would lose declaration order, so the parser walks the token
// stream instead.
type rawValue struct {
	str     *string
	boolean *bool
	number  *float64
	obj     []rawEntry
	isObj   bool
	arr     []rawValue
	isArr   bool
}

type rawEntry struct {
	key string
	val rawValue
}

// Parse reads a tilt schema document and compiles it into a validated node
// tree.
func Parse(r io.Reader) (*Schema, error) {
	dec := json.NewDecoder(r)
	raw, err := parseValue(dec)
	if err != nil {
		return nil, formatErrorf("invalid schema document: %v", err)
	}
	if !raw.isObj {
		return nil, formatErrorf("schema root must be an object")
	}
	root, err := compileObject(raw.obj, nil, true)
	if err != nil {
		return nil, err
	}
	return &Schema{root: root}, nil
}

func parseValue(dec *json.Decoder) (rawValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return rawValue{}, err
	}
	return parseToken(dec, tok)
}

func parseToken(dec *json.Decoder, tok json.Token) (rawValue, error) {
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v := rawValue{isObj: true}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return rawValue{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return rawValue{}, fmt.Errorf("object key is not a string")
				}
				val, err := parseValue(dec)
				if err != nil {
					return rawValue{}, err
				}
				v.obj = append(v.obj, rawEntry{key: key, val: val})
			}
			if _, err := dec.Token(); err != nil { // closing brace
				return rawValue{}, err
			}
			return v, nil
		case '[':
			v := rawValue{isArr: true}
			for dec.More() {
				item, err := parseValue(dec)
				if err != nil {
					return rawValue{}, err
				}
				v.arr = append(v.arr, item)
			}
			if _, err := dec.Token(); err != nil { // closing bracket
				return rawValue{}, err
			}
			return v, nil
		}
		return rawValue{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return rawValue{str: &t}, nil
	case bool:
		return rawValue{boolean: &t}, nil
	case float64:
		return rawValue{number: &t}, nil
	default:
		return rawValue{}, fmt.Errorf("unsupported value %v", tok)
	}
}

// compileObject turns one raw object into an object node. hierarchy is the
// key path used in error messages; root objects have no _desc/_key.
func compileObject(entries []rawEntry, hierarchy []string, isRoot bool) (*Node, error) {
	node := &Node{Kind: KindObject}

	for _, e := range entries {
		switch e.key {
		case descKey:
			if e.val.str == nil {
				return nil, formatErrorf("%s: _desc must be a string", pathString(hierarchy))
			}
			node.Desc = *e.val.str
		case keyKey:
			if e.val.str == nil {
				return nil, formatErrorf("%s: _key must be a string", pathString(hierarchy))
			}
			node.Key = *e.val.str
		default:
			field, err := compileField(e.key, e.val, append(hierarchy, e.key))
			if err != nil {
				return nil, err
			}
			node.Fields = append(node.Fields, field)
		}
	}

	if !isRoot && node.Desc == "" {
		return nil, formatErrorf("%s: object node lacks _desc", pathString(hierarchy))
	}

	if err := resolveLinkedBools(node, hierarchy); err != nil {
		return nil, err
	}
	if err := validateNode(node, hierarchy, isRoot); err != nil {
		return nil, err
	}
	return node, nil
}

func compileField(key string, val rawValue, hierarchy []string) (Field, error) {
	if key == idKey {
		if val.str == nil {
			return Field{}, formatErrorf("%s: _id must name a label", pathString(hierarchy))
		}
		return Field{Name: key, Kind: FieldID, Label: *val.str}, nil
	}

	if strings.HasPrefix(key, "~") {
		return compileBoolField(key, val, hierarchy)
	}

	switch {
	case val.str != nil:
		return Field{Name: key, Kind: FieldLeaf, Label: *val.str}, nil
	case val.isObj:
		child, err := compileObject(val.obj, hierarchy, false)
		if err != nil {
			return Field{}, err
		}
		return Field{Name: key, Kind: FieldChild, Child: child}, nil
	case val.isArr:
		if len(val.arr) != 1 {
			return Field{}, formatErrorf("%s: repeated wrapper must hold exactly one element", pathString(hierarchy))
		}
		inner := val.arr[0]
		if inner.str != nil {
			return Field{Name: key, Kind: FieldLeaf, Label: *inner.str, Multiple: true}, nil
		}
		if inner.isObj {
			child, err := compileObject(inner.obj, hierarchy, false)
			if err != nil {
				return Field{}, err
			}
			child.Repeated = true
			return Field{Name: key, Kind: FieldChild, Child: child}, nil
		}
		return Field{}, formatErrorf("%s: repeated wrapper must hold a string or object", pathString(hierarchy))
	default:
		return Field{}, formatErrorf("%s: unsupported field value", pathString(hierarchy))
	}
}

func compileBoolField(key string, val rawValue, hierarchy []string) (Field, error) {
	switch {
	case val.str != nil:
		if strings.HasPrefix(*val.str, "#") {
			return Field{Name: key, Kind: FieldLinkedBool, Ref: strings.TrimPrefix(*val.str, "#")}, nil
		}
		return Field{Name: key, Kind: FieldManualBool, Default: *val.str}, nil
	case val.boolean != nil:
		return Field{Name: key, Kind: FieldManualBool, Default: *val.boolean}, nil
	case val.number != nil:
		return Field{Name: key, Kind: FieldManualBool, Default: *val.number}, nil
	default:
		return Field{}, formatErrorf("%s: boolean field must hold a literal or #reference", pathString(hierarchy))
	}
}

// resolveLinkedBools fills in the label string each #reference points at.
func resolveLinkedBools(node *Node, hierarchy []string) error {
	for i, f := range node.Fields {
		if f.Kind != FieldLinkedBool {
			continue
		}
		target, ok := node.FieldByName(f.Ref)
		if !ok {
			return formatErrorf("%s: %s references missing sibling %q", pathString(hierarchy), f.Name, f.Ref)
		}
		switch target.Kind {
		case FieldLeaf:
			node.Fields[i].RefLabel = target.Label
		case FieldChild:
			node.Fields[i].RefLabel = target.Child.Desc
		default:
			return formatErrorf("%s: %s references non-annotatable sibling %q", pathString(hierarchy), f.Name, f.Ref)
		}
	}
	return nil
}

// validateNode enforces the subtask invariants: a node that can spawn
// subtasks must carry a resolvable _key, and sibling descriptions must be
// unambiguous.
func validateNode(node *Node, hierarchy []string, isRoot bool) error {
	if !isRoot && node.Desc != "" && node.NeedsSubtask(node.Desc) {
		if node.Key == "" {
			return formatErrorf("%s: expandable node lacks _key", pathString(hierarchy))
		}
		if _, err := node.SeedLabel(); err != nil {
			return err
		}
	}

	seen := make(map[string]string)
	for _, f := range node.Fields {
		if f.Kind != FieldChild {
			continue
		}
		desc := f.Child.Desc
		if prev, dup := seen[desc]; dup {
			return formatErrorf("%s: ambiguous _desc %q shared by %q and %q", pathString(hierarchy), desc, prev, f.Name)
		}
		seen[desc] = f.Name
	}
	return nil
}

func pathString(hierarchy []string) string {
	if len(hierarchy) == 0 {
		return "root"
	}
	return strings.Join(hierarchy, ".")
}
