package schema

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Reserved object keys in the schema documents. Any other key introduces a
// child node.
const (
	keyType          = "type"
	keyDescription   = "description"
	keyValidator     = "validator"
	keyEnumValues    = "enum-values"
	keySuggestor     = "suggestor"
	keySuggestorArgs = "suggestor_args"
	keyMulti         = "multi"
	keyScript        = "script"
	keyCommand       = "command"
)

// Load parses the command-tree document and the configuration-schema
// document into one Tree. The configuration schema's top-level entries are
// merged under the set and delete actions, so the same subtree drives both.
//
// The loader walks the json.Decoder token stream rather than unmarshalling
// into maps: child declaration order must survive the load because commit
// scripts fire in declaration order.
func Load(commands, config io.Reader, sys System) (*Tree, error) {
	root, err := decodeDocument(commands)
	if err != nil {
		return nil, err
	}
	cfgRoot, err := decodeDocument(config)
	if err != nil {
		return nil, err
	}

	for _, action := range []string{"set", "delete"} {
		target := root.Child(action)
		if target == nil {
			target = &Node{Name: action, Kind: KindStatic}
			if err := root.addChild(target, nil); err != nil {
				return nil, err
			}
		}
		// Config schema entries shadow same-named command-tree entries,
		// matching the original document merge.
		for _, c := range cfgRoot.Children() {
			if err := target.replaceChild(c); err != nil {
				return nil, err
			}
		}
	}

	return &Tree{root: root, sys: sys}, nil
}

// LoadOp parses the operational-mode command document into a Tree.
func LoadOp(op io.Reader, sys System) (*Tree, error) {
	root, err := decodeDocument(op)
	if err != nil {
		return nil, err
	}
	return &Tree{root: root, sys: sys}, nil
}

// replaceChild attaches c, displacing an existing same-named child. The
// one-tag-child-per-level rule holds across the merge.
func (n *Node) replaceChild(c *Node) error {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if old, ok := n.children[c.Name]; ok {
		if old == n.tag {
			n.tag = nil
		}
	} else {
		n.order = append(n.order, c.Name)
	}
	if c.Kind == KindTag {
		if n.tag != nil {
			return &SchemaLoadError{
				Path: n.Name,
				Msg:  "two tag nodes at one level (" + n.tag.Name + ", " + c.Name + ")",
			}
		}
		n.tag = c
	}
	n.children[c.Name] = c
	return nil
}

func decodeDocument(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '{', nil); err != nil {
		return nil, err
	}
	root, err := decodeNode(dec, "", nil)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, &SchemaLoadError{Msg: "trailing content after document"}
	}
	return root, nil
}

// decodeNode consumes the body of an object whose opening brace has already
// been read, returning the finished node.
func decodeNode(dec *json.Decoder, name string, path []string) (*Node, error) {
	n := &Node{Name: name, Kind: KindStatic}
	var validatorID, suggestorID string

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, loadErr(path, "unexpected end of document")
		}
		if d, ok := tok.(json.Delim); ok {
			if d == '}' {
				break
			}
			return nil, loadErr(path, fmt.Sprintf("unexpected %q", d.String()))
		}
		key := tok.(string)

		switch key {
		case keyType:
			s, err := readString(dec, path, key)
			if err != nil {
				return nil, err
			}
			if s != "tagNode" {
				return nil, loadErr(path, fmt.Sprintf("unknown node type %q", s))
			}
			n.Kind = KindTag
		case keyDescription:
			if n.Desc, err = readString(dec, path, key); err != nil {
				return nil, err
			}
		case keyValidator:
			if validatorID, err = readString(dec, path, key); err != nil {
				return nil, err
			}
		case keyEnumValues:
			if n.Enum, err = readStringArray(dec, path, key); err != nil {
				return nil, err
			}
		case keySuggestor:
			if suggestorID, err = readString(dec, path, key); err != nil {
				return nil, err
			}
		case keySuggestorArgs:
			if n.SuggestorArgs, err = readStringArray(dec, path, key); err != nil {
				return nil, err
			}
		case keyMulti:
			if n.Multi, err = readBool(dec, path, key); err != nil {
				return nil, err
			}
		case keyScript:
			if n.Script, err = readString(dec, path, key); err != nil {
				return nil, err
			}
		case keyCommand:
			if n.Command, err = readString(dec, path, key); err != nil {
				return nil, err
			}
		default:
			childPath := append(append([]string(nil), path...), key)
			if err := expectDelim(dec, '{', childPath); err != nil {
				return nil, err
			}
			child, err := decodeNode(dec, key, childPath)
			if err != nil {
				return nil, err
			}
			if err := n.addChild(child, path); err != nil {
				return nil, err
			}
		}
	}

	// Attribute checks run after the object closes: JSON key order is not
	// fixed, so "type" may follow "validator".
	if n.Kind != KindTag {
		if validatorID != "" || suggestorID != "" || n.Multi || len(n.Enum) > 0 {
			return nil, loadErr(path, "validator/suggestor/multi only allowed on tagNode")
		}
	}
	if validatorID != "" {
		v, ok := ParseValidator(validatorID)
		if !ok {
			return nil, loadErr(path, fmt.Sprintf("unknown validator %q", validatorID))
		}
		if v == ValidatorEnum && len(n.Enum) == 0 {
			return nil, loadErr(path, "enum validator without enum-values")
		}
		n.Validator = v
	} else if len(n.Enum) > 0 {
		return nil, loadErr(path, "enum-values without enum validator")
	}
	if suggestorID != "" {
		s, ok := ParseSuggestor(suggestorID)
		if !ok {
			return nil, loadErr(path, fmt.Sprintf("unknown suggestor %q", suggestorID))
		}
		n.Suggestor = s
	}

	return n, nil
}

func loadErr(path []string, msg string) *SchemaLoadError {
	return &SchemaLoadError{Path: strings.Join(path, " "), Msg: msg}
}

func expectDelim(dec *json.Decoder, want rune, path []string) error {
	tok, err := dec.Token()
	if err != nil {
		return loadErr(path, "unexpected end of document")
	}
	if d, ok := tok.(json.Delim); !ok || d != json.Delim(want) {
		return loadErr(path, fmt.Sprintf("expected %q, got %v", want, tok))
	}
	return nil
}

func readString(dec *json.Decoder, path []string, key string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", loadErr(path, "unexpected end of document")
	}
	s, ok := tok.(string)
	if !ok {
		return "", loadErr(path, fmt.Sprintf("%s: expected string, got %v", key, tok))
	}
	return s, nil
}

func readBool(dec *json.Decoder, path []string, key string) (bool, error) {
	tok, err := dec.Token()
	if err != nil {
		return false, loadErr(path, "unexpected end of document")
	}
	b, ok := tok.(bool)
	if !ok {
		return false, loadErr(path, fmt.Sprintf("%s: expected bool, got %v", key, tok))
	}
	return b, nil
}

func readStringArray(dec *json.Decoder, path []string, key string) ([]string, error) {
	if err := expectDelim(dec, '[', path); err != nil {
		return nil, err
	}
	var out []string
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, loadErr(path, "unexpected end of document")
		}
		if d, ok := tok.(json.Delim); ok && d == ']' {
			return out, nil
		}
		s, ok := tok.(string)
		if !ok {
			return nil, loadErr(path, fmt.Sprintf("%s: expected string element, got %v", key, tok))
		}
		out = append(out, s)
	}
}
