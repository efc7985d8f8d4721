// Package schema defines the command/configuration schema tree for confsh.
//
// The tree is loaded once at startup from two JSON documents (the command
// tree and the configuration schema) and is read-only afterwards. It is the
// single source of truth for command parsing, validation and completion:
// all three walk tokens through the same Match/Lookup primitives so they
// cannot drift apart.
package schema

import (
	"strings"
)

// Kind discriminates the two node variants of the schema tree.
type Kind int

const (
	// KindStatic is a fixed keyword node.
	KindStatic Kind = iota
	// KindTag is a parametric node whose key is supplied by the operator
	// (an interface name, a route prefix, ...).
	KindTag
)

// Node is one entry in the schema tree. Static nodes match their Name
// exactly; tag nodes consume any token that passes their validator.
type Node struct {
	Name string
	Kind Kind
	Desc string

	// Tag node attributes.
	Validator     Validator
	Enum          []string // allowed literals when Validator == ValidatorEnum
	Suggestor     Suggestor
	SuggestorArgs []string
	Multi         bool // key may repeat with different values

	// Script is a commit-time hook scoped to this node's path prefix.
	Script string

	// Command is an operational-mode command template. Tag names bound
	// along the path are substituted into it before execution.
	Command string

	children map[string]*Node
	order    []string // child names in declaration order
	tag      *Node    // the single tag child, if any
}

// Child returns the static child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	if n == nil || n.children == nil {
		return nil
	}
	return n.children[name]
}

// TagChild returns the node's tag child, or nil.
func (n *Node) TagChild() *Node {
	if n == nil {
		return nil
	}
	return n.tag
}

// Children returns all children in schema-declaration order.
func (n *Node) Children() []*Node {
	if n == nil {
		return nil
	}
	out := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.children[name])
	}
	return out
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return n != nil && len(n.children) > 0
}

// OnlyTagChild reports whether the node's sole child is its tag node: the
// single-value position where a new value displaces the old one.
func (n *Node) OnlyTagChild() bool {
	return n != nil && n.tag != nil && len(n.children) == 1
}

// addChild attaches c, enforcing the one-tag-child-per-level rule.
func (n *Node) addChild(c *Node, path []string) error {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	if _, dup := n.children[c.Name]; dup {
		return &SchemaLoadError{Path: strings.Join(path, " "), Msg: "duplicate key " + c.Name}
	}
	if c.Kind == KindTag {
		if n.tag != nil {
			return &SchemaLoadError{
				Path: strings.Join(path, " "),
				Msg:  "two tag nodes at one level (" + n.tag.Name + ", " + c.Name + ")",
			}
		}
		n.tag = c
	}
	n.children[c.Name] = c
	n.order = append(n.order, c.Name)
	return nil
}

// TagBinding records a tag node consuming a literal token during traversal.
type TagBinding struct {
	Name  string // tag node name, as used in command templates
	Value string // the literal token
}

// Tree is a loaded schema tree plus the live-system backend used by
// liveness validators and suggestors.
type Tree struct {
	root *Node
	sys  System
}

// Root returns the tree root. Its children are the actions.
func (t *Tree) Root() *Node { return t.root }

// Action returns the subtree for a top-level action (set, delete, ...).
func (t *Tree) Action(name string) *Node { return t.root.Child(name) }

// Match resolves one token against the children of n: exact static key
// first, else the (at most one) tag child, whose validator is run against
// the token. A validator failure returns a *ValidationError carrying the
// token; the caller fills in the input offset. A nil node with a nil error
// means the token matched nothing.
func (t *Tree) Match(n *Node, token string) (*Node, error) {
	if c := n.Child(token); c != nil {
		return c, nil
	}
	tag := n.TagChild()
	if tag == nil {
		return nil, nil
	}
	if verr := t.checkValue(tag, token); verr != nil {
		return nil, verr
	}
	return tag, nil
}

// Lookup walks a token path from n without running validators, recording a
// binding for every token consumed by a tag node. The boolean is false as
// soon as a token matches neither a static key nor a tag child.
func (t *Tree) Lookup(n *Node, path []string) (*Node, []TagBinding, bool) {
	var bindings []TagBinding
	for _, token := range path {
		if c := n.Child(token); c != nil {
			n = c
			continue
		}
		tag := n.TagChild()
		if tag == nil {
			return n, bindings, false
		}
		bindings = append(bindings, TagBinding{Name: tag.Name, Value: token})
		n = tag
	}
	return n, bindings, true
}

// ScriptBinding couples a script reference with the schema path it is
// declared on. The prefix is the node path from the set subtree root.
type ScriptBinding struct {
	Script string
	Prefix []*Node
}

// ScriptBindings collects every script hook declared under the set subtree,
// in schema-declaration order. The order is stable across runs because the
// loader preserves JSON document order.
func (t *Tree) ScriptBindings() []ScriptBinding {
	set := t.Action("set")
	if set == nil {
		return nil
	}
	var out []ScriptBinding
	collectBindings(set, nil, &out)
	return out
}

func collectBindings(n *Node, prefix []*Node, out *[]ScriptBinding) {
	for _, c := range n.Children() {
		p := append(append([]*Node(nil), prefix...), c)
		if c.Script != "" {
			*out = append(*out, ScriptBinding{Script: c.Script, Prefix: p})
		}
		collectBindings(c, p, out)
	}
}
