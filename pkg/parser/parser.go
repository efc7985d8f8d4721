// Package parser turns a raw command line into a structured path plus leaf
// action, validating every token against the schema tree as it walks.
package parser

import (
	"fmt"

	"github.com/psaab/confsh/pkg/schema"
)

// Action is the leaf action of a configuration-mode command.
type Action int

const (
	ActionSet Action = iota
	ActionDelete
	ActionShow
	ActionCompare
)

func (a Action) String() string {
	switch a {
	case ActionSet:
		return "set"
	case ActionDelete:
		return "delete"
	case ActionShow:
		return "show"
	case ActionCompare:
		return "compare"
	}
	return "unknown"
}

// Segment is one resolved path element. Tag segments carry the tag node's
// multi flag so the store can decide whether a new value replaces its
// siblings or accumulates next to them.
type Segment struct {
	Value string
	IsTag bool
	Multi bool
	// Exclusive marks a single-value tag position: the parent's only
	// child is a non-multi tag node, so a new value displaces siblings.
	Exclusive bool
}

// ParsedCommand is the result of parsing one input line.
//
// For set, delete and "show <path>" the Path holds the schema-validated
// segments and Node the schema node the walk ended on. Display variants
// (show running, show commands candidate, compare commands) put their
// keywords in Args untouched.
type ParsedCommand struct {
	Action Action
	Path   []Segment
	Node   *schema.Node
	Args   []string
}

// PathValues returns the literal path tokens.
func (c *ParsedCommand) PathValues() []string {
	out := make([]string, len(c.Path))
	for i, s := range c.Path {
		out[i] = s.Value
	}
	return out
}

// ExclusiveLevels returns the indexes of single-value tag segments: levels
// where setting a new value displaces a previously configured sibling.
func (c *ParsedCommand) ExclusiveLevels() []int {
	var out []int
	for i, s := range c.Path {
		if s.Exclusive {
			out = append(out, i)
		}
	}
	return out
}

// displayKeywords are show/compare arguments that select an output form
// instead of naming a configuration path.
var displayKeywords = map[string]bool{
	"running":   true,
	"candidate": true,
	"commands":  true,
}

// Parse validates one input line against the schema tree.
//
// The parser is a three-state machine: the first token is the action, every
// following token walks the schema (exact static key, else the level's tag
// node with its validator), and the accumulated segments form the leaf path.
// Validator failures abort immediately with a *schema.ValidationError
// carrying the offending token and its byte offset in line.
func Parse(line string, tree *schema.Tree) (*ParsedCommand, error) {
	tokens := tokenize(line)
	if len(tokens) == 0 {
		return nil, &schema.ValidationError{Msg: "empty command"}
	}

	var action Action
	switch tokens[0].text {
	case "set":
		action = ActionSet
	case "delete":
		action = ActionDelete
	case "show":
		action = ActionShow
	case "compare":
		action = ActionCompare
	default:
		return nil, &schema.ValidationError{
			Token:  tokens[0].text,
			Offset: tokens[0].off,
			Msg:    fmt.Sprintf("unknown command '%s'", tokens[0].text),
		}
	}
	rest := tokens[1:]

	cmd := &ParsedCommand{Action: action}

	switch action {
	case ActionCompare:
		for _, t := range rest {
			cmd.Args = append(cmd.Args, t.text)
		}
		return cmd, nil
	case ActionShow:
		if len(rest) == 0 || displayKeywords[rest[0].text] {
			for _, t := range rest {
				cmd.Args = append(cmd.Args, t.text)
			}
			return cmd, nil
		}
	case ActionSet, ActionDelete:
		if len(rest) == 0 {
			return nil, &schema.ValidationError{
				Token:  tokens[0].text,
				Offset: tokens[0].off,
				Msg:    action.String() + ": missing path",
			}
		}
	}

	// Paths are always validated against the set subtree; delete and show
	// address the same configuration space.
	node := tree.Action("set")
	if node == nil {
		return nil, &schema.ValidationError{Msg: "schema has no set subtree"}
	}

	for _, t := range rest {
		child, err := tree.Match(node, t.text)
		if err != nil {
			if verr, ok := err.(*schema.ValidationError); ok {
				verr.Offset = t.off
			}
			return nil, err
		}
		if child == nil {
			return nil, &schema.ValidationError{
				Token:  t.text,
				Offset: t.off,
				Msg:    fmt.Sprintf("unknown keyword '%s'", t.text),
			}
		}
		isTag := child.Kind == schema.KindTag
		cmd.Path = append(cmd.Path, Segment{
			Value:     t.text,
			IsTag:     isTag,
			Multi:     child.Multi,
			Exclusive: isTag && !child.Multi && node.OnlyTagChild(),
		})
		node = child
	}
	cmd.Node = node
	return cmd, nil
}

type token struct {
	text string
	off  int
}

// tokenize splits on spaces and tabs, keeping each token's byte offset for
// error reporting.
func tokenize(line string) []token {
	var out []token
	start := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\t':
			if start >= 0 {
				out = append(out, token{text: line[start:i], off: start})
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, token{text: line[start:], off: start})
	}
	return out
}
