// Package cmdtree computes completion candidates and renders contextual
// help for the interactive shell.
//
// This is the single source of completion behaviour for both shell modes:
// tab completion and '?' help walk the same schema tree through the same
// Complete function, so they cannot drift apart.
package cmdtree

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/psaab/confsh/pkg/schema"
)

// Candidate holds a completion name and its description for display.
type Candidate struct {
	Name string
	Desc string
}

// Placeholder names stand for operator-supplied values with no known
// suggestions. They appear in '?' help but are never inserted by tab.
func placeholder(tag *schema.Node) Candidate {
	return Candidate{Name: "<" + tag.Name + ">", Desc: tag.Desc}
}

// Completable reports whether a candidate name may be inserted into the
// line. Placeholder rows are display-only.
func Completable(name string) bool {
	return !strings.HasPrefix(name, "<")
}

// Complete walks words from root and returns the candidates for the next
// token, filtered by the partial token being typed. The walk is tolerant:
// tokens that match no static child are assumed to bind the level's tag
// child, and an off-tree path yields no candidates rather than an error.
func Complete(tree *schema.Tree, root *schema.Node, words []string, partial string) []Candidate {
	node := walk(root, words)
	if node == nil {
		return nil
	}

	var out []Candidate
	for _, c := range node.Children() {
		if c.Kind == schema.KindTag {
			vals := tree.Suggest(c)
			for _, v := range vals {
				if strings.HasPrefix(v, partial) {
					out = append(out, Candidate{Name: v, Desc: c.Desc})
				}
			}
			if len(vals) == 0 && partial == "" {
				out = append(out, placeholder(c))
			}
			continue
		}
		if strings.HasPrefix(c.Name, partial) {
			out = append(out, Candidate{Name: c.Name, Desc: c.Desc})
		}
	}
	return out
}

// Resolve walks words from root tolerantly and returns the node the path
// ends on, or nil if a token matches neither a static key nor a tag child.
func Resolve(root *schema.Node, words []string) *schema.Node {
	return walk(root, words)
}

func walk(node *schema.Node, words []string) *schema.Node {
	for _, w := range words {
		if c := node.Child(w); c != nil {
			node = c
			continue
		}
		tag := node.TagChild()
		if tag == nil {
			return nil
		}
		node = tag
	}
	return node
}

// Names extracts the completable candidate names.
func Names(candidates []Candidate) []string {
	var out []string
	for _, c := range candidates {
		if Completable(c.Name) {
			out = append(out, c.Name)
		}
	}
	return out
}

// WriteHelp prints aligned completion candidates to w.
// The entire output is built as a single string and written in one call
// so that readline's wrapWriter triggers only one Refresh cycle.
func WriteHelp(w io.Writer, candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	maxWidth := 20
	for _, c := range candidates {
		if len(c.Name)+2 > maxWidth {
			maxWidth = len(c.Name) + 2
		}
	}
	var sb strings.Builder
	sb.WriteString("Possible completions:\n")
	for _, c := range candidates {
		if c.Desc != "" {
			fmt.Fprintf(&sb, "  %-*s %s\n", maxWidth, c.Name, c.Desc)
		} else {
			fmt.Fprintf(&sb, "  %s\n", c.Name)
		}
	}
	io.WriteString(w, sb.String())
}

// CommonPrefix returns the longest shared prefix among the given strings.
func CommonPrefix(items []string) string {
	if len(items) == 0 {
		return ""
	}
	prefix := items[0]
	for _, s := range items[1:] {
		for !strings.HasPrefix(s, prefix) {
			prefix = prefix[:len(prefix)-1]
			if prefix == "" {
				return ""
			}
		}
	}
	return prefix
}

// FilterPrefix returns only items that start with the given prefix.
func FilterPrefix(items []string, prefix string) []string {
	if prefix == "" {
		return items
	}
	var result []string
	for _, item := range items {
		if strings.HasPrefix(item, prefix) {
			result = append(result, item)
		}
	}
	return result
}
