package configstore

import (
	"encoding/json"
	"sort"
	"strings"
)

// Tree is a nested string-keyed configuration tree. A value takes one of
// three shapes:
//
//	non-empty map: a subtree
//	empty, non-nil map: a present leaf ("this path exists, no children")
//	nil: a tombstone ("delete this path from running at commit time")
//
// The running tree never contains tombstones; the candidate tree may hold
// all three. The shapes serialize naturally: a tombstone is JSON null,
// matching the persisted document format.
type Tree map[string]Tree

// Clone returns a deep copy. Tombstones stay tombstones.
func (t Tree) Clone() Tree {
	if t == nil {
		return nil
	}
	out := make(Tree, len(t))
	for k, v := range t {
		out[k] = v.Clone()
	}
	return out
}

// Get returns the value at path. ok reports whether the path exists; the
// returned tree is nil for a tombstone. A tombstone mid-path hides
// everything beneath it.
func (t Tree) Get(path []string) (Tree, bool) {
	if len(path) == 0 {
		return t, true
	}
	cur := t
	for _, k := range path[:len(path)-1] {
		v, ok := cur[k]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	v, ok := cur[path[len(path)-1]]
	return v, ok
}

// Present reports whether path exists and is not a tombstone.
func (t Tree) Present(path []string) bool {
	v, ok := t.Get(path)
	return ok && v != nil
}

// ensure creates every path segment as a nested map in order, returning
// the node at the end. Tombstones along the way are overwritten.
func (t Tree) ensure(path []string) Tree {
	cur := t
	for _, k := range path {
		v, ok := cur[k]
		if !ok || v == nil {
			v = Tree{}
			cur[k] = v
		}
		cur = v
	}
	return cur
}

// removePath deletes path from the tree, pruning parents that become empty
// as a result. Returns false when the path does not exist.
func removePath(t Tree, path []string) bool {
	if len(path) == 0 {
		return false
	}
	k := path[0]
	v, ok := t[k]
	if !ok {
		return false
	}
	if len(path) == 1 {
		delete(t, k)
		return true
	}
	if v == nil {
		return false
	}
	if !removePath(v, path[1:]) {
		return false
	}
	if len(v) == 0 {
		delete(t, k)
	}
	return true
}

// Merge deep-merges candidate onto a copy of running: tombstones delete
// their paths (pruning now-empty parents), then edits are layered on top.
// Merging an empty candidate returns running unchanged, so the operation
// is idempotent.
func Merge(running, candidate Tree) Tree {
	eff := running.Clone()
	if eff == nil {
		eff = Tree{}
	}
	for _, p := range candidate.tombstonePaths(nil) {
		removePath(eff, p)
	}
	addInto(eff, candidate)
	return eff
}

// addInto layers the non-tombstone content of src onto dst.
func addInto(dst, src Tree) {
	for k, v := range src {
		if v == nil {
			continue
		}
		d, ok := dst[k]
		if !ok || d == nil {
			d = Tree{}
			dst[k] = d
		}
		addInto(d, v)
	}
}

// tombstonePaths collects every tombstoned path, sorted for determinism.
func (t Tree) tombstonePaths(prefix []string) [][]string {
	var out [][]string
	t.walkLeaves(prefix, func(path []string, tombstone bool) {
		if tombstone {
			out = append(out, append([]string(nil), path...))
		}
	})
	return out
}

// walkLeaves visits every leaf (present leaf or tombstone) in sorted key
// order. The path slice is owned by the callback for the duration of the
// call only.
func (t Tree) walkLeaves(prefix []string, fn func(path []string, tombstone bool)) {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := append(prefix, k)
		v := t[k]
		switch {
		case v == nil:
			fn(path, true)
		case len(v) == 0:
			fn(path, false)
		default:
			v.walkLeaves(path, fn)
		}
	}
}

// SetCommands renders the tree as flat configuration commands. Tombstones
// become "delete ..." lines when withDeletes is set and are skipped
// otherwise.
func (t Tree) SetCommands(withDeletes bool) []string {
	var out []string
	t.walkLeaves(nil, func(path []string, tombstone bool) {
		if tombstone {
			if withDeletes {
				out = append(out, "delete "+strings.Join(path, " "))
			}
			return
		}
		out = append(out, "set "+strings.Join(path, " "))
	})
	return out
}

// FormatJSON renders the tree as an indented JSON document. Tombstones
// render as null.
func (t Tree) FormatJSON() string {
	if t == nil {
		return "null"
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Equal reports deep equality, distinguishing tombstones from leaves.
func (t Tree) Equal(other Tree) bool {
	if (t == nil) != (other == nil) {
		return false
	}
	if len(t) != len(other) {
		return false
	}
	for k, v := range t {
		ov, ok := other[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
