// Package configstore manages the running and candidate configuration
// trees: staged edits, tombstone deletions, diff, merge and persistence.
package configstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Store owns the running and candidate trees exclusively. Accessors hand
// out clones or formatted text; no caller retains a reference across a
// mutation.
type Store struct {
	mu        sync.RWMutex
	running   Tree
	candidate Tree
	filePath  string
}

// New creates an empty store persisting to filePath.
func New(filePath string) *Store {
	return &Store{
		running:   Tree{},
		candidate: Tree{},
		filePath:  filePath,
	}
}

// Load reads the persisted running configuration. A missing file is not an
// error: the session starts with an empty configuration.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &PersistenceError{Op: "load", Path: s.filePath, Err: err}
	}

	var tree Tree
	if err := json.Unmarshal(data, &tree); err != nil {
		return &PersistenceError{Op: "load", Path: s.filePath, Err: err}
	}
	if tree == nil {
		tree = Tree{}
	}
	// The running tree must not carry tombstones; strip any null left
	// behind by hand-edited files.
	stripTombstones(tree)

	s.running = tree
	return nil
}

func stripTombstones(t Tree) {
	for k, v := range t {
		if v == nil {
			delete(t, k)
			continue
		}
		stripTombstones(v)
	}
}

// Save writes the running configuration to disk wholesale.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := json.MarshalIndent(s.running, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "save", Path: s.filePath, Err: err}
	}
	if err := os.WriteFile(s.filePath, append(data, '\n'), 0644); err != nil {
		return &PersistenceError{Op: "save", Path: s.filePath, Err: err}
	}
	slog.Info("configuration saved", "path", s.filePath)
	return nil
}

// Set stages a path in the candidate tree, creating every segment in order
// with a present leaf at the end. A prior tombstone at the path is
// overwritten. exclusive lists path levels occupied by single-value tag
// nodes: a differing sibling there is retracted from the candidate and,
// when configured in running, tombstoned.
func (s *Store) Set(path []string, exclusive []int) error {
	if len(path) == 0 {
		return fmt.Errorf("set: empty path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	excl := make(map[int]bool, len(exclusive))
	for _, i := range exclusive {
		excl[i] = true
	}

	cur := s.candidate
	for i, k := range path {
		if excl[i] {
			s.displaceSiblings(cur, path[:i], k)
		}
		v, ok := cur[k]
		if !ok || v == nil {
			v = Tree{}
			cur[k] = v
		}
		cur = v
	}
	return nil
}

// displaceSiblings retracts candidate siblings of keep at the given level
// and tombstones siblings configured in running. Only called for levels
// where the schema allows a single tag value, so every sibling key is a
// displaced value of the same tag.
func (s *Store) displaceSiblings(cur Tree, prefix []string, keep string) {
	for sib, v := range cur {
		if sib != keep && v != nil {
			delete(cur, sib)
		}
	}
	if runLevel, ok := s.running.Get(prefix); ok && runLevel != nil {
		for sib := range runLevel {
			if sib != keep {
				cur[sib] = nil
			}
		}
	}
}

// Delete stages the removal of a path.
//
// Content staged in the candidate is retracted outright (the edit never
// reaches running); content present only in running is tombstoned so the
// deletion happens at commit; a path already tombstoned is a no-op; a path
// absent from both trees is a PathNotFoundError.
func (s *Store) Delete(path []string) error {
	if len(path) == 0 {
		return fmt.Errorf("delete: empty path")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.candidate.Get(path); ok {
		if v == nil {
			return nil // already scheduled for deletion
		}
		removePath(s.candidate, path)
		return nil
	}

	if s.running.Present(path) {
		parent := s.candidate.ensure(path[:len(path)-1])
		parent[path[len(path)-1]] = nil
		return nil
	}

	return &PathNotFoundError{Path: append([]string(nil), path...)}
}

// Discard clears the candidate without touching running.
func (s *Store) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidate = Tree{}
}

// Merge returns the effective configuration: candidate deep-merged onto
// running with tombstone deletion and empty-parent pruning. Computed fresh
// on every call, never cached.
func (s *Store) Merge() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Merge(s.running, s.candidate)
}

// Apply atomically replaces running with the effective tree and clears the
// candidate. Called by the commit orchestrator once every script succeeded.
func (s *Store) Apply(effective Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = effective.Clone()
	s.candidate = Tree{}
}

// ChangeKind classifies one staged difference.
type ChangeKind int

const (
	// ChangeAdd is a candidate leaf absent from running.
	ChangeAdd ChangeKind = iota
	// ChangeDelete is a tombstone whose path exists in running.
	ChangeDelete
)

// Change is one entry of the staged diff.
type Change struct {
	Path []string
	Kind ChangeKind
}

// Diff lists the staged changes in sorted path order. Tombstones for paths
// that never existed in running are suppressed (deleting nothing is not a
// change) and candidate leaves already present in running are no-ops.
func (s *Store) Diff() []Change {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Change
	s.candidate.walkLeaves(nil, func(path []string, tombstone bool) {
		p := append([]string(nil), path...)
		if tombstone {
			if s.running.Present(p) {
				out = append(out, Change{Path: p, Kind: ChangeDelete})
			}
			return
		}
		if !s.running.Present(p) {
			out = append(out, Change{Path: p, Kind: ChangeAdd})
		}
	})
	return out
}

// CandidatePath is one staged leaf, for commit scope computation.
type CandidatePath struct {
	Path      []string
	Tombstone bool
}

// CandidatePaths lists every staged leaf (edits and tombstones).
func (s *Store) CandidatePaths() []CandidatePath {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []CandidatePath
	s.candidate.walkLeaves(nil, func(path []string, tombstone bool) {
		out = append(out, CandidatePath{
			Path:      append([]string(nil), path...),
			Tombstone: tombstone,
		})
	})
	return out
}

// Running returns a deep copy of the running tree.
func (s *Store) Running() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running.Clone()
}

// Candidate returns a deep copy of the candidate tree.
func (s *Store) Candidate() Tree {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.candidate.Clone()
}

// CandidateEmpty reports whether any edits are staged.
func (s *Store) CandidateEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidate) == 0
}

// EffectiveSubtree returns the merged subtree at path.
func (s *Store) EffectiveSubtree(path []string) (Tree, bool) {
	eff := s.Merge()
	v, ok := eff.Get(path)
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
