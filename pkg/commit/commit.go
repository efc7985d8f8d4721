// Package commit orchestrates configuration commits: it computes the
// effective configuration, decides which renderer scripts must run, invokes
// them in schema-declaration order, and promotes the candidate to running
// only when every script succeeded.
package commit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/psaab/confsh/pkg/configstore"
	"github.com/psaab/confsh/pkg/schema"
)

// Orchestrator drives the commit sequence against one store and one schema.
type Orchestrator struct {
	store    *configstore.Store
	bindings []schema.ScriptBinding
	runner   Runner
}

// New creates an orchestrator. Script bindings are collected from the
// schema once, in declaration order.
func New(store *configstore.Store, tree *schema.Tree, runner Runner) *Orchestrator {
	return &Orchestrator{
		store:    store,
		bindings: tree.ScriptBindings(),
		runner:   runner,
	}
}

// ScriptResult captures one successful script invocation.
type ScriptResult struct {
	Script string
	Output string // captured stdout, surfaced to the operator
}

// Result reports a completed commit.
type Result struct {
	Scripts []ScriptResult
}

// Plan returns the ordered list of scripts the next commit would run.
// Deterministic for a fixed schema and (running, candidate) pair.
func (o *Orchestrator) Plan() []string {
	return o.firingScripts(o.store.Merge())
}

// Commit runs the full sequence. On any script failure the store is left
// untouched (running unmodified, candidate still staged) and the error is
// a *ScriptError identifying the script. Scripts that already ran are not
// rolled back: only the store's own state is transactional.
func (o *Orchestrator) Commit(ctx context.Context) (*Result, error) {
	effective := o.store.Merge()
	scripts := o.firingScripts(effective)

	payload, err := json.Marshal(effective)
	if err != nil {
		return nil, fmt.Errorf("encode effective configuration: %w", err)
	}

	res := &Result{}
	for _, script := range scripts {
		slog.Info("running commit script", "script", script)
		stdout, err := o.runner.Run(ctx, script, payload)
		if err != nil {
			return nil, err
		}
		res.Scripts = append(res.Scripts, ScriptResult{Script: script, Output: stdout})
	}

	o.store.Apply(effective)
	return res, nil
}

// firingScripts evaluates every binding against the staged changes and
// returns the scripts to run, each exactly once, in declaration order.
func (o *Orchestrator) firingScripts(effective configstore.Tree) []string {
	paths := o.store.CandidatePaths()
	if len(paths) == 0 {
		return nil
	}
	running := o.store.Running()

	var out []string
	seen := make(map[string]bool)
	for _, b := range o.bindings {
		if seen[b.Script] {
			continue
		}
		if bindingFires(b, paths, running, effective) {
			seen[b.Script] = true
			out = append(out, b.Script)
		}
	}
	return out
}

// bindingFires decides whether a script binding is in scope of the staged
// changes. An edit fires the binding when its path sits at or below the
// binding prefix and the effective configuration holds content under the
// prefix; an edit above the prefix changes nothing the script renders. A
// tombstone also fires when it cuts an ancestor of the prefix, provided
// running held content under the prefix before the change. Deleting
// something that was never configured fires nothing.
func bindingFires(b schema.ScriptBinding, paths []configstore.CandidatePath, running, effective configstore.Tree) bool {
	for _, cp := range paths {
		if cp.Tombstone {
			if pathsOverlap(b.Prefix, cp.Path) && prefixConfigured(running, b.Prefix) {
				return true
			}
			continue
		}
		if pathUnderPrefix(b.Prefix, cp.Path) && prefixConfigured(effective, b.Prefix) {
			return true
		}
	}
	return false
}

// pathsOverlap reports whether one of (binding prefix, candidate path) is
// a prefix of the other. A tag segment in the binding prefix matches any
// literal token.
func pathsOverlap(prefix []*schema.Node, path []string) bool {
	n := len(prefix)
	if len(path) < n {
		n = len(path)
	}
	for i := 0; i < n; i++ {
		if prefix[i].Kind == schema.KindTag {
			continue
		}
		if prefix[i].Name != path[i] {
			return false
		}
	}
	return true
}

// pathUnderPrefix reports whether path is equal to or a descendant of the
// binding prefix. A tag segment in the prefix matches any literal token.
func pathUnderPrefix(prefix []*schema.Node, path []string) bool {
	if len(path) < len(prefix) {
		return false
	}
	for i, seg := range prefix {
		if seg.Kind == schema.KindTag {
			continue
		}
		if seg.Name != path[i] {
			return false
		}
	}
	return true
}

// prefixConfigured reports whether the tree holds content under any
// instantiation of the binding prefix.
func prefixConfigured(tree configstore.Tree, prefix []*schema.Node) bool {
	if tree == nil {
		return false
	}
	if len(prefix) == 0 {
		return len(tree) > 0
	}
	seg := prefix[0]
	if seg.Kind == schema.KindTag {
		for _, v := range tree {
			if v == nil {
				continue
			}
			if len(prefix) == 1 || prefixConfigured(v, prefix[1:]) {
				return true
			}
		}
		return false
	}
	v, ok := tree[seg.Name]
	if !ok || v == nil {
		return false
	}
	if len(prefix) == 1 {
		return true
	}
	return prefixConfigured(v, prefix[1:])
}
