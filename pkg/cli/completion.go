package cli

import (
	"strings"

	"github.com/psaab/confsh/pkg/cmdtree"
)

// configTopLevel lists the configuration-mode commands shown at the start
// of a line.
var configTopLevel = []cmdtree.Candidate{
	{Name: "commit", Desc: "Apply staged changes to the running configuration"},
	{Name: "compare", Desc: "Show staged changes against running"},
	{Name: "delete", Desc: "Stage removal of a configuration path"},
	{Name: "discard", Desc: "Drop all staged changes"},
	{Name: "exit", Desc: "Leave configuration mode"},
	{Name: "run", Desc: "Run an operational-mode command"},
	{Name: "save", Desc: "Write the running configuration to disk"},
	{Name: "set", Desc: "Stage a configuration path"},
	{Name: "show", Desc: "Show configuration"},
}

var opBuiltins = []cmdtree.Candidate{
	{Name: "configure", Desc: "Enter configuration mode"},
	{Name: "exit", Desc: "Exit the shell"},
	{Name: "quit", Desc: "Exit the shell"},
}

var showTargets = []cmdtree.Candidate{
	{Name: "candidate", Desc: "Staged configuration"},
	{Name: "commands", Desc: "Configuration as set commands"},
	{Name: "running", Desc: "Active configuration"},
}

var showCommandsTargets = []cmdtree.Candidate{
	{Name: "candidate", Desc: "Staged changes as set/delete commands"},
	{Name: "running", Desc: "Active configuration as set commands"},
}

// splitWords breaks the text left of the cursor into complete words plus
// the partial word being typed.
func splitWords(text string) ([]string, string) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, ""
	}
	if strings.HasSuffix(text, " ") || strings.HasSuffix(text, "\t") {
		return words, ""
	}
	return words[:len(words)-1], words[len(words)-1]
}

func filterCandidates(in []cmdtree.Candidate, partial string) []cmdtree.Candidate {
	var out []cmdtree.Candidate
	for _, c := range in {
		if strings.HasPrefix(c.Name, partial) {
			out = append(out, c)
		}
	}
	return out
}

// candidates computes the completion set for the current mode. With help
// set, display-only rows ('<enter>', value placeholders) are included;
// tab completion must never insert those.
func (c *CLI) candidates(words []string, partial string, help bool) []cmdtree.Candidate {
	if c.configMode {
		return c.configCandidates(words, partial, help)
	}
	return c.operationalCandidates(words, partial, help)
}

func (c *CLI) operationalCandidates(words []string, partial string, help bool) []cmdtree.Candidate {
	out := cmdtree.Complete(c.op, c.op.Root(), words, partial)
	if len(words) == 0 {
		out = append(out, filterCandidates(opBuiltins, partial)...)
	}
	if help && len(words) > 0 && partial == "" {
		if node := cmdtree.Resolve(c.op.Root(), words); node != nil && node.Command != "" {
			out = append(out, cmdtree.Candidate{Name: "<enter>", Desc: "Execute this command"})
		}
	}
	return out
}

func (c *CLI) configCandidates(words []string, partial string, help bool) []cmdtree.Candidate {
	if len(words) == 0 {
		return filterCandidates(configTopLevel, partial)
	}

	set := c.tree.Action("set")
	switch words[0] {
	case "set", "delete":
		out := cmdtree.Complete(c.tree, set, words[1:], partial)
		if help && len(words) > 1 && partial == "" {
			if cmdtree.Resolve(set, words[1:]) != nil {
				out = append(out, cmdtree.Candidate{Name: "<enter>", Desc: "Apply this path"})
			}
		}
		return out

	case "show":
		if len(words) >= 2 {
			switch words[1] {
			case "commands":
				if len(words) == 2 {
					return filterCandidates(showCommandsTargets, partial)
				}
				return nil
			case "running", "candidate":
				return nil
			}
		}
		out := cmdtree.Complete(c.tree, set, words[1:], partial)
		if len(words) == 1 {
			out = append(out, filterCandidates(showTargets, partial)...)
		}
		return out

	case "compare":
		if len(words) == 1 && strings.HasPrefix("commands", partial) {
			return []cmdtree.Candidate{{Name: "commands", Desc: "Staged changes as set commands"}}
		}
		return nil

	case "run":
		return c.operationalCandidates(words[1:], partial, help)
	}
	return nil
}

// completer adapts the candidate computation to readline's AutoCompleter.
type completer struct {
	c *CLI
}

// Do implements tab completion: a single match is completed with a
// trailing space, several matches sharing a longer common prefix extend
// the line without finalizing, otherwise the candidates are listed above
// the prompt.
func (cc *completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line[:pos])
	words, partial := splitWords(text)

	cands := cc.c.candidates(words, partial, false)
	names := cmdtree.Names(cands)
	if len(names) == 0 {
		return nil, 0
	}

	if len(names) == 1 {
		suffix := names[0][len(partial):]
		return [][]rune{[]rune(suffix + " ")}, len(partial)
	}

	cmdtree.WriteHelp(cc.c.rl.Stdout(), cands)
	cp := cmdtree.CommonPrefix(names)
	suffix := cp[len(partial):]
	if suffix == "" {
		return nil, 0
	}
	return [][]rune{[]rune(suffix)}, len(partial)
}
