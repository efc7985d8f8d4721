// Package cli implements the interactive shell: an operational mode that
// runs commands resolved against the op tree, and a configuration mode
// that stages, inspects and commits changes against the schema.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/chzyer/readline"

	"github.com/psaab/confsh/pkg/cmdtree"
	"github.com/psaab/confsh/pkg/commit"
	"github.com/psaab/confsh/pkg/configstore"
	"github.com/psaab/confsh/pkg/parser"
	"github.com/psaab/confsh/pkg/schema"
)

// CLI is the interactive shell.
type CLI struct {
	rl    *readline.Instance
	tree  *schema.Tree // configuration schema (set/delete/show paths)
	op    *schema.Tree // operational command tree
	store *configstore.Store
	orch  *commit.Orchestrator

	hostname    string
	username    string
	historyFile string
	configMode  bool
}

// New creates a shell over the given schema trees, store and orchestrator.
func New(tree, op *schema.Tree, store *configstore.Store, orch *commit.Orchestrator, historyFile string) *CLI {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "confsh"
	}
	username := os.Getenv("USER")
	if username == "" {
		username = "root"
	}

	return &CLI{
		tree:        tree,
		op:          op,
		store:       store,
		orch:        orch,
		hostname:    hostname,
		username:    username,
		historyFile: historyFile,
	}
}

// Run starts the interactive loop and blocks until the operator exits.
func (c *CLI) Run() error {
	var err error
	c.rl, err = readline.NewEx(&readline.Config{
		Prompt:          c.operationalPrompt(),
		HistoryFile:     c.historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    &completer{c: c},
		Listener:        readline.FuncListener(c.helpListener),
	})
	if err != nil {
		return fmt.Errorf("readline init: %w", err)
	}
	defer c.rl.Close()

	fmt.Println("confsh - schema-driven configuration shell")
	fmt.Println("Type '?' for help")
	fmt.Println()

	for {
		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue // ^C discards the in-progress line only
			}
			if err == io.EOF {
				if c.configMode {
					fmt.Println()
					c.leaveConfigMode()
					continue
				}
				break
			}
			return err
		}

		// Pasted input may carry several commands; run them in order.
		for _, l := range strings.Split(line, "\n") {
			l = strings.TrimSpace(l)
			if l == "" {
				continue
			}
			if err := c.dispatch(l); err != nil {
				if err == errExit {
					return nil
				}
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		}
	}
	return nil
}

var errExit = fmt.Errorf("exit")

func (c *CLI) dispatch(line string) error {
	if c.configMode {
		return c.dispatchConfig(line)
	}
	return c.dispatchOperational(line)
}

func (c *CLI) dispatchOperational(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "configure":
		c.configMode = true
		c.rl.SetPrompt(c.configPrompt())
		fmt.Println("Entering configuration mode")
		return nil

	case "quit", "exit":
		return errExit

	case "?", "help":
		cmdtree.WriteHelp(os.Stdout, c.candidates(nil, "", true))
		return nil
	}

	return c.runOperational(parts)
}

// resolveOperational walks the tokens through the op tree and returns the
// command template of the node the path ends on, with tag values bound
// along the way substituted for $name references.
func (c *CLI) resolveOperational(parts []string) (string, error) {
	node, bindings, ok := c.op.Lookup(c.op.Root(), parts)
	if !ok {
		return "", fmt.Errorf("unknown command: %s", strings.Join(parts, " "))
	}
	if node.Command == "" {
		if node.HasChildren() {
			return "", fmt.Errorf("incomplete command: %s", strings.Join(parts, " "))
		}
		return "", fmt.Errorf("unknown command: %s", strings.Join(parts, " "))
	}

	cmdStr := node.Command
	for _, b := range bindings {
		cmdStr = strings.ReplaceAll(cmdStr, "$"+b.Name, b.Value)
	}
	return cmdStr, nil
}

func (c *CLI) runOperational(parts []string) error {
	cmdStr, err := c.resolveOperational(parts)
	if err != nil {
		return err
	}

	slog.Debug("running operational command", "command", cmdStr)
	cmd := exec.Command("/bin/sh", "-c", cmdStr)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func (c *CLI) dispatchConfig(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}

	switch parts[0] {
	case "commit":
		return c.handleCommit()

	case "save":
		if err := c.store.Save(); err != nil {
			return err
		}
		fmt.Println("configuration saved")
		return nil

	case "discard":
		c.store.Discard()
		fmt.Println("candidate configuration discarded")
		return nil

	case "exit", "quit":
		c.leaveConfigMode()
		return nil

	case "run":
		if len(parts) < 2 {
			return fmt.Errorf("run: missing command")
		}
		return c.runOperational(parts[1:])

	case "?", "help":
		cmdtree.WriteHelp(os.Stdout, c.candidates(nil, "", true))
		return nil
	}

	cmd, err := parser.Parse(line, c.tree)
	if err != nil {
		var verr *schema.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "error: %v\n", verr)
			// Put the valid part of the line back so the operator can
			// fix the offending token instead of retyping the path.
			if verr.Offset > 0 {
				c.rl.WriteStdin([]byte(line[:verr.Offset]))
			}
			return nil
		}
		return err
	}
	return c.execute(cmd)
}

func (c *CLI) leaveConfigMode() {
	if !c.store.CandidateEmpty() {
		fmt.Println("warning: uncommitted changes remain staged")
	}
	c.configMode = false
	c.rl.SetPrompt(c.operationalPrompt())
	fmt.Println("Exiting configuration mode")
}

func (c *CLI) execute(cmd *parser.ParsedCommand) error {
	switch cmd.Action {
	case parser.ActionSet:
		return c.store.Set(cmd.PathValues(), cmd.ExclusiveLevels())
	case parser.ActionDelete:
		return c.store.Delete(cmd.PathValues())
	case parser.ActionShow:
		return c.handleShow(cmd)
	case parser.ActionCompare:
		return c.handleCompare(cmd.Args)
	}
	return nil
}

func (c *CLI) handleShow(cmd *parser.ParsedCommand) error {
	if len(cmd.Path) > 0 {
		sub, ok := c.store.EffectiveSubtree(cmd.PathValues())
		if !ok {
			return &configstore.PathNotFoundError{Path: cmd.PathValues()}
		}
		fmt.Println(sub.FormatJSON())
		return nil
	}

	args := cmd.Args
	if len(args) == 0 {
		// Candidate view while edits are staged, running otherwise.
		if !c.store.CandidateEmpty() {
			fmt.Println(c.store.Candidate().FormatJSON())
		} else {
			fmt.Println(c.store.Running().FormatJSON())
		}
		return nil
	}

	switch args[0] {
	case "running":
		fmt.Println(c.store.Running().FormatJSON())
	case "candidate":
		fmt.Println(c.store.Candidate().FormatJSON())
	case "commands":
		lines, err := c.showCommandLines(args)
		if err != nil {
			return err
		}
		for _, l := range lines {
			fmt.Println(l)
		}
	default:
		return fmt.Errorf("show: unknown target '%s'", args[0])
	}
	return nil
}

// showCommandLines renders the "show commands" variants. The bare form
// shows the candidate with its deletion lines, same as an explicit
// "show commands candidate".
func (c *CLI) showCommandLines(args []string) ([]string, error) {
	switch {
	case len(args) == 1, args[1] == "candidate":
		return c.store.Candidate().SetCommands(true), nil
	case args[1] == "running":
		return c.store.Running().SetCommands(false), nil
	}
	return nil, fmt.Errorf("show commands: unknown target '%s'", args[1])
}

func (c *CLI) handleCompare(args []string) error {
	if len(args) > 0 && args[0] != "commands" {
		return fmt.Errorf("compare: unknown argument '%s'", args[0])
	}

	changes := c.store.Diff()
	if len(changes) == 0 {
		fmt.Println("no changes")
		return nil
	}
	for _, l := range compareLines(changes, len(args) > 0) {
		fmt.Println(l)
	}
	return nil
}

// compareLines renders staged changes, one per line. Both forms mark
// additions with "+ " and deletions with "- "; the commands form spells
// out the set/delete command after the marker.
func compareLines(changes []configstore.Change, asCommands bool) []string {
	out := make([]string, 0, len(changes))
	for _, ch := range changes {
		path := strings.Join(ch.Path, " ")
		switch {
		case asCommands && ch.Kind == configstore.ChangeAdd:
			out = append(out, "+ set "+path)
		case asCommands:
			out = append(out, "- delete "+path)
		case ch.Kind == configstore.ChangeAdd:
			out = append(out, "+ "+path)
		default:
			out = append(out, "- "+path)
		}
	}
	return out
}

func (c *CLI) handleCommit() error {
	if c.store.CandidateEmpty() {
		fmt.Println("no changes to commit")
		return nil
	}

	res, err := c.orch.Commit(context.Background())
	if err != nil {
		var serr *commit.ScriptError
		if errors.As(err, &serr) && serr.Stderr != "" {
			fmt.Fprint(os.Stderr, serr.Stderr)
		}
		return err
	}

	for _, s := range res.Scripts {
		if s.Output != "" {
			fmt.Print(s.Output)
		}
	}
	fmt.Println("commit complete")
	return nil
}

// helpListener intercepts '?' to show contextual help without submitting
// the line.
func (c *CLI) helpListener(line []rune, pos int, key rune) ([]rune, int, bool) {
	if key != '?' || pos < 1 {
		return line, pos, false
	}
	// Strip the '?' that readline already inserted.
	cleanLine := make([]rune, 0, len(line)-1)
	cleanLine = append(cleanLine, line[:pos-1]...)
	cleanLine = append(cleanLine, line[pos:]...)
	text := string(cleanLine[:pos-1])

	words, partial := splitWords(text)
	cands := c.candidates(words, partial, true)
	if len(cands) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "  (no help available)")
	} else {
		cmdtree.WriteHelp(c.rl.Stdout(), cands)
	}
	return cleanLine, pos - 1, true
}

func (c *CLI) operationalPrompt() string {
	return fmt.Sprintf("%s@%s:~$ ", c.username, c.hostname)
}

func (c *CLI) configPrompt() string {
	return fmt.Sprintf("%s@%s# ", c.username, c.hostname)
}
