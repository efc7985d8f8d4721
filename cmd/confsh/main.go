// confsh is a schema-driven configuration shell for a network device.
//
// It loads the command and configuration schemas at startup, restores the
// persisted running configuration and drops into an interactive shell
// with an operational and a configuration mode.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/psaab/confsh/pkg/cli"
	"github.com/psaab/confsh/pkg/commit"
	"github.com/psaab/confsh/pkg/configstore"
	"github.com/psaab/confsh/pkg/schema"
)

// settings is the optional TOML settings file. Flags override file values
// and a missing file is not an error.
type settings struct {
	Commands      string `toml:"commands"`
	Schema        string `toml:"schema"`
	Op            string `toml:"op"`
	Config        string `toml:"config"`
	History       string `toml:"history"`
	ScriptTimeout string `toml:"script-timeout"`
}

func defaultSettings() settings {
	return settings{
		Commands: "/etc/confsh/commands.json",
		Schema:   "/etc/confsh/schema.json",
		Op:       "/etc/confsh/op.json",
		Config:   "/etc/confsh/config.json",
		History:  "/tmp/confsh_history",
	}
}

func main() {
	settingsFile := flag.String("settings", "/etc/confsh/confsh.toml", "settings file path (TOML)")
	commandsFile := flag.String("commands", "", "command tree JSON (overrides settings)")
	schemaFile := flag.String("schema", "", "configuration schema JSON (overrides settings)")
	opFile := flag.String("op", "", "operational command tree JSON (overrides settings)")
	configFile := flag.String("config", "", "persisted configuration path (overrides settings)")
	historyFile := flag.String("history", "", "readline history path (overrides settings)")
	scriptTimeout := flag.Duration("script-timeout", 0, "per-script commit timeout (overrides settings)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// Set up structured logging
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	s := defaultSettings()
	if _, err := toml.DecodeFile(*settingsFile, &s); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "confsh: settings %s: %v\n", *settingsFile, err)
		os.Exit(1)
	}
	if *commandsFile != "" {
		s.Commands = *commandsFile
	}
	if *schemaFile != "" {
		s.Schema = *schemaFile
	}
	if *opFile != "" {
		s.Op = *opFile
	}
	if *configFile != "" {
		s.Config = *configFile
	}
	if *historyFile != "" {
		s.History = *historyFile
	}

	timeout := 30 * time.Second
	if s.ScriptTimeout != "" {
		d, err := time.ParseDuration(s.ScriptTimeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "confsh: settings script-timeout: %v\n", err)
			os.Exit(1)
		}
		timeout = d
	}
	if *scriptTimeout > 0 {
		timeout = *scriptTimeout
	}

	sys := schema.NewNetlinkSystem()

	tree, err := loadTree(s.Commands, s.Schema, sys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "confsh: %v\n", err)
		os.Exit(1)
	}
	opTree, err := loadOpTree(s.Op, sys)
	if err != nil {
		fmt.Fprintf(os.Stderr, "confsh: %v\n", err)
		os.Exit(1)
	}

	store := configstore.New(s.Config)
	if err := store.Load(); err != nil {
		slog.Warn("could not load configuration, starting empty", "error", err)
	}

	orch := commit.New(store, tree, commit.ExecRunner{Timeout: timeout})

	sh := cli.New(tree, opTree, store, orch, s.History)
	if err := sh.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "confsh: %v\n", err)
		os.Exit(1)
	}
}

func loadTree(commandsPath, schemaPath string, sys schema.System) (*schema.Tree, error) {
	commands, err := os.Open(commandsPath)
	if err != nil {
		return nil, fmt.Errorf("command tree: %w", err)
	}
	defer commands.Close()

	config, err := os.Open(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("configuration schema: %w", err)
	}
	defer config.Close()

	return schema.Load(commands, config, sys)
}

func loadOpTree(path string, sys schema.System) (*schema.Tree, error) {
	op, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("operational tree: %w", err)
	}
	defer op.Close()

	return schema.LoadOp(op, sys)
}
