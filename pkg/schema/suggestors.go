package schema

import (
	"log/slog"
	"sort"
)

// Suggestor is the closed set of dynamic value enumerators for tag nodes.
// Like validators, identifiers are resolved at schema load time.
type Suggestor int

const (
	SuggestorNone Suggestor = iota
	// SuggestorInterfaces enumerates live network interfaces, optionally
	// filtered by the name prefixes given in suggestor_args.
	SuggestorInterfaces
	// SuggestorVRFs enumerates live VRF devices.
	SuggestorVRFs
)

var suggestorIDs = map[string]Suggestor{
	"list_interfaces": SuggestorInterfaces,
	"list_vrfs":       SuggestorVRFs,
}

// ParseSuggestor resolves a schema suggestor identifier.
func ParseSuggestor(id string) (Suggestor, bool) {
	s, ok := suggestorIDs[id]
	return s, ok
}

// Suggest enumerates candidate values for a tag node. Enum validators
// suggest their literal values; otherwise the node's suggestor is run
// against the live system. Failures log a warning and suggest nothing;
// completion must never abort the input line.
func (t *Tree) Suggest(tag *Node) []string {
	if tag == nil {
		return nil
	}
	if tag.Validator == ValidatorEnum {
		return append([]string(nil), tag.Enum...)
	}

	var (
		names []string
		err   error
	)
	switch tag.Suggestor {
	case SuggestorNone:
		return nil
	case SuggestorInterfaces:
		names, err = t.sys.Interfaces(tag.SuggestorArgs)
	case SuggestorVRFs:
		names, err = t.sys.VRFs()
	}
	if err != nil {
		slog.Warn("suggestor failed", "tag", tag.Name, "error", err)
		return nil
	}
	sort.Strings(names)
	return names
}
