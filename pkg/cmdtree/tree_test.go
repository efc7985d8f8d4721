package cmdtree

import (
	"reflect"
	"strings"
	"testing"

	"github.com/psaab/confsh/pkg/schema"
)

type fakeSystem struct {
	ifaces []string
}

func (f fakeSystem) Interfaces(prefixes []string) ([]string, error) { return f.ifaces, nil }
func (f fakeSystem) VRFs() ([]string, error)                        { return nil, nil }

const testCommands = `{
	"set": {"description": "Set a configuration value"},
	"delete": {"description": "Delete a configuration element"},
	"show": {"description": "Show configuration"},
	"compare": {"description": "Show staged changes"}
}`

const testConfig = `{
	"interfaces": {
		"description": "Network interfaces",
		"interface": {
			"type": "tagNode",
			"description": "Interface name",
			"suggestor": "list_interfaces",
			"multi": true,
			"address": {"description": "IP address",
				"addr": {"type": "tagNode", "description": "Address with prefix length", "multi": true}
			},
			"mtu": {"description": "Maximum transmission unit",
				"bytes": {"type": "tagNode", "validator": "num-1-65535"}
			}
		}
	},
	"system": {
		"description": "System settings",
		"host-name": {"description": "Host name",
			"name": {"type": "tagNode", "description": "New host name"}
		}
	}
}`

func testTree(t *testing.T, ifaces ...string) *schema.Tree {
	t.Helper()
	tree, err := schema.Load(strings.NewReader(testCommands), strings.NewReader(testConfig),
		fakeSystem{ifaces: ifaces})
	if err != nil {
		t.Fatalf("schema.Load: %v", err)
	}
	return tree
}

func names(cands []Candidate) []string {
	out := make([]string, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.Name)
	}
	return out
}

func TestCompleteTopLevel(t *testing.T) {
	tree := testTree(t)
	got := names(Complete(tree, tree.Action("set"), nil, ""))
	if !reflect.DeepEqual(got, []string{"interfaces", "system"}) {
		t.Errorf("candidates = %v", got)
	}
}

func TestCompleteFiltersByPartial(t *testing.T) {
	tree := testTree(t)
	got := names(Complete(tree, tree.Action("set"), nil, "sy"))
	if !reflect.DeepEqual(got, []string{"system"}) {
		t.Errorf("candidates = %v", got)
	}
	if got := Complete(tree, tree.Action("set"), nil, "zz"); got != nil {
		t.Errorf("no match expected, got %v", got)
	}
}

func TestCompleteSuggestsTagValues(t *testing.T) {
	tree := testTree(t, "eth0", "eth1", "lo")
	got := names(Complete(tree, tree.Action("set"), []string{"interfaces"}, "eth"))
	if !reflect.DeepEqual(got, []string{"eth0", "eth1"}) {
		t.Errorf("candidates = %v", got)
	}
}

func TestCompletePlaceholderWhenNoSuggestions(t *testing.T) {
	tree := testTree(t)
	cands := Complete(tree, tree.Action("set"), []string{"system", "host-name"}, "")
	if len(cands) != 1 || cands[0].Name != "<name>" {
		t.Fatalf("candidates = %v", cands)
	}
	if Completable(cands[0].Name) {
		t.Error("placeholders must not be tab-insertable")
	}

	// A partial token suppresses the placeholder row.
	if got := Complete(tree, tree.Action("set"), []string{"system", "host-name"}, "r"); got != nil {
		t.Errorf("expected nothing for a partial with no suggestions, got %v", got)
	}
}

func TestCompleteWalksThroughTagValues(t *testing.T) {
	tree := testTree(t)
	// "eth0" matches no static child and binds the interface tag.
	got := names(Complete(tree, tree.Action("set"), []string{"interfaces", "eth0"}, ""))
	if !reflect.DeepEqual(got, []string{"address", "mtu"}) {
		t.Errorf("candidates = %v", got)
	}
}

func TestCompleteOffTree(t *testing.T) {
	tree := testTree(t)
	if got := Complete(tree, tree.Action("set"), []string{"system", "host-name", "r1", "extra"}, ""); got != nil {
		t.Errorf("off-tree walk should yield nothing, got %v", got)
	}
}

func TestResolve(t *testing.T) {
	tree := testTree(t)

	n := Resolve(tree.Action("set"), []string{"interfaces", "eth0", "mtu"})
	if n == nil || n.Name != "mtu" {
		t.Errorf("resolved %v", n)
	}
	if Resolve(tree.Action("set"), []string{"bogus", "deeper"}) != nil {
		t.Error("unknown first token has nowhere to bind")
	}
}

func TestNamesSkipsPlaceholders(t *testing.T) {
	cands := []Candidate{
		{Name: "eth0"},
		{Name: "<name>"},
		{Name: "system"},
	}
	if got := Names(cands); !reflect.DeepEqual(got, []string{"eth0", "system"}) {
		t.Errorf("Names = %v", got)
	}
}

func TestWriteHelp(t *testing.T) {
	var sb strings.Builder
	WriteHelp(&sb, []Candidate{
		{Name: "system", Desc: "System settings"},
		{Name: "interfaces", Desc: "Network interfaces"},
		{Name: "<enter>", Desc: "Execute this command"},
	})
	out := sb.String()

	if !strings.HasPrefix(out, "Possible completions:\n") {
		t.Errorf("missing header: %q", out)
	}
	// Sorted: "<enter>" sorts before the letters.
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	if !strings.Contains(lines[1], "<enter>") || !strings.Contains(lines[2], "interfaces") {
		t.Errorf("rows out of order: %q", lines)
	}
	if !strings.Contains(lines[2], "Network interfaces") {
		t.Errorf("description missing: %q", lines[2])
	}
}

func TestCommonPrefix(t *testing.T) {
	tests := []struct {
		items []string
		want  string
	}{
		{nil, ""},
		{[]string{"interfaces"}, "interfaces"},
		{[]string{"eth0", "eth1"}, "eth"},
		{[]string{"abc", "xyz"}, ""},
	}
	for _, tt := range tests {
		if got := CommonPrefix(tt.items); got != tt.want {
			t.Errorf("CommonPrefix(%v) = %q, want %q", tt.items, got, tt.want)
		}
	}
}

func TestFilterPrefix(t *testing.T) {
	items := []string{"eth0", "eth1", "lo"}
	if got := FilterPrefix(items, "eth"); !reflect.DeepEqual(got, []string{"eth0", "eth1"}) {
		t.Errorf("FilterPrefix = %v", got)
	}
	if got := FilterPrefix(items, ""); !reflect.DeepEqual(got, items) {
		t.Errorf("empty prefix must pass everything through, got %v", got)
	}
}
