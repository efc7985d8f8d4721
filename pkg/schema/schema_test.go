package schema

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type fakeSystem struct {
	ifaces []string
	vrfs   []string
	err    error
}

func (f fakeSystem) Interfaces(prefixes []string) ([]string, error) { return f.ifaces, f.err }
func (f fakeSystem) VRFs() ([]string, error)                        { return f.vrfs, f.err }

const testCommands = `{
	"set": {"description": "Set a configuration value"},
	"delete": {"description": "Delete a configuration element"},
	"show": {"description": "Show configuration"},
	"compare": {"description": "Show staged changes"}
}`

const testConfig = `{
	"interfaces": {
		"description": "Network interfaces",
		"script": "render-interfaces",
		"interface": {
			"type": "tagNode",
			"description": "Interface name",
			"validator": "interface-name",
			"suggestor": "list_interfaces",
			"multi": true,
			"address": {
				"description": "IP address with prefix length",
				"addr": {
					"type": "tagNode",
					"validator": "ip-address-or-prefix",
					"multi": true
				}
			},
			"vrf": {
				"description": "VRF binding",
				"name": {"type": "tagNode", "validator": "vrf-name"}
			}
		}
	},
	"protocols": {
		"description": "Routing protocols",
		"static": {
			"description": "Static routes",
			"script": "render-static",
			"route": {
				"type": "tagNode",
				"description": "Destination prefix",
				"validator": "ip-prefix",
				"multi": true,
				"next-hop": {
					"description": "Next hop router",
					"hop": {"type": "tagNode", "validator": "ip-address"}
				}
			}
		}
	},
	"system": {
		"description": "System settings",
		"script": "render-system",
		"host-name": {
			"description": "Host name",
			"name": {"type": "tagNode"}
		},
		"log-level": {
			"description": "Log verbosity",
			"level": {
				"type": "tagNode",
				"validator": "enum",
				"enum-values": ["debug", "info", "warn", "error"]
			}
		}
	}
}`

func loadTestTree(t *testing.T, sys System) *Tree {
	t.Helper()
	tree, err := Load(strings.NewReader(testCommands), strings.NewReader(testConfig), sys)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return tree
}

func TestLoadMergesConfigUnderActions(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})

	for _, action := range []string{"set", "delete"} {
		n := tree.Action(action)
		if n == nil {
			t.Fatalf("action %s missing", action)
		}
		if n.Child("interfaces") == nil || n.Child("protocols") == nil || n.Child("system") == nil {
			t.Errorf("config schema not merged under %s", action)
		}
	}
	if tree.Action("show").Child("interfaces") != nil {
		t.Error("config schema must not leak under show")
	}
}

func TestLoadPreservesDeclarationOrder(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})

	var names []string
	for _, c := range tree.Action("set").Children() {
		names = append(names, c.Name)
	}
	want := []string{"interfaces", "protocols", "system"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("child order = %v, want %v", names, want)
	}
}

func TestScriptBindingsDeclarationOrder(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})

	var scripts []string
	for _, b := range tree.ScriptBindings() {
		scripts = append(scripts, b.Script)
	}
	want := []string{"render-interfaces", "render-static", "render-system"}
	if !reflect.DeepEqual(scripts, want) {
		t.Errorf("script order = %v, want %v", scripts, want)
	}
}

func TestLoadRejections(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"two tag children", `{"a": {
			"x": {"type": "tagNode"},
			"y": {"type": "tagNode"}
		}}`},
		{"unknown validator", `{"a": {
			"x": {"type": "tagNode", "validator": "mac-address"}
		}}`},
		{"unknown suggestor", `{"a": {
			"x": {"type": "tagNode", "suggestor": "list_zones"}
		}}`},
		{"enum without values", `{"a": {
			"x": {"type": "tagNode", "validator": "enum"}
		}}`},
		{"enum values without validator", `{"a": {
			"x": {"type": "tagNode", "enum-values": ["y"]}
		}}`},
		{"validator on static node", `{"a": {"validator": "ip-address"}}`},
		{"unknown node type", `{"a": {"type": "leafNode"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(testCommands), strings.NewReader(tt.config), fakeSystem{})
			var lerr *SchemaLoadError
			if !errors.As(err, &lerr) {
				t.Fatalf("expected SchemaLoadError, got %v", err)
			}
		})
	}
}

func TestLoadTagNodeTypeAfterValidator(t *testing.T) {
	// JSON key order is arbitrary; "type" after "validator" must still load.
	config := `{"a": {"x": {"validator": "ip-address", "type": "tagNode"}}}`
	tree, err := Load(strings.NewReader(testCommands), strings.NewReader(config), fakeSystem{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	x := tree.Action("set").Child("a").TagChild()
	if x == nil || x.Validator != ValidatorIPAddress {
		t.Errorf("tag node with trailing type not loaded: %+v", x)
	}
}

func TestMatchPrefersStaticChild(t *testing.T) {
	config := `{"vrf": {
		"all": {"description": "All VRFs"},
		"name": {"type": "tagNode", "validator": "vrf-name"}
	}}`
	tree, err := Load(strings.NewReader(testCommands), strings.NewReader(config), fakeSystem{vrfs: []string{"mgmt"}})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	vrf := tree.Action("set").Child("vrf")

	n, err := tree.Match(vrf, "all")
	if err != nil || n == nil || n.Kind != KindStatic {
		t.Fatalf("static key must win over the tag child, got %v, %v", n, err)
	}

	n, err = tree.Match(vrf, "mgmt")
	if err != nil || n == nil || n.Kind != KindTag {
		t.Fatalf("unmatched token should bind the tag child, got %v, %v", n, err)
	}
}

func TestMatchValidatorFailure(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})
	route := tree.Action("set").Child("protocols").Child("static")

	n, err := tree.Match(route, "not-a-prefix")
	if n != nil {
		t.Fatal("invalid value must not match")
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Token != "not-a-prefix" {
		t.Errorf("Token = %q", verr.Token)
	}
}

func TestMatchNoChild(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})
	n, err := tree.Match(tree.Action("set").Child("system"), "bogus")
	if n != nil || err != nil {
		t.Errorf("expected nil/nil for an unmatched token, got %v, %v", n, err)
	}
}

func TestLookupRecordsBindings(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})

	path := []string{"protocols", "static", "route", "10.1.0.0/16", "next-hop", "10.0.0.1"}
	n, bindings, ok := tree.Lookup(tree.Action("set"), path)
	if !ok {
		t.Fatal("lookup should succeed")
	}
	if n.Name != "hop" {
		t.Errorf("ended on %s, want hop", n.Name)
	}
	want := []TagBinding{
		{Name: "route", Value: "10.1.0.0/16"},
		{Name: "hop", Value: "10.0.0.1"},
	}
	if !reflect.DeepEqual(bindings, want) {
		t.Errorf("bindings = %v, want %v", bindings, want)
	}

	// Lookup never runs validators: a syntactically bad value still binds.
	if _, _, ok := tree.Lookup(tree.Action("set"), []string{"protocols", "static", "route", "junk"}); !ok {
		t.Error("lookup must not validate tag values")
	}

	if _, _, ok := tree.Lookup(tree.Action("set"), []string{"system", "bogus"}); ok {
		t.Error("lookup must fail on an unknown static keyword")
	}
}

func TestOnlyTagChild(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{})

	hostName := tree.Action("set").Child("system").Child("host-name")
	if !hostName.OnlyTagChild() {
		t.Error("host-name's sole child is its tag node")
	}
	iface := tree.Action("set").Child("interfaces").Child("interface")
	if iface.OnlyTagChild() {
		t.Error("interface node has static children besides the tag")
	}
}

func TestValidators(t *testing.T) {
	sys := fakeSystem{ifaces: []string{"eth0", "eth1"}, vrfs: []string{"mgmt"}}
	tree := loadTestTree(t, sys)
	set := tree.Action("set")

	ifaceTag := set.Child("interfaces").TagChild()
	addrTag := set.Child("interfaces").Child("interface").Child("address").TagChild()
	routeTag := set.Child("protocols").Child("static").TagChild()
	hopTag := set.Child("protocols").Child("static").Child("route").Child("next-hop").TagChild()
	vrfTag := set.Child("interfaces").Child("interface").Child("vrf").TagChild()
	levelTag := set.Child("system").Child("log-level").TagChild()

	tests := []struct {
		tag   *Node
		value string
		ok    bool
	}{
		{hopTag, "10.0.0.1", true},
		{hopTag, "fe80::1", true},
		{hopTag, "10.0.0.0/8", false},
		{hopTag, "hostname", false},
		{routeTag, "10.1.0.0/16", true},
		{routeTag, "10.1.0.1", false},
		{addrTag, "10.0.0.1", true},
		{addrTag, "10.0.0.1/24", true},
		{addrTag, "nope", false},
		{levelTag, "debug", true},
		{levelTag, "verbose", false},
		{ifaceTag, "eth0", true},
		{ifaceTag, "eth7", false},
		{vrfTag, "mgmt", true},
		{vrfTag, "all", true},
		{vrfTag, "blue", false},
	}
	for _, tt := range tests {
		verr := tree.checkValue(tt.tag, tt.value)
		if (verr == nil) != tt.ok {
			t.Errorf("checkValue(%s, %q) = %v, want ok=%v", tt.tag.Name, tt.value, verr, tt.ok)
		}
	}
}

func TestNumericValidators(t *testing.T) {
	config := `{"a": {
		"ttl": {"hops": {"type": "tagNode", "validator": "num-1-255"}},
		"port": {"p": {"type": "tagNode", "validator": "num-1-65535"}}
	}}`
	tree, err := Load(strings.NewReader(testCommands), strings.NewReader(config), fakeSystem{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ttl := tree.Action("set").Child("a").Child("ttl").TagChild()
	port := tree.Action("set").Child("a").Child("port").TagChild()

	tests := []struct {
		tag   *Node
		value string
		ok    bool
	}{
		{ttl, "1", true},
		{ttl, "255", true},
		{ttl, "0", false},
		{ttl, "256", false},
		{ttl, "ten", false},
		{port, "65535", true},
		{port, "65536", false},
	}
	for _, tt := range tests {
		verr := tree.checkValue(tt.tag, tt.value)
		if (verr == nil) != tt.ok {
			t.Errorf("checkValue(%s, %q) = %v, want ok=%v", tt.tag.Name, tt.value, verr, tt.ok)
		}
	}
}

func TestLivenessValidatorDegradesOnError(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{err: errors.New("netlink down")})
	ifaceTag := tree.Action("set").Child("interfaces").TagChild()

	// When enumeration fails the name is accepted unverified.
	if verr := tree.checkValue(ifaceTag, "eth0"); verr != nil {
		t.Errorf("expected acceptance on enumeration failure, got %v", verr)
	}
}

func TestSuggest(t *testing.T) {
	sys := fakeSystem{ifaces: []string{"eth1", "eth0"}, vrfs: []string{"mgmt"}}
	tree := loadTestTree(t, sys)
	set := tree.Action("set")

	got := tree.Suggest(set.Child("interfaces").TagChild())
	if !reflect.DeepEqual(got, []string{"eth0", "eth1"}) {
		t.Errorf("interface suggestions = %v", got)
	}

	got = tree.Suggest(set.Child("system").Child("log-level").TagChild())
	if !reflect.DeepEqual(got, []string{"debug", "info", "warn", "error"}) {
		t.Errorf("enum suggestions = %v", got)
	}

	if got := tree.Suggest(set.Child("system").Child("host-name").TagChild()); got != nil {
		t.Errorf("tag without suggestor should suggest nothing, got %v", got)
	}
}

func TestSuggestErrorSuggestsNothing(t *testing.T) {
	tree := loadTestTree(t, fakeSystem{err: errors.New("netlink down")})
	if got := tree.Suggest(tree.Action("set").Child("interfaces").TagChild()); got != nil {
		t.Errorf("expected no suggestions on enumeration failure, got %v", got)
	}
}

func TestLoadOp(t *testing.T) {
	doc := `{
		"ping": {
			"description": "Send ICMP echo requests",
			"host": {"type": "tagNode", "description": "Destination", "command": "ping -c 5 $host"}
		}
	}`
	tree, err := LoadOp(strings.NewReader(doc), fakeSystem{})
	if err != nil {
		t.Fatalf("LoadOp: %v", err)
	}
	n, bindings, ok := tree.Lookup(tree.Root(), []string{"ping", "10.0.0.1"})
	if !ok || n.Command != "ping -c 5 $host" {
		t.Fatalf("op lookup failed: %v, %v", n, ok)
	}
	if len(bindings) != 1 || bindings[0].Value != "10.0.0.1" {
		t.Errorf("bindings = %v", bindings)
	}
}
