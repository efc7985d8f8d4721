package schema

import (
	"fmt"
	"strings"

	"github.com/vishvananda/netlink"
)

// System enumerates live system resources for liveness validators and
// suggestors. Tests substitute a fake; the shell uses the netlink backend.
type System interface {
	// Interfaces lists interface names starting with any of the given
	// prefixes. A nil prefix list applies the default filter.
	Interfaces(prefixes []string) ([]string, error)
	// VRFs lists the names of configured VRF devices.
	VRFs() ([]string, error)
}

// defaultInterfacePrefixes matches the interface classes the shell is
// willing to configure; everything else (ifb, docker veth pairs, ...) is
// still completable via an explicit suggestor_args prefix.
var defaultInterfacePrefixes = []string{
	"eth", "bond", "br", "dum", "gnv", "l2tpeth", "lo", "macsec", "peth",
	"pppoe", "sstpc", "tun", "veth", "vti", "vtun", "vxlan", "wlan", "wg",
	"wwan", "zt",
}

type netlinkSystem struct{}

// NewNetlinkSystem returns the netlink-backed System used by the shell.
func NewNetlinkSystem() System { return netlinkSystem{} }

func (netlinkSystem) Interfaces(prefixes []string) ([]string, error) {
	if prefixes == nil {
		prefixes = defaultInterfacePrefixes
	}
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	var names []string
	for _, link := range links {
		name := link.Attrs().Name
		for _, p := range prefixes {
			if strings.HasPrefix(name, p) {
				names = append(names, name)
				break
			}
		}
	}
	return names, nil
}

func (netlinkSystem) VRFs() ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	var names []string
	for _, link := range links {
		if _, ok := link.(*netlink.Vrf); ok {
			names = append(names, link.Attrs().Name)
		}
	}
	return names, nil
}
