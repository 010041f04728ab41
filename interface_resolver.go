package ddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the first non-loopback
// IPv4 address reported by the given interfaces.
// If no interfaces are provided then all interfaces will be considered.
// Only useful on hosts that hold a public address directly; machines behind
// NAT should use the web resolver instead.
func InterfaceResolver(iface ...string) Resolver {
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(context.Context) (string, error) {
	addrs, err := r.addrs()
	if err != nil {
		return "", err
	}
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	for _, addr := range addrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		a := prefix.Addr()
		if a.IsLoopback() || !a.Is4() {
			continue
		}
		return a.String(), nil
	}
	return "", errors.New("no usable IPv4 address on local interfaces")
}

func (r interfaceResolver) addrs() ([]net.Addr, error) {
	if len(r.ifaces) == 0 {
		adds, err := net.InterfaceAddrs()
		if err != nil {
			return nil, fmt.Errorf("error getting addresses for interface: %w", err)
		}
		return adds, nil
	}

	var addrs []net.Addr
	var errs []error
	for _, name := range r.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		addrs = append(addrs, a...)
	}
	if len(addrs) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return addrs, nil
}
