package ddns

import (
	"context"
	"fmt"
	"net/netip"
)

// FromString constructs a resolver that always returns the fixed address addr.
func FromString(addr string) Resolver {
	return stringResolver(addr)
}

type stringResolver string

func (s stringResolver) Resolve(context.Context) (string, error) {
	addr, err := netip.ParseAddr(string(s))
	if err != nil {
		return "", fmt.Errorf("unable to parse IP: %w", err)
	}
	if !addr.Is4() {
		return "", fmt.Errorf("%s is not an IPv4 address", addr)
	}
	return addr.String(), nil
}
