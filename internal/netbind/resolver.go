package netbind

import (
	"fmt"
	"net"

	"vault-bootstrap/pkg/log"

	"github.com/rs/zerolog"
)

// Strategy resolves a binding name to an address. ok is false when the
// strategy has no answer and the resolver should fall through to the next
// one.
type Strategy interface {
	Resolve(binding string) (address string, ok bool, err error)
}

// Resolver tries its strategies in order; the first one with an answer
// wins.
type Resolver struct {
	strategies []Strategy
	logger     zerolog.Logger
}

func NewResolver(strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		logger:     log.Logger.With().Str("component", "netbind").Logger(),
	}
}

func (r *Resolver) Resolve(binding string) (string, error) {
	for _, strategy := range r.strategies {
		address, ok, err := strategy.Resolve(binding)
		if err != nil {
			return "", err
		}
		if ok {
			r.logger.Debug().Str("binding", binding).Str("address", address).Msg("Resolved binding address")
			return address, nil
		}
	}
	return "", fmt.Errorf("no strategy resolved binding %q", binding)
}

// StaticOverride answers with a configured per-binding address.
type StaticOverride struct {
	Addresses map[string]string
}

func (s StaticOverride) Resolve(binding string) (string, bool, error) {
	address, ok := s.Addresses[binding]
	if !ok || address == "" {
		return "", false, nil
	}
	return address, true, nil
}

// InterfaceAddress answers with the first unicast IPv4 address of a named
// interface, regardless of binding.
type InterfaceAddress struct {
	Interface string
}

func (s InterfaceAddress) Resolve(string) (string, bool, error) {
	if s.Interface == "" {
		return "", false, nil
	}
	iface, err := net.InterfaceByName(s.Interface)
	if err != nil {
		return "", false, fmt.Errorf("failed to look up interface %s: %w", s.Interface, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", false, fmt.Errorf("failed to list addresses of %s: %w", s.Interface, err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			if ip4 := ipNet.IP.To4(); ip4 != nil {
				return ip4.String(), true, nil
			}
		}
	}
	return "", false, nil
}

// PrivateAddress is the generic fallback: the first non-loopback unicast
// IPv4 address of the host.
type PrivateAddress struct{}

func (PrivateAddress) Resolve(string) (string, bool, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", false, fmt.Errorf("failed to list host addresses: %w", err)
	}
	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok || ipNet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipNet.IP.To4(); ip4 != nil {
			return ip4.String(), true, nil
		}
	}
	return "", false, nil
}

// Well-known binding names.
const (
	BindingAccess  = "access"
	BindingCluster = "cluster"
)
