package enrich

import (
	"context"
	"net"

	"docintel/core"
)

// PrivateNetworkTag marks observables inside the RFC 1918 reserved blocks
const PrivateNetworkTag = "network:private"

var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	nets := make([]*net.IPNet, len(cidrs))
	for i, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets[i] = network
	}
	return nets
}

// PrivateIPProcessor tags IPv4 observables inside the reserved private
// blocks. Pure and synchronous; no external calls.
type PrivateIPProcessor struct{}

// NewPrivateIPProcessor creates the private-address tagging processor
func NewPrivateIPProcessor() *PrivateIPProcessor {
	return &PrivateIPProcessor{}
}

func (p *PrivateIPProcessor) Name() string { return "privateip" }

func (p *PrivateIPProcessor) Process(ctx context.Context, observables []*core.Observable) error {
	for _, obs := range observables {
		if obs.Type != core.ObservableTypeIPv4 {
			continue
		}
		ip := net.ParseIP(obs.Value)
		if ip == nil {
			continue
		}
		for _, block := range privateBlocks {
			if block.Contains(ip) {
				obs.AddTag(PrivateNetworkTag)
				break
			}
		}
	}
	return nil
}
