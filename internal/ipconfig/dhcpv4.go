// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipconfig

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"
	"github.com/insomniacslk/dhcp/dhcpv4/nclient4"

	"grimm.is/connd/internal/errors"
)

// DHCPv4Provider is the MethodDHCP Provider for Family v4, backed by
// insomniacslk/dhcp's client4. It runs the DORA exchange on its own
// goroutine and hands the result back through the callbacks Config.Enable
// wires up.
type DHCPv4Provider struct {
	Timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start begins a DHCPv4 lease acquisition on ifaceName.
func (p *DHCPv4Provider) Start(ifaceName string, bound func(Address), failed func(error)) error {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	client, err := nclient4.New(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "ipconfig: dhcpv4 client on %s failed", ifaceName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer client.Close()
		defer cancel()

		_, ack, err := client.Request(ctx)
		if err != nil {
			failed(errors.Wrap(err, errors.KindTimeout, "ipconfig: dhcpv4 request failed"))
			return
		}
		bound(addressFromAck(ack))
	}()
	return nil
}

// Stop cancels any in-flight acquisition.
func (p *DHCPv4Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func addressFromAck(ack *dhcpv4.DHCPv4) Address {
	ones, _ := ack.SubnetMask().Size()
	addr := Address{
		Local:     ack.YourIPAddr,
		PrefixLen: ones,
		Gateway:   firstOr(ack.Router(), nil),
		Broadcast: ack.BroadcastAddress(),
	}
	for _, ns := range ack.DNS() {
		addr.Nameservers = append(addr.Nameservers, ns)
	}
	if dn := ack.DomainName(); dn != "" {
		addr.Domains = []string{dn}
	}
	return addr
}

func firstOr(ips []net.IP, fallback net.IP) net.IP {
	if len(ips) > 0 {
		return ips[0]
	}
	return fallback
}
