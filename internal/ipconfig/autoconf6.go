// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipconfig

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/mdlayher/ndp"

	"grimm.is/connd/internal/errors"
)

// allRouters is ff02::2, the all-routers link-local multicast address
// router solicitations are addressed to.
var allRouters = netip.MustParseAddr("ff02::2")

// Autoconf6Provider is the MethodDHCP Provider for Family v6 using
// stateless address autoconfiguration: it solicits a router advertisement
// via mdlayher/ndp and derives an address from the first advertised prefix
// using the interface's hardware address (EUI-64), ConnMan's "auto" method
// for IPv6.
type Autoconf6Provider struct {
	Timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Start solicits router advertisements on ifaceName and derives an address
// from the first usable prefix.
func (p *Autoconf6Provider) Start(ifaceName string, bound func(Address), failed func(error)) error {
	timeout := p.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return errors.Wrapf(err, errors.KindNotFound, "ipconfig: interface %s not found", ifaceName)
	}

	conn, _, err := ndp.Listen(ifi, ndp.LinkLocal)
	if err != nil {
		return errors.Wrapf(err, errors.KindIO, "ipconfig: ndp listen on %s failed", ifaceName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		defer conn.Close()
		defer cancel()

		if err := conn.WriteTo(&ndp.RouterSolicitation{}, nil, allRouters); err != nil {
			failed(errors.Wrap(err, errors.KindIO, "ipconfig: router solicitation failed"))
			return
		}

		for {
			if ctx.Err() != nil {
				failed(errors.Errorf(errors.KindTimeout, "ipconfig: no router advertisement received"))
				return
			}
			msg, _, _, err := conn.ReadFrom()
			if err != nil {
				failed(errors.Wrap(err, errors.KindIO, "ipconfig: ndp read failed"))
				return
			}
			ra, ok := msg.(*ndp.RouterAdvertisement)
			if !ok {
				continue
			}
			addr, ok := addressFromRA(ra, ifi.HardwareAddr)
			if !ok {
				continue
			}
			bound(addr)
			return
		}
	}()
	return nil
}

// Stop cancels any in-flight solicitation.
func (p *Autoconf6Provider) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func addressFromRA(ra *ndp.RouterAdvertisement, mac net.HardwareAddr) (Address, bool) {
	for _, o := range ra.Options {
		pi, ok := o.(*ndp.PrefixInformation)
		if !ok || !pi.OnLink || !pi.AutonomousAddressConfiguration {
			continue
		}
		ip := eui64Address(pi.Prefix, mac)
		return Address{
			Local:     ip,
			PrefixLen: int(pi.PrefixLength),
			Gateway:   net.IP(nil),
		}, true
	}
	return Address{}, false
}

// eui64Address derives a SLAAC address from a 64-bit prefix and a MAC
// address per RFC 4291 appendix A: invert the universal/local bit and
// splice in 0xfffe between the OUI and NIC halves.
func eui64Address(prefix net.IP, mac net.HardwareAddr) net.IP {
	p := prefix.To16()
	if p == nil || len(mac) != 6 {
		return prefix
	}
	iid := []byte{mac[0] ^ 0x02, mac[1], mac[2], 0xff, 0xfe, mac[3], mac[4], mac[5]}
	out := make(net.IP, 16)
	copy(out[:8], p[:8])
	copy(out[8:], iid)
	return out
}
