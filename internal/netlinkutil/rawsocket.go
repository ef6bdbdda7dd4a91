// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package netlinkutil

import (
	"net"

	"github.com/mdlayher/packet"

	"grimm.is/connd/internal/errors"
)

// CarrierProbe listens on a raw AF_PACKET socket for any inbound frame on an
// interface, a carrier signal for virtual interfaces (certain tunnel and
// bridge devices) that never flip IFF_LOWER_UP on their own. No package in
// this tree calls it; ipconfig does not consume it.
type CarrierProbe struct {
	conn *packet.Conn
}

// NewCarrierProbe opens a raw socket bound to ifaceName listening for all
// ethertypes.
func NewCarrierProbe(ifaceName string) (*CarrierProbe, error) {
	ifi, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindNotFound, "netlinkutil: interface %s not found", ifaceName)
	}
	conn, err := packet.Listen(ifi, packet.Raw, 0x0003 /* ETH_P_ALL */, nil)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindIO, "netlinkutil: raw socket on %s failed", ifaceName)
	}
	return &CarrierProbe{conn: conn}, nil
}

// WaitForFrame blocks until at least one frame is observed, returning its
// length. Callers run this on its own goroutine and Post the result back to
// the event loop.
func (p *CarrierProbe) WaitForFrame(buf []byte) (int, error) {
	n, _, err := p.conn.ReadFrom(buf)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindIO, "netlinkutil: raw read failed")
	}
	return n, nil
}

// Close releases the raw socket.
func (p *CarrierProbe) Close() error {
	return p.conn.Close()
}
