// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package firewall

import (
	"github.com/google/nftables"
	"github.com/google/nftables/expr"

	"grimm.is/connd/internal/errors"
)

// Commit pushes the nat table's masquerade rule set in one transaction,
// the same pattern Table.Commit uses for the filter table.
func (t *NATTable) Commit() error {
	conn, err := nftables.New()
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "firewall: nftables connect failed")
	}

	family := nftables.TableFamilyIPv4
	if t.Proto == ProtoIPv6 {
		family = nftables.TableFamilyIPv6
	}

	nft := conn.AddTable(&nftables.Table{Name: t.Name, Family: family})
	prio := nftables.ChainPriorityNATSource
	chain := conn.AddChain(&nftables.Chain{
		Name:     "POSTROUTING",
		Table:    nft,
		Type:     nftables.ChainTypeNAT,
		Hooknum:  nftables.ChainHookPostrouting,
		Priority: prio,
	})

	conn.FlushChain(chain)
	for _, r := range t.Rules {
		conn.AddRule(&nftables.Rule{
			Table: nft,
			Chain: chain,
			Exprs: []expr.Any{
				&expr.Meta{Key: expr.MetaKeyOIFNAME, Register: 1},
				&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: ifnameBytes(r.OutInterface)},
				&expr.Masq{},
			},
		})
	}

	if err := conn.Flush(); err != nil {
		return errors.Wrap(err, errors.KindIO, "firewall: nat commit failed")
	}
	return nil
}

// ifnameBytes encodes an interface name the way expr.Meta's OIFNAME key
// compares it: null-padded to IFNAMSIZ (16 bytes).
func ifnameBytes(name string) []byte {
	b := make([]byte, 16)
	copy(b, name)
	return b
}
