// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build linux

package firewall

import (
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"

	"grimm.is/connd/internal/errors"
)

// Commit pushes the in-memory mirror to the kernel in a single atomic
// transaction. This is the kernel-facing stand-in for spec.md §4.E's
// "atomic table replacement via a raw kernel socket": nftables' own
// transaction log already batches every AddTable/AddChain/AddRule call and
// applies them atomically on Flush, which is the property the original
// byte-offset replace exists to provide.
func (t *Table) Commit() error {
	conn, err := nftables.New()
	if err != nil {
		return errors.Wrap(err, errors.KindIO, "firewall: nftables connect failed")
	}

	family := nftables.TableFamilyIPv4
	if t.Proto == ProtoIPv6 {
		family = nftables.TableFamilyIPv6
	}

	nft := conn.AddTable(&nftables.Table{Name: t.Name, Family: family})

	chainsByName := make(map[string]*nftables.Chain, hookCount+len(t.Chains()))
	for _, h := range []Hook{HookInput, HookForward, HookOutput} {
		chainsByName[h.String()] = conn.AddChain(&nftables.Chain{
			Name:     h.String(),
			Table:    nft,
			Type:     nftables.ChainTypeFilter,
			Hooknum:  hookNum(h),
			Priority: nftables.ChainPriorityFilter,
			Policy:   policyPtr(t.policyFor(h)),
		})
	}
	for _, name := range t.Chains() {
		chainsByName[name] = conn.AddChain(&nftables.Chain{Name: name, Table: nft})
	}

	for _, e := range t.Entries {
		if e.Chain == "" || e.IsErrorTarget {
			continue // builtin policy heads and chain markers carry no rule body
		}
		chain, ok := chainsByName[e.Chain]
		if !ok {
			continue
		}
		exprs, err := e.toExprs(family)
		if err != nil {
			return err
		}
		conn.AddRule(&nftables.Rule{Table: nft, Chain: chain, Exprs: exprs})
	}

	if err := conn.Flush(); err != nil {
		return errors.Wrap(err, errors.KindIO, "firewall: nftables commit failed")
	}
	return nil
}

func hookNum(h Hook) *nftables.ChainHook {
	switch h {
	case HookInput:
		return nftables.ChainHookInput
	case HookForward:
		return nftables.ChainHookForward
	case HookOutput:
		return nftables.ChainHookOutput
	}
	return nftables.ChainHookInput
}

func (t *Table) policyFor(h Hook) nftables.ChainPolicy {
	for _, e := range t.Entries {
		if e.Builtin == int(h) && e.Chain == "" {
			if e.Target.Verdict == VerdictDrop {
				return nftables.ChainPolicyDrop
			}
			return nftables.ChainPolicyAccept
		}
	}
	return nftables.ChainPolicyAccept
}

func policyPtr(p nftables.ChainPolicy) *nftables.ChainPolicy { return &p }

// toExprs renders an Entry's source/destination match and verdict as an
// nftables expression list. connd only needs prefix matching and a handful
// of standard verdicts; anything beyond that (the kernel's full iptables
// extension match set) has no analog here, matching spec.md §1's scope.
func (e *Entry) toExprs(family nftables.TableFamily) ([]expr.Any, error) {
	var exprs []expr.Any

	offset := uint32(12)
	length := uint32(4)
	if family == nftables.TableFamilyIPv6 {
		offset, length = 8, 16
	}

	if e.Source != "" {
		ip, ipnet, err := net.ParseCIDR(e.Source)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindValidation, "firewall: invalid source %q", e.Source)
		}
		exprs = append(exprs,
			&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: offset, Len: length},
			&expr.Bitwise{SourceRegister: 1, DestRegister: 1, Len: length, Mask: ipnet.Mask, Xor: make([]byte, length)},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: maskedIP(ip, ipnet.Mask)},
		)
	}
	if e.Dest != "" {
		ip, ipnet, err := net.ParseCIDR(e.Dest)
		if err != nil {
			return nil, errors.Wrapf(err, errors.KindValidation, "firewall: invalid destination %q", e.Dest)
		}
		destOffset := offset + length
		exprs = append(exprs,
			&expr.Payload{DestRegister: 1, Base: expr.PayloadBaseNetworkHeader, Offset: destOffset, Len: length},
			&expr.Bitwise{SourceRegister: 1, DestRegister: 1, Len: length, Mask: ipnet.Mask, Xor: make([]byte, length)},
			&expr.Cmp{Op: expr.CmpOpEq, Register: 1, Data: maskedIP(ip, ipnet.Mask)},
		)
	}

	if e.Target.Name != "" {
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictJump, Chain: e.Target.Name})
		return exprs, nil
	}

	switch e.Target.Verdict {
	case VerdictDrop:
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictDrop})
	case VerdictAccept:
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictAccept})
	case VerdictReturn:
		exprs = append(exprs, &expr.Verdict{Kind: expr.VerdictReturn})
	case VerdictQueue:
		exprs = append(exprs, &expr.Queue{})
	}
	return exprs, nil
}

func maskedIP(ip net.IP, mask net.IPMask) []byte {
	if v4 := ip.To4(); v4 != nil && len(mask) == net.IPv4len {
		out := make([]byte, 4)
		for i := range out {
			out[i] = v4[i] & mask[i]
		}
		return out
	}
	v6 := ip.To16()
	out := make([]byte, 16)
	for i := range out {
		out[i] = v6[i] & mask[i]
	}
	return out
}
