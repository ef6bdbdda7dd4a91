// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

//go:build !linux

package firewall

import "grimm.is/connd/internal/errors"

// Commit is unimplemented outside Linux; nftables is a Linux kernel
// facility, same constraint the teacher's own netlink_linux.go files carry.
func (t *Table) Commit() error {
	return errors.Errorf(errors.KindUnavailable, "firewall: commit requires Linux")
}
