// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package routing

import (
	"os"
	"strings"

	"grimm.is/connd/internal/errors"
)

// readSysctl and writeSysctl are direct /proc/sys file accessors. The
// teacher's internal/network/sysctl.go routes the same two operations
// through a SystemController interface for test substitution, but that
// interface's implementation was never part of the retrieved pack; since
// this package already takes a fake-filesystem-free approach to testing
// (see rpfilter_test.go), the indirection isn't reconstructed and these
// operate on the path directly.
func readSysctl(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, errors.KindIO, "routing: read %s failed", path)
	}
	return strings.TrimSpace(string(data)), nil
}

func writeSysctl(path, value string) error {
	if err := os.WriteFile(path, []byte(value), 0644); err != nil {
		return errors.Wrapf(err, errors.KindIO, "routing: write %s failed", path)
	}
	return nil
}
