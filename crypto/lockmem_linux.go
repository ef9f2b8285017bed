//go:build linux

package crypto

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// LockMemory pins the process address space so software key material
// cannot be paged to swap. Call once at startup, before keys are
// generated; requires CAP_IPC_LOCK or a sufficient RLIMIT_MEMLOCK.
func LockMemory() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return fmt.Errorf("crypto: mlockall: %w", err)
	}
	return nil
}
