//go:build !linux

package crypto

// LockMemory is a no-op on platforms without mlockall.
func LockMemory() error { return nil }
