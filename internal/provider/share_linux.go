//go:build linux

package provider

import "golang.org/x/sys/unix"

// statfsAccessible reports whether path resolves through a live mount.
// A stale/unmounted network share typically fails Statfs with ESTALE or
// ENOTCONN rather than returning a result, which this surfaces as "not
// accessible" rather than letting the caller see a slow hang.
func statfsAccessible(path string) bool {
	var stat unix.Statfs_t
	return unix.Statfs(path, &stat) == nil
}
