//go:build linux || darwin || freebsd

package arena

import (
	"errors"

	"golang.org/x/sys/unix"
)

var errNoMmap = errors.New("arena: mmap not supported")

// mapAnon maps size bytes of anonymous private memory. The kernel hands
// out zero-filled pages.
func mapAnon(size int) ([]byte, error) {
	return unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func unmapAnon(data []byte) error {
	err := unix.Munmap(data)
	if errors.Is(err, unix.EINVAL) {
		// Treat double-unmap as no-op for callers.
		return nil
	}
	return err
}
