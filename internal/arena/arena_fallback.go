//go:build !linux && !darwin && !freebsd

package arena

import "errors"

var errNoMmap = errors.New("arena: mmap not supported")

// mapAnon always defers to the heap backing on this platform.
func mapAnon(int) ([]byte, error) {
	return nil, errNoMmap
}

func unmapAnon([]byte) error {
	return nil
}
