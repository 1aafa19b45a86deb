//go:build !linux

package engine

// Platforms without a usable sendfile path (or with incompatible semantics,
// notably macOS pre-11 and Windows) fall through to the kernel-assisted or
// buffered strategies at dispatch time.
const sendfileSupported = false

func newSendfileStrategy(sink Sink) (Strategy, bool) {
	return nil, false
}
