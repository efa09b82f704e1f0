// Package platform is the registration point for concrete capture and
// input backends. The engine itself stays platform-independent; a
// backend registers itself from a build-tagged init function.
package platform

import (
	"errors"

	"github.com/anime-shed/grid-scanner-go/internal/scanner"
)

// Backend bundles the platform ports for one windowing system.
type Backend struct {
	Name     string
	Capturer scanner.Capturer
	Input    scanner.InputDriver
}

var registered []Backend

// Register adds a backend. Called from init in build-tagged files.
func Register(b Backend) {
	registered = append(registered, b)
}

// Default returns the first registered backend. Binaries built without
// any platform backend get a clear startup error instead of a nil
// dereference mid-scan.
func Default() (Backend, error) {
	if len(registered) == 0 {
		return Backend{}, errors.New("no platform backend linked into this binary")
	}
	return registered[0], nil
}
