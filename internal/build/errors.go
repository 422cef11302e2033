package build

import "errors"

// Sentinel errors classifying pipeline stage failures. They are wrapped with
// context at the call site.
var (
	ErrDiscovery = errors.New("docbundle: discovery error")
	ErrRender    = errors.New("docbundle: render error")
	ErrWrite     = errors.New("docbundle: write error")
)
