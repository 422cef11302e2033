// Package build runs the documentation build: discover the source tree,
// detect what changed since the previous manifest, render the affected
// documents with bounded parallelism and write the artifacts, manifest last.
//
// All execution paths (CLI build, watch, scheduled rebuilds) go through
// Builder.Run, which serializes concurrent calls.
package build
