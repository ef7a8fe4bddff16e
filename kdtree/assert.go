//go:build !kddebug

package kdtree

// Wrong-variant node accessors and traversal bounds are only checked in
// builds using the kddebug tag.
const debugAssertions = false
