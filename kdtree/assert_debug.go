//go:build kddebug

package kdtree

const debugAssertions = true
