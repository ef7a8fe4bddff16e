package kdtree

import "errors"

var (
	ErrBadMagic           = errors.New("kdtree: not a kd-tree file")
	ErrUnsupportedVersion = errors.New("kdtree: unsupported file version")
	ErrMeshMismatch       = errors.New("kdtree: tree was built for a different mesh")
	ErrCorrupt            = errors.New("kdtree: corrupt tree data")
)
