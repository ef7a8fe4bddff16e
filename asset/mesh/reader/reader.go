package reader

import (
	"fmt"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/asset/mesh"
)

// The Reader interface is implemented by all mesh readers.
type Reader interface {
	// Read mesh definition from a resource.
	Read(*asset.Resource) (*mesh.TriangleMesh, error)
}

// Read mesh from a local file or http(s) URL. The reader is selected based
// on the file extension.
func ReadMesh(filename string) (*mesh.TriangleMesh, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	return ReadResource(res)
}

// Read mesh from an already opened resource.
func ReadResource(res *asset.Resource) (*mesh.TriangleMesh, error) {
	var reader Reader
	switch res.Ext() {
	case ".obj":
		reader = newWavefrontReader()
	case ".stl":
		reader = newStlReader()
	default:
		return nil, fmt.Errorf("readMesh: unsupported file format %q", res.Ext())
	}
	return reader.Read(res)
}
