package reader

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"path"
	"strings"
	"time"

	"github.com/achilleasa/kdtrace/asset"
	"github.com/achilleasa/kdtrace/asset/mesh"
	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
)

const (
	stlHeaderSize    = 80
	stlTriangleSize  = 50
	stlVertexPerFace = 3
)

// Reads binary and ascii STL files. STL stores unshared vertices for every
// facet; the reader welds bitwise-identical positions into a single vertex.
type stlReader struct {
	logger log.Logger

	vertexList  []types.Vec3
	vertexIndex map[types.Vec3]int32
	triangles   [][3]int32
}

// Create a new STL mesh reader.
func newStlReader() *stlReader {
	return &stlReader{
		logger:      log.New("stl reader"),
		vertexList:  make([]types.Vec3, 0),
		vertexIndex: make(map[types.Vec3]int32),
		triangles:   make([][3]int32, 0),
	}
}

// Read mesh definition.
func (r *stlReader) Read(res *asset.Resource) (*mesh.TriangleMesh, error) {
	r.logger.Noticef(`parsing mesh from "%s"`, res.Path())
	start := time.Now()

	// The format can only be detected by checking whether the file size
	// matches the triangle count stored in the binary header so we need
	// the entire payload in memory.
	data, err := io.ReadAll(res)
	if err != nil {
		return nil, err
	}

	if isBinaryStl(data) {
		err = r.parseBinary(data)
	} else {
		err = r.parseASCII(data)
	}
	if err != nil {
		return nil, fmt.Errorf("stl reader: %s: %w", res.Path(), err)
	}

	name := strings.TrimSuffix(path.Base(res.Path()), path.Ext(res.Path()))
	m, err := mesh.New(name, r.vertexList, r.triangles)
	if err != nil {
		return nil, err
	}

	r.logger.Noticef(
		"parsed mesh in %d ms; vertices: %d, triangles: %d",
		time.Since(start).Nanoseconds()/1e6, m.VertexCount(), m.TriangleCount(),
	)
	return m, nil
}

func isBinaryStl(data []byte) bool {
	if len(data) < stlHeaderSize+4 {
		return false
	}
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	return uint64(len(data)) == stlHeaderSize+4+uint64(count)*stlTriangleSize
}

func (r *stlReader) parseBinary(data []byte) error {
	count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
	if count > mesh.MaxTriangles {
		return mesh.ErrTooManyTriangles
	}

	offset := stlHeaderSize + 4
	for tri := uint32(0); tri < count; tri++ {
		// Skip the stored facet normal; it is recomputed from the vertices
		rec := data[offset+12 : offset+stlTriangleSize]

		var face [stlVertexPerFace]types.Vec3
		for v := 0; v < stlVertexPerFace; v++ {
			for c := 0; c < 3; c++ {
				bits := binary.LittleEndian.Uint32(rec[(v*3+c)*4:])
				face[v][c] = math.Float32frombits(bits)
			}
		}
		r.addFace(face)
		offset += stlTriangleSize
	}
	return nil
}

func (r *stlReader) parseASCII(data []byte) error {
	var lineNum int = 0
	var face [stlVertexPerFace]types.Vec3
	var faceVertices int
	var sawSolid bool

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lineNum++
		lineTokens := strings.Fields(scanner.Text())
		if len(lineTokens) == 0 {
			continue
		}

		switch lineTokens[0] {
		case "solid":
			sawSolid = true
		case "facet":
			faceVertices = 0
		case "vertex":
			if faceVertices == stlVertexPerFace {
				return fmt.Errorf("line %d: facet defines more than %d vertices", lineNum, stlVertexPerFace)
			}
			v, err := parseVec3(lineTokens)
			if err != nil {
				return fmt.Errorf("line %d: %s", lineNum, err.Error())
			}
			face[faceVertices] = v
			faceVertices++
		case "endfacet":
			if faceVertices != stlVertexPerFace {
				return fmt.Errorf("line %d: expected facet to define %d vertices; got %d", lineNum, stlVertexPerFace, faceVertices)
			}
			r.addFace(face)
		}
	}

	if err := scanner.Err(); err != nil {
		return err
	}
	if !sawSolid {
		return fmt.Errorf("not a valid ascii or binary STL file")
	}
	return nil
}

func (r *stlReader) addFace(face [stlVertexPerFace]types.Vec3) {
	var tri [3]int32
	for i, v := range face {
		index, exists := r.vertexIndex[v]
		if !exists {
			index = int32(len(r.vertexList))
			r.vertexList = append(r.vertexList, v)
			r.vertexIndex[v] = index
		}
		tri[i] = index
	}
	r.triangles = append(r.triangles, tri)
}
