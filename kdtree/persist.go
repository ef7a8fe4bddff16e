package kdtree

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/achilleasa/kdtrace/log"
	"github.com/achilleasa/kdtrace/types"
)

// File layout (all values little-endian):
//
//	magic "KDTR" | version uint32 | mesh triangle count int32 |
//	mesh bounds min [3]float32 | mesh bounds max [3]float32 |
//	node count int32 | nodes (header uint32, payload uint32) ... |
//	triangle index count int32 | triangle indices int32 ...
const (
	fileVersion uint32 = 1

	nodeSize = 8

	// Arrays are decoded in chunks of this many elements so that a
	// corrupt count cannot trigger a huge up-front allocation.
	readChunkLen = 1 << 16
)

var (
	fileMagic = [4]byte{'K', 'D', 'T', 'R'}
	byteOrder = binary.LittleEndian
)

var logger = log.New("kdtree")

type fileHeader struct {
	Magic         [4]byte
	Version       uint32
	TriangleCount int32
	BoundsMin     [3]float32
	BoundsMax     [3]float32
}

// Serialize the tree. The mesh itself is not written; only its triangle
// count and bounds are stored so that Load can detect a mismatched mesh.
// Trees whose bounds differ from the bounds of their mesh could never be
// loaded back and are rejected with ErrMeshMismatch.
func (tr *Tree) Save(w io.Writer) error {
	if meshBounds := tr.mesh.Bounds(); tr.meshBounds != meshBounds {
		return fmt.Errorf("%w: tree bounds %v-%v; mesh bounds %v-%v", ErrMeshMismatch, tr.meshBounds.Min, tr.meshBounds.Max, meshBounds.Min, meshBounds.Max)
	}

	hdr := fileHeader{
		Magic:         fileMagic,
		Version:       fileVersion,
		TriangleCount: tr.mesh.TriangleCount(),
		BoundsMin:     tr.meshBounds.Min,
		BoundsMax:     tr.meshBounds.Max,
	}
	if err := binary.Write(w, byteOrder, &hdr); err != nil {
		return err
	}

	if err := binary.Write(w, byteOrder, int32(len(tr.nodes))); err != nil {
		return err
	}
	buf := make([]byte, nodeSize*readChunkLen)
	for start := 0; start < len(tr.nodes); start += readChunkLen {
		end := min(start+readChunkLen, len(tr.nodes))
		out := buf[:0]
		for _, node := range tr.nodes[start:end] {
			out = byteOrder.AppendUint32(out, node.header)
			out = byteOrder.AppendUint32(out, node.payload)
		}
		if _, err := w.Write(out); err != nil {
			return err
		}
	}

	if err := binary.Write(w, byteOrder, int32(len(tr.triangleIndices))); err != nil {
		return err
	}
	return binary.Write(w, byteOrder, tr.triangleIndices)
}

// Serialize the tree to a file.
func (tr *Tree) SaveFile(filename string) error {
	logger.Noticef(`writing kd-tree to "%s"`, filename)
	start := time.Now()

	f, err := os.Create(filename)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(f)
	err = tr.Save(bw)
	if err == nil {
		err = bw.Flush()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("kdtree: could not write %s: %w", filename, err)
	}

	logger.Noticef("wrote kd-tree in %d ms", time.Since(start).Nanoseconds()/1e6)
	return nil
}

// Deserialize a tree and attach it to mesh. The stored triangle count and
// bounds must match the supplied mesh and the decoded arrays must pass
// Validate; otherwise an error is returned and no tree is created.
func Load(r io.Reader, mesh Mesh) (*Tree, error) {
	var hdr fileHeader
	if err := binary.Read(r, byteOrder, &hdr); err != nil {
		return nil, fmt.Errorf("kdtree: reading header: %w", eofAsUnexpected(err))
	}
	if hdr.Magic != fileMagic {
		return nil, ErrBadMagic
	}
	if hdr.Version != fileVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, hdr.Version)
	}

	bounds := types.BBox{Min: hdr.BoundsMin, Max: hdr.BoundsMax}
	if hdr.TriangleCount != mesh.TriangleCount() {
		return nil, fmt.Errorf("%w: file triangle count %d; mesh triangle count %d", ErrMeshMismatch, hdr.TriangleCount, mesh.TriangleCount())
	}
	if bounds != mesh.Bounds() {
		return nil, fmt.Errorf("%w: file bounds %v-%v; mesh bounds %v-%v", ErrMeshMismatch, bounds.Min, bounds.Max, mesh.Bounds().Min, mesh.Bounds().Max)
	}

	nodeCount, err := readCount(r, "node")
	if err != nil {
		return nil, err
	}
	if nodeCount == 0 || nodeCount > MaxNodesCount {
		return nil, fmt.Errorf("%w: invalid node count %d", ErrCorrupt, nodeCount)
	}
	nodes, err := readNodes(r, nodeCount)
	if err != nil {
		return nil, err
	}

	indexCount, err := readCount(r, "triangle index")
	if err != nil {
		return nil, err
	}
	triangleIndices, err := readIndices(r, indexCount)
	if err != nil {
		return nil, err
	}

	if err = Validate(nodes, triangleIndices, mesh.TriangleCount()); err != nil {
		return nil, err
	}

	return New(nodes, triangleIndices, mesh, bounds), nil
}

// Load a tree from a file.
func LoadFile(filename string, mesh Mesh) (*Tree, error) {
	logger.Noticef(`loading kd-tree from "%s"`, filename)
	start := time.Now()

	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tr, err := Load(bufio.NewReader(f), mesh)
	if err != nil {
		return nil, fmt.Errorf("kdtree: could not load %s: %w", filename, err)
	}

	logger.Noticef("loaded kd-tree with %d nodes in %d ms", len(tr.nodes), time.Since(start).Nanoseconds()/1e6)
	return tr, nil
}

func readCount(r io.Reader, what string) (int, error) {
	var count int32
	if err := binary.Read(r, byteOrder, &count); err != nil {
		return 0, fmt.Errorf("kdtree: reading %s count: %w", what, eofAsUnexpected(err))
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: negative %s count %d", ErrCorrupt, what, count)
	}
	return int(count), nil
}

func readNodes(r io.Reader, count int) ([]Node, error) {
	nodes := make([]Node, 0, min(count, readChunkLen))
	buf := make([]byte, nodeSize*readChunkLen)
	for len(nodes) < count {
		chunk := buf[:nodeSize*min(count-len(nodes), readChunkLen)]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("kdtree: reading nodes: %w", eofAsUnexpected(err))
		}
		for off := 0; off < len(chunk); off += nodeSize {
			nodes = append(nodes, Node{
				header:  byteOrder.Uint32(chunk[off:]),
				payload: byteOrder.Uint32(chunk[off+4:]),
			})
		}
	}
	return nodes, nil
}

func readIndices(r io.Reader, count int) ([]int32, error) {
	indices := make([]int32, 0, min(count, readChunkLen))
	buf := make([]byte, 4*readChunkLen)
	for len(indices) < count {
		chunk := buf[:4*min(count-len(indices), readChunkLen)]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, fmt.Errorf("kdtree: reading triangle indices: %w", eofAsUnexpected(err))
		}
		for off := 0; off < len(chunk); off += 4 {
			indices = append(indices, int32(byteOrder.Uint32(chunk[off:])))
		}
	}
	return indices, nil
}

// A clean EOF inside the payload still means the file was truncated.
func eofAsUnexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
