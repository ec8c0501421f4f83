package store

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/coder/hnsw"

	"github.com/cogmem/cogmem/internal/errs"
)

// snapshotMagic and snapshotVersion fix the wire format of spec.md §6: a
// 16-byte magic, uint32 version, uint32 dimension, uint32 entry_count, the
// id/vector entries, a length-prefixed graph-layer suffix, and a trailing
// SHA-256 of everything preceding it.
var snapshotMagic = [16]byte{'C', 'X', 'H', 'N', 'S', 'W', 0, 0}

const snapshotVersion uint32 = 1

// Save writes a byte-stable snapshot of idx to path using an atomic
// temp-file-then-rename, matching the teacher's Save() pattern in
// internal/store/hnsw.go. Before writing, the live entries are replayed
// into a freshly keyed graph (keys 0..n-1 in id-sorted order) so the
// persisted key space has no gaps from lazily-orphaned deletions — this
// compaction is why on-disk snapshots never grow unbounded even though the
// in-memory index favors lazy deletion for its own write path.
func (idx *HNSWIndex) Save(path string) error {
	unlock, err := newSnapshotLock(path).lockExclusive()
	if err != nil {
		return err
	}
	defer unlock()

	idx.mu.RLock()
	ids := make([]string, 0, len(idx.idToKey))
	for id := range idx.idToKey {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	vectors := make([][]float32, len(ids))
	for i, id := range ids {
		vectors[i] = idx.vectors[idx.idToKey[id]]
	}
	dimension := idx.dimension
	idx.mu.RUnlock()

	compact := newConfiguredGraph()
	for i, vec := range vectors {
		compact.Add(hnsw.MakeNode(uint64(i), vec))
	}

	var graphBuf bytes.Buffer
	if err := compact.Export(&graphBuf); err != nil {
		return fmt.Errorf("export compacted graph: %w", err)
	}

	var buf bytes.Buffer
	buf.Write(snapshotMagic[:])
	writeUint32(&buf, snapshotVersion)
	writeUint32(&buf, uint32(dimension))
	writeUint32(&buf, uint32(len(ids)))
	for i, id := range ids {
		writeUint32(&buf, uint32(len(id)))
		buf.WriteString(id)
		writeVector(&buf, vectors[i])
	}
	writeUint64(&buf, uint64(graphBuf.Len()))
	buf.Write(graphBuf.Bytes())

	sum := sha256.Sum256(buf.Bytes())
	buf.Write(sum[:])

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}

	tmpPath := fmt.Sprintf("%s.tmp-%s", path, randomSuffix())
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

// Load replaces idx's contents with the snapshot at path. A dimension or
// checksum mismatch returns IncompatibleIndex; callers rebuild from source
// records rather than trusting a partially-read snapshot.
func (idx *HNSWIndex) Load(path string) error {
	unlock, err := newSnapshotLock(path).lockShared()
	if err != nil {
		return err
	}
	defer unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	if len(data) < len(snapshotMagic)+4+4+4+32 {
		return errs.IncompatibleIndex("snapshot too short")
	}

	body, trailer := data[:len(data)-32], data[len(data)-32:]
	sum := sha256.Sum256(body)
	if !bytes.Equal(sum[:], trailer) {
		return errs.IncompatibleIndex("checksum mismatch")
	}

	r := bytes.NewReader(body)
	var magic [16]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return errs.IncompatibleIndex("truncated magic")
	}
	if magic != snapshotMagic {
		return errs.IncompatibleIndex("bad magic")
	}

	version, err := readUint32(r)
	if err != nil || version != snapshotVersion {
		return errs.IncompatibleIndex(fmt.Sprintf("unsupported version %d", version))
	}

	dimension, err := readUint32(r)
	if err != nil {
		return errs.IncompatibleIndex("truncated dimension")
	}
	if int(dimension) != idx.dimension {
		return errs.IncompatibleIndex(fmt.Sprintf("dimension mismatch: index wants %d, snapshot has %d", idx.dimension, dimension))
	}

	entryCount, err := readUint32(r)
	if err != nil {
		return errs.IncompatibleIndex("truncated entry count")
	}

	ids := make([]string, entryCount)
	vectors := make([][]float32, entryCount)
	for i := range ids {
		idLen, err := readUint32(r)
		if err != nil {
			return errs.IncompatibleIndex("truncated entry id length")
		}
		idBytes := make([]byte, idLen)
		if _, err := io.ReadFull(r, idBytes); err != nil {
			return errs.IncompatibleIndex("truncated entry id")
		}
		vec, err := readVector(r, int(dimension))
		if err != nil {
			return errs.IncompatibleIndex("truncated entry vector")
		}
		ids[i] = string(idBytes)
		vectors[i] = vec
	}

	graphLen, err := readUint64(r)
	if err != nil {
		return errs.IncompatibleIndex("truncated graph length")
	}
	graphBytes := make([]byte, graphLen)
	if _, err := io.ReadFull(r, graphBytes); err != nil {
		return errs.IncompatibleIndex("truncated graph bytes")
	}

	graph := newConfiguredGraph()
	if err := graph.Import(bufio.NewReader(bytes.NewReader(graphBytes))); err != nil {
		return errs.IncompatibleIndex(fmt.Sprintf("import graph: %v", err))
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.graph = graph
	idx.idToKey = make(map[string]uint64, len(ids))
	idx.keyToID = make(map[uint64]string, len(ids))
	idx.vectors = make(map[uint64][]float32, len(ids))
	for i, id := range ids {
		key := uint64(i)
		idx.idToKey[id] = key
		idx.keyToID[key] = id
		idx.vectors[key] = vectors[i]
	}
	idx.nextKey = uint64(len(ids))
	idx.closed = false
	return nil
}

func randomSuffix() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("%x", b)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeVector(buf *bytes.Buffer, vec []float32) {
	for _, f := range vec {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], math.Float32bits(f))
		buf.Write(b[:])
	}
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func readVector(r *bytes.Reader, dimension int) ([]float32, error) {
	vec := make([]float32, dimension)
	for i := range vec {
		bits, err := readUint32(r)
		if err != nil {
			return nil, err
		}
		vec[i] = math.Float32frombits(bits)
	}
	return vec, nil
}
