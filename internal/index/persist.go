package index

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Vector segment layout: a 16-byte header of little-endian uint32 fields
// (magic, format version, dimension, entry count) followed by count*dimension
// IEEE 754 float32 values.
const (
	segmentMagic   uint32 = 0x78647631 // "xdv1"
	segmentVersion uint32 = 1
	headerSize            = 16
)

// persist writes both artifacts write-through, vectors before metadata so the
// metadata sequence is never ahead of the vector data it describes. Each
// artifact goes through a temp file + rename so readers of the directory
// never observe a torn file. Caller holds the write lock.
func (x *Index) persist() error {
	if err := writeAtomic(filepath.Join(x.dir, vectorsFile), encodeVectors(x.vectors, x.dim)); err != nil {
		return fmt.Errorf("write vector segment: %w", err)
	}

	meta, err := json.Marshal(x.entries)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := writeAtomic(filepath.Join(x.dir, metadataFile), meta); err != nil {
		return fmt.Errorf("write metadata segment: %w", err)
	}
	return nil
}

// load restores persisted state. Any corruption resets to an empty index;
// a count mismatch between the two artifacts is reconciled by truncating
// both to the shorter, consistent prefix. Called only from New.
func (x *Index) load() {
	vecPath := filepath.Join(x.dir, vectorsFile)
	metaPath := filepath.Join(x.dir, metadataFile)

	vecData, vecErr := os.ReadFile(vecPath)
	metaData, metaErr := os.ReadFile(metaPath)
	if os.IsNotExist(vecErr) && os.IsNotExist(metaErr) {
		x.logger.Info("No persisted index found, starting empty", zap.String("dir", x.dir))
		return
	}
	if vecErr != nil || metaErr != nil {
		x.logger.Warn("Failed to read index artifacts, starting empty",
			zap.NamedError("vectors", vecErr), zap.NamedError("metadata", metaErr))
		return
	}

	vectors, dim, err := decodeVectors(vecData)
	if err != nil {
		x.logger.Warn("Corrupt vector segment, starting empty", zap.Error(err))
		return
	}

	var entries []entryRecord
	if err := json.Unmarshal(metaData, &entries); err != nil {
		x.logger.Warn("Corrupt metadata segment, starting empty", zap.Error(err))
		return
	}

	if len(vectors) != len(entries) {
		n := min(len(vectors), len(entries))
		x.logger.Warn("Index artifacts disagree on entry count, truncating to consistent prefix",
			zap.Int("vectors", len(vectors)), zap.Int("metadata", len(entries)), zap.Int("kept", n))
		vectors = vectors[:n]
		entries = entries[:n]
	}
	if len(vectors) == 0 {
		return
	}

	x.vectors = vectors
	x.entries = entries
	x.dim = dim
	x.logger.Info("Restored persisted index",
		zap.Int("entries", len(entries)), zap.Int("dimension", dim))
}

func encodeVectors(vectors [][]float32, dim int) []byte {
	buf := make([]byte, headerSize+len(vectors)*dim*4)
	binary.LittleEndian.PutUint32(buf[0:], segmentMagic)
	binary.LittleEndian.PutUint32(buf[4:], segmentVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(dim))
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(vectors)))

	off := headerSize
	for _, v := range vectors {
		for _, f := range v {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
			off += 4
		}
	}
	return buf
}

func decodeVectors(data []byte) ([][]float32, int, error) {
	if len(data) < headerSize {
		return nil, 0, fmt.Errorf("vector segment too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:]); magic != segmentMagic {
		return nil, 0, fmt.Errorf("bad vector segment magic: %#x", magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:]); v != segmentVersion {
		return nil, 0, fmt.Errorf("unsupported vector segment version: %d", v)
	}

	dim := int(binary.LittleEndian.Uint32(data[8:]))
	count := int(binary.LittleEndian.Uint32(data[12:]))
	if dim <= 0 && count > 0 {
		return nil, 0, fmt.Errorf("invalid vector dimension: %d", dim)
	}
	if want := headerSize + count*dim*4; len(data) != want {
		return nil, 0, fmt.Errorf("vector segment size mismatch: have %d bytes, want %d", len(data), want)
	}

	vectors := make([][]float32, count)
	off := headerSize
	for i := range vectors {
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		vectors[i] = v
	}
	return vectors, dim, nil
}

// writeAtomic writes data to a temp file in the same directory and renames it
// over the target, so a crash mid-write leaves the previous version intact.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
