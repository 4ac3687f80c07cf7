package vectorindex

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"os"
	"path/filepath"
)

// On-disk layout, little-endian:
//
//	magic       [8]byte  "PGVIDX01"
//	dim         uint32
//	count       uint32
//	fpLen       uint16
//	fingerprint [fpLen]byte
//	vectors     [count*dim]float32
//	rowIDs      [count]uint32
//	crc         uint32   IEEE over everything above
const magic = "PGVIDX01"

const headerSize = len(magic) + 4 + 4 + 2

// ErrCorrupt is returned by Load when the file is truncated, has a bad
// checksum or was not written by Save.
var ErrCorrupt = errors.New("index file corrupt")

// Save writes the index to path atomically via a temporary file in the same
// directory.
func (ix *Index) Save(path string) error {
	if len(ix.fingerprint) > math.MaxUint16 {
		return fmt.Errorf("fingerprint too long: %d bytes", len(ix.fingerprint))
	}
	var buf bytes.Buffer
	buf.Grow(headerSize + len(ix.fingerprint) + 4*len(ix.vectors) + 4*len(ix.rowIDs) + 4)

	buf.WriteString(magic)
	le := binary.LittleEndian
	buf.Write(le.AppendUint32(nil, uint32(ix.dim)))
	buf.Write(le.AppendUint32(nil, uint32(len(ix.rowIDs))))
	buf.Write(le.AppendUint16(nil, uint16(len(ix.fingerprint))))
	buf.WriteString(ix.fingerprint)
	for _, f := range ix.vectors {
		buf.Write(le.AppendUint32(nil, math.Float32bits(f)))
	}
	for _, id := range ix.rowIDs {
		buf.Write(le.AppendUint32(nil, uint32(id)))
	}
	buf.Write(le.AppendUint32(nil, crc32.ChecksumIEEE(buf.Bytes())))

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating index directory: %w", err)
		}
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp index file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing index: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming index into place: %w", err)
	}
	return nil
}

// Load reads an index written by Save. A missing file returns an error
// satisfying errors.Is(err, os.ErrNotExist); any structural problem returns
// ErrCorrupt.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(data)
}

func decode(data []byte) (*Index, error) {
	if len(data) < headerSize+4 {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrCorrupt, len(data))
	}
	if string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:len(magic)])
	}
	body, trailer := data[:len(data)-4], data[len(data)-4:]
	le := binary.LittleEndian
	if got, want := crc32.ChecksumIEEE(body), le.Uint32(trailer); got != want {
		return nil, fmt.Errorf("%w: checksum %08x, want %08x", ErrCorrupt, got, want)
	}

	off := len(magic)
	dim := int(le.Uint32(body[off:]))
	count := int(le.Uint32(body[off+4:]))
	fpLen := int(le.Uint16(body[off+8:]))
	off = headerSize

	if dim == 0 || count == 0 {
		return nil, fmt.Errorf("%w: dim %d count %d", ErrCorrupt, dim, count)
	}
	want := uint64(headerSize) + uint64(fpLen) + 4*uint64(count)*uint64(dim) + 4*uint64(count)
	if uint64(len(body)) != want {
		return nil, fmt.Errorf("%w: size %d, want %d", ErrCorrupt, len(body), want)
	}

	fingerprint := string(body[off : off+fpLen])
	off += fpLen

	vectors := make([]float32, count*dim)
	for i := range vectors {
		vectors[i] = math.Float32frombits(le.Uint32(body[off:]))
		off += 4
	}
	rowIDs := make([]int, count)
	seen := make(map[int]struct{}, count)
	for i := range rowIDs {
		id := int(le.Uint32(body[off:]))
		off += 4
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate row id %d", ErrCorrupt, id)
		}
		seen[id] = struct{}{}
		rowIDs[i] = id
	}

	return &Index{dim: dim, vectors: vectors, rowIDs: rowIDs, fingerprint: fingerprint}, nil
}
