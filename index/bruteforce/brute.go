package bruteforce

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/viant/tracksim/index"
	"github.com/viant/vec/search"
)

const (
	magic         = "TSIX"
	formatVersion = 1
	headerSize    = 4 + 2 + 1 + 1 + 4 + 4
	trailerSize   = 8
)

// Index is a flat vector store answering kNN queries by scanning every
// stored vector. Vectors are kept in one contiguous slice in position order.
type Index struct {
	mu     sync.RWMutex
	dim    int
	metric index.Metric
	data   []float32
	n      int
}

// New creates an empty index with a fixed dimensionality and metric.
func New(dim int, metric index.Metric) (*Index, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("bruteforce: invalid dimension %d", dim)
	}
	if !metric.Valid() {
		return nil, fmt.Errorf("bruteforce: invalid metric %v", metric)
	}
	return &Index{dim: dim, metric: metric}, nil
}

// Append copies vector into the index and returns its position.
func (i *Index) Append(vector []float32) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dim == 0 {
		return 0, errors.New("bruteforce: index not initialized")
	}
	if len(vector) != i.dim {
		return 0, &index.DimensionError{Op: "append", Expected: i.dim, Actual: len(vector)}
	}
	i.data = append(i.data, vector...)
	pos := i.n
	i.n++
	return pos, nil
}

// Search returns the top-k hits for query. Scores are inner products for
// MetricInnerProduct and Euclidean distances for MetricL2.
func (i *Index) Search(query []float32, k int) ([]index.Hit, error) {
	if k <= 0 {
		return nil, index.ErrInvalidK
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	if len(query) != i.dim {
		return nil, &index.DimensionError{Op: "search", Expected: i.dim, Actual: len(query)}
	}
	for j, v := range query {
		if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("bruteforce: query component %d is not finite", j)
		}
	}
	hits := make([]index.Hit, i.n)
	for p := 0; p < i.n; p++ {
		vec := i.data[p*i.dim : (p+1)*i.dim]
		var s float64
		if i.metric == index.MetricL2 {
			s = float64(search.Float32s(query).EuclideanDistance(vec))
		} else {
			s = dot(query, vec)
		}
		hits[p] = index.Hit{Position: p, Score: s}
	}
	metric := i.metric
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return metric.Better(hits[a].Score, hits[b].Score)
		}
		return hits[a].Position < hits[b].Position
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Reconstruct returns a copy of the vector at position.
func (i *Index) Reconstruct(position int) ([]float32, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if position < 0 || position >= i.n {
		return nil, fmt.Errorf("bruteforce: position %d of %d: %w", position, i.n, index.ErrPositionOutOfRange)
	}
	out := make([]float32, i.dim)
	copy(out, i.data[position*i.dim:])
	return out, nil
}

// Len returns the number of stored vectors.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.n
}

// Dimension returns the fixed dimensionality.
func (i *Index) Dimension() int { return i.dim }

// Metric returns the configured metric.
func (i *Index) Metric() index.Metric { return i.metric }

// MarshalBinary stores: magic "TSIX", version(uint16), metric(uint8),
// reserved(uint8), dim(uint32), n(uint32), n*dim float32, then an xxhash64
// checksum of everything before it. All integers are little-endian.
func (i *Index) MarshalBinary() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]byte, 0, headerSize+4*len(i.data)+trailerSize)
	putU16 := func(v uint16) { out = binary.LittleEndian.AppendUint16(out, v) }
	putU32 := func(v uint32) { out = binary.LittleEndian.AppendUint32(out, v) }
	out = append(out, magic...)
	putU16(formatVersion)
	out = append(out, byte(i.metric), 0)
	putU32(uint32(i.dim))
	putU32(uint32(i.n))
	for _, v := range i.data {
		putU32(math.Float32bits(v))
	}
	out = binary.LittleEndian.AppendUint64(out, xxhash.Checksum64(out))
	return out, nil
}

// UnmarshalBinary restores the index from bytes, replacing its contents.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize+trailerSize {
		return fmt.Errorf("bruteforce: %d bytes: %w", len(data), index.ErrCorrupt)
	}
	if string(data[:4]) != magic {
		return fmt.Errorf("bruteforce: bad magic: %w", index.ErrCorrupt)
	}
	body := data[:len(data)-trailerSize]
	if sum := binary.LittleEndian.Uint64(data[len(body):]); sum != xxhash.Checksum64(body) {
		return fmt.Errorf("bruteforce: checksum mismatch: %w", index.ErrCorrupt)
	}
	off := 4
	getU16 := func() uint16 { v := binary.LittleEndian.Uint16(data[off:]); off += 2; return v }
	getU32 := func() uint32 { v := binary.LittleEndian.Uint32(data[off:]); off += 4; return v }
	if v := getU16(); v != formatVersion {
		return fmt.Errorf("bruteforce: unsupported format version %d: %w", v, index.ErrCorrupt)
	}
	metric := index.Metric(data[off])
	off += 2
	if !metric.Valid() {
		return fmt.Errorf("bruteforce: unknown metric %d: %w", metric, index.ErrCorrupt)
	}
	dim := int(getU32())
	n := int(getU32())
	if dim <= 0 {
		return fmt.Errorf("bruteforce: invalid dimension %d: %w", dim, index.ErrCorrupt)
	}
	if uint64(len(body)-off) != uint64(n)*uint64(dim)*4 {
		return fmt.Errorf("bruteforce: truncated vectors (n=%d dim=%d): %w", n, dim, index.ErrCorrupt)
	}
	vecs := make([]float32, n*dim)
	for j := range vecs {
		vecs[j] = math.Float32frombits(getU32())
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.dim, i.metric, i.n, i.data = dim, metric, n, vecs
	return nil
}

// Save writes the index to path, replacing any existing file only once the
// new content is fully written.
func (i *Index) Save(path string) error {
	data, err := i.MarshalBinary()
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

// Load reads an index from path. When expectedDim is positive the persisted
// dimensionality must match it.
func Load(path string, expectedDim int) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bruteforce: read %s: %w", path, err)
	}
	return Decode(data, expectedDim)
}

// Decode restores an index from MarshalBinary output, checking the
// dimensionality against expectedDim when it is positive.
func Decode(data []byte, expectedDim int) (*Index, error) {
	idx := &Index{}
	if err := idx.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	if expectedDim > 0 && idx.dim != expectedDim {
		return nil, &index.DimensionError{Op: "load", Expected: expectedDim, Actual: idx.dim}
	}
	return idx, nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

var _ index.Store = (*Index)(nil)
