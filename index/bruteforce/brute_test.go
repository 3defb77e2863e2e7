package bruteforce

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracksim/index"
)

func newFilled(t *testing.T, metric index.Metric, vecs ...[]float32) *Index {
	t.Helper()
	idx, err := New(len(vecs[0]), metric)
	require.NoError(t, err)
	for i, v := range vecs {
		pos, err := idx.Append(v)
		require.NoError(t, err)
		require.Equal(t, i, pos)
	}
	return idx
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(0, index.MetricL2)
	assert.Error(t, err)
	_, err = New(4, index.Metric(0))
	assert.Error(t, err)
}

func TestAppend_DimensionMismatch(t *testing.T) {
	idx, err := New(3, index.MetricInnerProduct)
	require.NoError(t, err)
	_, err = idx.Append([]float32{1, 2})
	var de *index.DimensionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 3, de.Expected)
	assert.Equal(t, 2, de.Actual)
	assert.Equal(t, 0, idx.Len())
}

func TestSearch_InnerProduct(t *testing.T) {
	idx := newFilled(t, index.MetricInnerProduct,
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{0.7071068, 0.7071068},
	)
	hits, err := idx.Search([]float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []int{0, 2, 1}, []int{hits[0].Position, hits[1].Position, hits[2].Position})
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.InDelta(t, 0.7071068, hits[1].Score, 1e-6)
	assert.InDelta(t, 0.0, hits[2].Score, 1e-6)
}

func TestSearch_L2(t *testing.T) {
	idx := newFilled(t, index.MetricL2,
		[]float32{0, 0},
		[]float32{3, 4},
		[]float32{1, 0},
	)
	hits, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, 0, hits[0].Position)
	assert.InDelta(t, 0.0, hits[0].Score, 1e-9)
	assert.Equal(t, 2, hits[1].Position)
	assert.InDelta(t, 1.0, hits[1].Score, 1e-9)
}

func TestSearch_TiesByPosition(t *testing.T) {
	idx := newFilled(t, index.MetricInnerProduct,
		[]float32{0, 1},
		[]float32{1, 0},
		[]float32{0, 1},
		[]float32{1, 0},
	)
	hits, err := idx.Search([]float32{1, 0}, 4)
	require.NoError(t, err)
	got := make([]int, len(hits))
	for i, h := range hits {
		got[i] = h.Position
	}
	assert.Equal(t, []int{1, 3, 0, 2}, got)
}

func TestSearch_Errors(t *testing.T) {
	idx := newFilled(t, index.MetricInnerProduct, []float32{1, 0})
	_, err := idx.Search([]float32{1, 0}, 0)
	assert.ErrorIs(t, err, index.ErrInvalidK)
	_, err = idx.Search([]float32{1, 0, 0}, 1)
	assert.True(t, index.IsDimensionError(err))

	hits, err := idx.Search([]float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch_Empty(t *testing.T) {
	idx, err := New(2, index.MetricInnerProduct)
	require.NoError(t, err)
	hits, err := idx.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestReconstruct(t *testing.T) {
	idx := newFilled(t, index.MetricL2, []float32{1, 2, 3}, []float32{4, 5, 6})
	v, err := idx.Reconstruct(1)
	require.NoError(t, err)
	assert.Equal(t, []float32{4, 5, 6}, v)

	v[0] = 100
	again, err := idx.Reconstruct(1)
	require.NoError(t, err)
	assert.Equal(t, float32(4), again[0])

	_, err = idx.Reconstruct(2)
	assert.ErrorIs(t, err, index.ErrPositionOutOfRange)
	_, err = idx.Reconstruct(-1)
	assert.ErrorIs(t, err, index.ErrPositionOutOfRange)
}

func TestAppend_CopiesInput(t *testing.T) {
	idx, err := New(2, index.MetricL2)
	require.NoError(t, err)
	v := []float32{1, 2}
	_, err = idx.Append(v)
	require.NoError(t, err)
	v[0] = 9
	got, err := idx.Reconstruct(0)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestMarshalRoundTrip(t *testing.T) {
	idx := newFilled(t, index.MetricInnerProduct, []float32{1, 2}, []float32{3, 4}, []float32{5, 6})
	data, err := idx.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, headerSize+3*2*4+trailerSize, len(data))

	var out Index
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, 2, out.Dimension())
	assert.Equal(t, index.MetricInnerProduct, out.Metric())
	v, err := out.Reconstruct(2)
	require.NoError(t, err)
	assert.Equal(t, []float32{5, 6}, v)
}

func TestUnmarshal_Corrupt(t *testing.T) {
	idx := newFilled(t, index.MetricL2, []float32{1, 2}, []float32{3, 4})
	data, err := idx.MarshalBinary()
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[headerSize+1] ^= 0xFF
	var out Index
	assert.ErrorIs(t, out.UnmarshalBinary(flipped), index.ErrCorrupt)

	assert.ErrorIs(t, out.UnmarshalBinary(data[:len(data)-5]), index.ErrCorrupt)
	assert.ErrorIs(t, out.UnmarshalBinary([]byte("TSIX")), index.ErrCorrupt)

	badMagic := append([]byte(nil), data...)
	copy(badMagic, "XXXX")
	assert.ErrorIs(t, out.UnmarshalBinary(badMagic), index.ErrCorrupt)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.bin")
	idx := newFilled(t, index.MetricInnerProduct, []float32{1, 0, 0}, []float32{0, 1, 0})
	require.NoError(t, idx.Save(path))

	loaded, err := Load(path, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	_, err = Load(path, 4)
	var de *index.DimensionError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 4, de.Expected)
	assert.Equal(t, 3, de.Actual)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestConcurrentSearch(t *testing.T) {
	idx, err := New(4, index.MetricInnerProduct)
	require.NoError(t, err)
	for i := 0; i < 64; i++ {
		_, err := idx.Append([]float32{float32(i), 1, 0, 0})
		require.NoError(t, err)
	}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hits, err := idx.Search([]float32{1, 0, 0, 0}, 3)
				if err != nil || len(hits) != 3 || hits[0].Position != 63 {
					t.Errorf("unexpected search result: %v %v", hits, err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
