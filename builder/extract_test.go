package builder

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/tracksim/engine"
	"github.com/viant/tracksim/excerpt"
	"github.com/viant/tracksim/feature"
	"github.com/viant/tracksim/vector"
)

type fakeDecoder struct {
	root    string
	samples map[string][]float32
	calls   atomic.Int32
}

func (d *fakeDecoder) Decode(_ context.Context, path string) ([]float32, error) {
	d.calls.Add(1)
	rel, err := filepath.Rel(d.root, path)
	if err != nil {
		return nil, err
	}
	s, ok := d.samples[filepath.ToSlash(rel)]
	if !ok {
		return nil, errors.New("cannot decode")
	}
	return s, nil
}

// sumExtractor reports the sum and length of its input.
var sumExtractor = feature.Func{Name: "sum-v1", Dim: 2, Fn: func(_ context.Context, samples []float32, _ int) (vector.FeatureVector, error) {
	if len(samples) == 0 {
		return vector.FeatureVector{}, nil
	}
	var s float32
	for _, x := range samples {
		s += x
	}
	return vector.FeatureVector{s, float32(len(samples))}, nil
}}

func newDecoder(root string) *fakeDecoder {
	return &fakeDecoder{root: root, samples: map[string][]float32{
		"c.mp3":     {1, 2, 3},
		"a.mp3":     {1},
		"sub/b.mp3": {2, 2},
		"empty.mp3": {},
	}}
}

func TestExtract_SortedAndSkipped(t *testing.T) {
	root := t.TempDir()
	dec := newDecoder(root)
	var progressed atomic.Int32
	b := New(WithWorkers(3), WithProgress(func(string, error) { progressed.Add(1) }))
	files := []string{"c.mp3", "broken.mp3", "sub/b.mp3", "empty.mp3", "a.mp3"}
	tracks, report, err := b.Extract(context.Background(), root, files, dec, sumExtractor, 22050)
	require.NoError(t, err)

	require.Len(t, tracks, 3)
	assert.Equal(t, []string{"a.mp3", "c.mp3", "sub/b.mp3"}, []string{tracks[0].Filename, tracks[1].Filename, tracks[2].Filename})
	assert.Equal(t, vector.FeatureVector{6, 3}, tracks[1].Vector)
	assert.Equal(t, 5, report.Input)
	assert.Equal(t, 3, report.Indexed)
	require.Len(t, report.Skipped, 2)
	assert.Equal(t, "broken.mp3", report.Skipped[0].Filename)
	assert.Equal(t, "empty.mp3", report.Skipped[1].Filename)
	assert.Equal(t, int32(5), progressed.Load())
}

func TestExtract_DeterministicAcrossWorkers(t *testing.T) {
	root := t.TempDir()
	files := []string{"c.mp3", "sub/b.mp3", "a.mp3"}
	var first []Track
	for _, workers := range []int{1, 2, 8} {
		tracks, _, err := New(WithWorkers(workers)).Extract(context.Background(), root, files, newDecoder(root), sumExtractor, 22050)
		require.NoError(t, err)
		if first == nil {
			first = tracks
			continue
		}
		assert.Equal(t, first, tracks)
	}
}

func TestExtract_Cache(t *testing.T) {
	require.NoError(t, engine.RegisterVectorFunctions(nil))
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()
	cache, err := vector.NewSQLiteStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	key := CacheKey("sum-v1", 22050, nil, 0)
	require.NoError(t, cache.Put(ctx, []vector.Feature{
		{Filename: "a.mp3", Extractor: key, Vector: vector.FeatureVector{100, 1}},
		{Filename: "c.mp3", Extractor: key, Vector: vector.FeatureVector{1, 2, 3}},
	}))

	root := t.TempDir()
	dec := newDecoder(root)
	b := New(WithCache(cache), WithWorkers(2))
	tracks, _, err := b.Extract(ctx, root, []string{"a.mp3", "c.mp3", "sub/b.mp3"}, dec, sumExtractor, 22050)
	require.NoError(t, err)
	require.Len(t, tracks, 3)
	assert.Equal(t, vector.FeatureVector{100, 1}, tracks[0].Vector, "cached vector reused")
	assert.Equal(t, vector.FeatureVector{6, 3}, tracks[1].Vector, "wrong-dimension cache entry re-extracted")
	assert.Equal(t, int32(2), dec.calls.Load())

	v, ok, err := cache.Get(ctx, "sub/b.mp3", key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, vector.FeatureVector{4, 2}, v)

	dec.calls.Store(0)
	_, _, err = b.Extract(ctx, root, []string{"a.mp3", "c.mp3", "sub/b.mp3"}, dec, sumExtractor, 22050)
	require.NoError(t, err)
	assert.Equal(t, int32(0), dec.calls.Load())
}

func newCache(t *testing.T) *vector.SQLiteStore {
	t.Helper()
	require.NoError(t, engine.RegisterVectorFunctions(nil))
	db, err := engine.Open(":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	cache, err := vector.NewSQLiteStore(db)
	require.NoError(t, err)
	return cache
}

func TestExtract_CacheKeyedByPipeline(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	constant := make([]float32, 4000)
	for i := range constant {
		constant[i] = 1
	}
	dec := &fakeDecoder{root: root, samples: map[string][]float32{"long.mp3": constant}}
	cache := newCache(t)
	sel := &excerpt.Selector{FrameLength: 4, HopLength: 2}
	files := []string{"long.mp3"}

	full, _, err := New(WithCache(cache)).Extract(ctx, root, files, dec, sumExtractor, 100)
	require.NoError(t, err)
	require.Len(t, full, 1)
	assert.Equal(t, vector.FeatureVector{4000, 4000}, full[0].Vector)

	clipped, _, err := New(WithCache(cache), WithExcerpt(sel, 10)).Extract(ctx, root, files, dec, sumExtractor, 100)
	require.NoError(t, err)
	require.Len(t, clipped, 1)
	assert.Equal(t, vector.FeatureVector{1000, 1000}, clipped[0].Vector, "full-track vector must not serve an excerpt build")

	dec.calls.Store(0)
	_, _, err = New(WithCache(cache)).Extract(ctx, root, files, dec, sumExtractor, 50)
	require.NoError(t, err)
	assert.Equal(t, int32(1), dec.calls.Load(), "sample rate change re-extracts")

	dec.calls.Store(0)
	again, _, err := New(WithCache(cache), WithExcerpt(sel, 10)).Extract(ctx, root, files, dec, sumExtractor, 100)
	require.NoError(t, err)
	assert.Equal(t, int32(0), dec.calls.Load(), "same pipeline hits the cache")
	assert.Equal(t, clipped, again)
}

func TestCacheKey(t *testing.T) {
	sel := &excerpt.Selector{FrameLength: 2048, HopLength: 512}
	assert.Equal(t, "spectral@sr22050", CacheKey("spectral", 22050, nil, 0))
	assert.Equal(t, "spectral@sr22050+excerpt-f2048-h512-d30", CacheKey("spectral", 22050, sel, 30))
	assert.NotEqual(t, CacheKey("spectral", 22050, sel, 30), CacheKey("spectral", 22050, sel, 20))
}

func TestExtract_Excerpt(t *testing.T) {
	root := t.TempDir()
	long := make([]float32, 100)
	for i := 60; i < 80; i++ {
		long[i] = 1
	}
	dec := &fakeDecoder{root: root, samples: map[string][]float32{"long.mp3": long}}
	sel := &excerpt.Selector{FrameLength: 4, HopLength: 2}
	tracks, _, err := New(WithExcerpt(sel, 2)).Extract(context.Background(), root, []string{"long.mp3"}, dec, sumExtractor, 10)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, vector.FeatureVector{20, 20}, tracks[0].Vector)
}

func TestExtract_Cancelled(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	var once sync.Once
	ex := feature.Func{Name: "cancel", Dim: 1, Fn: func(ctx context.Context, _ []float32, _ int) (vector.FeatureVector, error) {
		once.Do(cancel)
		return nil, ctx.Err()
	}}
	_, _, err := New(WithWorkers(1)).Extract(ctx, root, []string{"a.mp3", "c.mp3"}, newDecoder(root), ex, 22050)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractThenBuild(t *testing.T) {
	root := t.TempDir()
	b := New(WithWorkers(2), WithDimension(2))
	tracks, _, err := b.Extract(context.Background(), root, []string{"c.mp3", "a.mp3", "sub/b.mp3"}, newDecoder(root), sumExtractor, 22050)
	require.NoError(t, err)
	set, report, err := b.Build(context.Background(), tracks)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Indexed)
	name, _ := set.Mapping.Filename(0)
	assert.Equal(t, "a.mp3", name)
}
