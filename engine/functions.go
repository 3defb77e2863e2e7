package engine

import (
	"database/sql"
	"database/sql/driver"
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once

// RegisterVectorFunctions registers vec_cosine, vec_l2 and vec_dot with the
// driver so they are available on new connections opened after this call.
// Note: existing open connections will not see new functions.
func RegisterVectorFunctions(_ *sql.DB) error {
	var err error
	registerOnce.Do(func() {
		for name, fn := range map[string]func(a, b []float32) (float64, error){
			"vec_cosine": cosine,
			"vec_l2":     l2,
			"vec_dot":    dot,
		} {
			if err = sqlite.RegisterDeterministicScalarFunction(name, 2, binaryVectorFunc(name, fn)); err != nil {
				err = fmt.Errorf("engine: register %s: %w", name, err)
				return
			}
		}
	})
	return err
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return decodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

// binaryVectorFunc adapts a two-vector scoring function to a SQL scalar
// function over embedding BLOBs. NULL in either argument yields NULL.
func binaryVectorFunc(name string, fn func(a, b []float32) (float64, error)) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(args[0])
		if err != nil {
			return nil, err
		}
		b, err := asEmbedding(args[1])
		if err != nil {
			return nil, err
		}
		if a == nil || b == nil {
			return nil, nil
		}
		v, err := fn(a, b)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Local minimal helpers to avoid import cycles in tests.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vec: invalid embedding blob length %d", len(b))
	}
	n := len(b) / 4
	v := make([]float32, n)
	for i := 0; i < n; i++ {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

func cosine(a, b []float32) (float64, error) {
	d, err := dot(a, b)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("vec: cosine on empty vectors")
	}
	var na2, nb2 float64
	for i := range a {
		na2 += float64(a[i]) * float64(a[i])
		nb2 += float64(b[i]) * float64(b[i])
	}
	if na2 == 0 || nb2 == 0 {
		return 0, fmt.Errorf("vec: cosine with zero-magnitude vector")
	}
	return d / (math.Sqrt(na2) * math.Sqrt(nb2)), nil
}

func dot(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vec: dim mismatch %d vs %d", len(a), len(b))
	}
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s, nil
}

func l2(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vec: L2 dim mismatch %d vs %d", len(a), len(b))
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}
