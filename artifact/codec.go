package artifact

import (
	"bytes"
	"fmt"

	"github.com/viant/tracksim/index/bruteforce"
	"github.com/viant/tracksim/scaler"
)

const (
	IndexFile     = "index.bin"
	IndexFileZstd = "index.bin.zst"
	ScalerFile    = "scaler.bin"
	MappingFile   = "index_mapping.csv"
	ManifestFile  = "manifest.json"
)

// IndexFileName returns the index file name for the compression mode.
func IndexFileName(c Compression) string {
	if c == CompressionZstd {
		return IndexFileZstd
	}
	return IndexFile
}

type parts struct {
	index   []byte
	scaler  []byte
	mapping []byte
}

func encodeParts(set *Set, c Compression) (*parts, error) {
	raw, err := set.Index.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("artifact: encode index: %w", err)
	}
	idx, err := compress(c, raw)
	if err != nil {
		return nil, err
	}
	sc, err := set.Scaler.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("artifact: encode scaler: %w", err)
	}
	var buf bytes.Buffer
	if err := set.Mapping.WriteCSV(&buf); err != nil {
		return nil, fmt.Errorf("artifact: encode mapping: %w", err)
	}
	return &parts{index: idx, scaler: sc, mapping: buf.Bytes()}, nil
}

func decodeParts(m Manifest, p *parts) (*Set, error) {
	mapping, err := ReadMapping(bytes.NewReader(p.mapping))
	if err != nil {
		return nil, err
	}
	return decodeSet(m, p.index, p.scaler, mapping)
}

func decodeSet(m Manifest, indexBlob, scalerBlob []byte, mapping *Mapping) (*Set, error) {
	raw, err := decompress(m.Compression, indexBlob)
	if err != nil {
		return nil, err
	}
	idx, err := bruteforce.Decode(raw, m.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInconsistent, err)
	}
	sc := &scaler.Scaler{}
	if err := sc.UnmarshalBinary(scalerBlob); err != nil {
		return nil, err
	}
	set := &Set{Manifest: m, Index: idx, Scaler: sc, Mapping: mapping}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}
