package artifact

import (
	"fmt"
	"time"

	xxhash "github.com/OneOfOne/xxhash"
	"github.com/google/uuid"
)

// ManifestVersion is the version of the manifest layout.
const ManifestVersion = 1

// Compression selects how the index blob is stored.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression accepts "", "none" and "zstd".
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("artifact: unsupported compression %q", s)
}

// Manifest describes one complete build. It is written last, so its
// presence marks a finished write.
type Manifest struct {
	Version     int               `json:"version"`
	BuildID     string            `json:"build_id"`
	CreatedAt   time.Time         `json:"created_at"`
	Dimension   int               `json:"dimension"`
	Count       int               `json:"count"`
	Metric      string            `json:"metric"`
	Extractor   string            `json:"extractor,omitempty"`
	Compression Compression       `json:"compression"`
	Files       map[string]string `json:"files,omitempty"`
}

// NewManifest starts a manifest for a new build.
func NewManifest(extractor string) Manifest {
	return Manifest{
		Version:   ManifestVersion,
		BuildID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Extractor: extractor,
	}
}

func checksum(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Checksum64(data))
}
