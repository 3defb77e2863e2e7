// Package audio decodes audio files to mono float32 PCM by running ffmpeg.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/viant/tracksim/vector"
)

const (
	DefaultSampleRate = 22050
	DefaultTimeout    = 5 * time.Minute
	DefaultFFmpeg     = "ffmpeg"
)

// DefaultExtensions lists the file extensions treated as audio.
var DefaultExtensions = []string{".mp3", ".wav", ".flac", ".ogg", ".m4a"}

// ErrDecoderUnavailable is returned when the ffmpeg binary cannot be found.
var ErrDecoderUnavailable = errors.New("audio: ffmpeg not available")

// Decoder converts audio files to mono samples at SampleRate.
type Decoder struct {
	FFmpeg     string
	SampleRate int
	// Timeout bounds a single decode; zero means DefaultTimeout.
	Timeout time.Duration
}

// NewDecoder returns a decoder resampling to sampleRate (DefaultSampleRate
// when non-positive) using the ffmpeg binary at path (DefaultFFmpeg when
// empty).
func NewDecoder(path string, sampleRate int) *Decoder {
	if path == "" {
		path = DefaultFFmpeg
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Decoder{FFmpeg: path, SampleRate: sampleRate, Timeout: DefaultTimeout}
}

// Available reports whether the ffmpeg binary can be resolved.
func (d *Decoder) Available() bool {
	_, err := exec.LookPath(d.FFmpeg)
	return err == nil
}

// Decode returns the mono samples of the file at path.
func (d *Decoder) Decode(ctx context.Context, path string) ([]float32, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(d.FFmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecoderUnavailable, err)
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", strconv.Itoa(d.SampleRate),
		"-f", "f32le",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("audio: decode %s: %w: %s", path, err, msg)
		}
		return nil, fmt.Errorf("audio: decode %s: %w", path, err)
	}
	return ParsePCM(out.Bytes())
}

// ParsePCM converts little-endian f32le bytes to samples.
func ParsePCM(raw []byte) ([]float32, error) {
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("audio: unexpected PCM length %d", len(raw))
	}
	samples, err := vector.DecodeEmbedding(raw)
	if err != nil {
		return nil, err
	}
	if samples == nil {
		samples = []float32{}
	}
	return samples, nil
}

// IsAudio reports whether path has one of exts (case-insensitive); nil exts
// means DefaultExtensions.
func IsAudio(path string, exts []string) bool {
	if exts == nil {
		exts = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}
