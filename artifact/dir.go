package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

const lockRetry = 100 * time.Millisecond

// DirRepository stores a set as files in one directory. Save writes a fresh
// temporary directory, manifest last, then renames it over the target, all
// under an exclusive lock on "<dir>.lock". Load takes the shared lock.
type DirRepository struct {
	dir string
	options
}

// NewDirRepository returns a repository rooted at dir.
func NewDirRepository(dir string, opts ...Option) *DirRepository {
	return &DirRepository{dir: filepath.Clean(dir), options: newOptions(opts)}
}

// Dir returns the artifact directory.
func (r *DirRepository) Dir() string { return r.dir }

func (r *DirRepository) lock(ctx context.Context, shared bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(r.dir), 0o755); err != nil {
		return nil, err
	}
	l := flock.New(r.dir + ".lock")
	ctx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()
	var (
		ok  bool
		err error
	)
	if shared {
		ok, err = l.TryRLockContext(ctx, lockRetry)
	} else {
		ok, err = l.TryLockContext(ctx, lockRetry)
	}
	if err != nil || !ok {
		if err == nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLocked, l.Path(), err)
	}
	return func() { _ = l.Unlock() }, nil
}

// Save validates and writes set, replacing any previous build. On success
// set.Manifest holds the persisted manifest.
func (r *DirRepository) Save(ctx context.Context, set *Set) error {
	set.Seal()
	if err := set.Validate(); err != nil {
		return err
	}
	p, err := encodeParts(set, r.compression)
	if err != nil {
		return err
	}
	unlock, err := r.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	tmp, err := os.MkdirTemp(filepath.Dir(r.dir), "."+filepath.Base(r.dir)+".tmp-")
	if err != nil {
		return fmt.Errorf("artifact: create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmp) }()

	m := set.Manifest
	if m.BuildID == "" {
		m.BuildID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Compression = r.compression
	m.Files = map[string]string{}
	files := []struct {
		name string
		data []byte
	}{
		{IndexFileName(r.compression), p.index},
		{ScalerFile, p.scaler},
		{MappingFile, p.mapping},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFileSync(filepath.Join(tmp, f.name), f.data); err != nil {
			return fmt.Errorf("artifact: write %s: %w", f.name, err)
		}
		m.Files[f.name] = checksum(f.data)
	}
	manifest, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileSync(filepath.Join(tmp, ManifestFile), manifest); err != nil {
		return fmt.Errorf("artifact: write manifest: %w", err)
	}
	if err := atomicSwap(tmp, r.dir); err != nil {
		return fmt.Errorf("artifact: swap %s: %w", r.dir, err)
	}
	if err := removeAll(r.dir + ".bak"); err != nil {
		r.logger.Warn("previous build not removed", "dir", r.dir+".bak", "reason", err)
	}
	set.Manifest = m
	r.logger.Info("artifacts saved", "dir", r.dir, "build_id", m.BuildID, "count", m.Count, "dimension", m.Dimension)
	return nil
}

// Load reads and verifies the set.
func (r *DirRepository) Load(ctx context.Context) (*Set, error) {
	unlock, err := r.lock(ctx, true)
	if err != nil {
		return nil, err
	}
	defer unlock()
	if _, err := os.Stat(r.dir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, r.dir)
		}
		return nil, err
	}

	raw, err := r.read(ManifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrInconsistent, err)
	}
	p := &parts{}
	for _, f := range []struct {
		name string
		dst  *[]byte
	}{
		{IndexFileName(m.Compression), &p.index},
		{ScalerFile, &p.scaler},
		{MappingFile, &p.mapping},
	} {
		data, err := r.read(f.name)
		if err != nil {
			return nil, err
		}
		want, ok := m.Files[f.name]
		if !ok {
			return nil, fmt.Errorf("%w: %s not listed in manifest", ErrInconsistent, f.name)
		}
		if got := checksum(data); got != want {
			return nil, fmt.Errorf("%w: %s: got %s, want %s", ErrChecksum, f.name, got, want)
		}
		*f.dst = data
	}
	set, err := decodeParts(m, p)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("artifacts loaded", "dir", r.dir, "build_id", m.BuildID, "count", m.Count)
	return set, nil
}

// Manifest reads only the manifest.
func (r *DirRepository) Manifest() (Manifest, error) {
	var m Manifest
	raw, err := r.read(ManifestFile)
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%w: manifest: %v", ErrInconsistent, err)
	}
	return m, nil
}

func (r *DirRepository) read(name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(r.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingArtifact, filepath.Join(r.dir, name))
		}
		return nil, err
	}
	return data, nil
}

func writeFileSync(name string, data []byte) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

var removeAll = os.RemoveAll

// atomicSwap replaces destDir with srcDir by renaming. The previous directory
// is left as "<dest>.bak" and restored if the rename fails.
func atomicSwap(srcDir, destDir string) error {
	backup := destDir + ".bak"
	_ = removeAll(backup)
	if _, err := os.Stat(destDir); err == nil {
		if err := os.Rename(destDir, backup); err != nil {
			return err
		}
	}
	if err := os.Rename(srcDir, destDir); err != nil {
		if _, stErr := os.Stat(backup); stErr == nil {
			_ = os.Rename(backup, destDir)
		}
		return err
	}
	return nil
}

var _ Repository = (*DirRepository)(nil)
