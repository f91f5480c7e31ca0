package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
)

// ErrInvalidArtifactName is returned for names that would escape the store directory
var ErrInvalidArtifactName = errors.New("invalid artifact name")

const artifactPrefix = "receipt-"

// ArtifactStore persists receipt artifacts in a single directory of an afero filesystem
type ArtifactStore struct {
	Fs     afero.Fs
	Dir    string
	Logger *zap.Logger
}

var _ domain.ArtifactStore = (*ArtifactStore)(nil)

// NewArtifactStore creates a new ArtifactStore instance
func NewArtifactStore(fs afero.Fs, dir string, logger *zap.Logger) *ArtifactStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArtifactStore{
		Fs:     fs,
		Dir:    dir,
		Logger: logger,
	}
}

// DefaultDir returns the per-user receipt directory
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "transferflow", "receipts")
	}
	return filepath.Join(os.TempDir(), "transferflow", "receipts")
}

// Save writes data under name, replacing any previous artifact.
// The write goes to a temporary file first so a failed export never leaves a
// truncated artifact behind.
func (s *ArtifactStore) Save(ctx context.Context, name string, data []byte) (domain.ArtifactLocation, error) {
	if err := ctx.Err(); err != nil {
		return domain.ArtifactLocation{}, err
	}
	if name == "" || filepath.Base(name) != name || strings.HasPrefix(name, ".") {
		return domain.ArtifactLocation{}, fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}

	if err := s.Fs.MkdirAll(s.Dir, 0o755); err != nil {
		return domain.ArtifactLocation{}, fmt.Errorf("failed to create artifact directory: %w", err)
	}

	path := filepath.Join(s.Dir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.Fs, tmp, data, 0o600); err != nil {
		return domain.ArtifactLocation{}, fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := s.Fs.Rename(tmp, path); err != nil {
		_ = s.Fs.Remove(tmp)
		return domain.ArtifactLocation{}, fmt.Errorf("failed to store artifact: %w", err)
	}

	s.Logger.Debug("artifact saved", zap.String("path", path), zap.Int("size", len(data)))
	return domain.ArtifactLocation{Path: path, Size: int64(len(data))}, nil
}

// Exists reports whether the artifact is still present
func (s *ArtifactStore) Exists(ctx context.Context, loc domain.ArtifactLocation) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return afero.Exists(s.Fs, loc.Path)
}

// Purge removes every receipt artifact from the store directory.
// Receipts are regenerated on demand, so nothing survives a session.
func (s *ArtifactStore) Purge(ctx context.Context) (int, error) {
	entries, err := afero.ReadDir(s.Fs, s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list artifacts: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), artifactPrefix) {
			continue
		}
		if err := s.Fs.Remove(filepath.Join(s.Dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove artifact %s: %w", entry.Name(), err)
		}
		removed++
	}

	if removed > 0 {
		s.Logger.Info("stale artifacts purged", zap.Int("count", removed))
	}
	return removed, nil
}
