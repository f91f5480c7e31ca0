package share

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
)

// ConfirmFunc asks the user whether to go ahead with a share.
// Returning false is a user cancellation.
type ConfirmFunc func(title string) bool

// WriterSharer is the share capability of a terminal host: text goes to Out,
// files are copied to Dest (or announced on Out when Dest is empty).
type WriterSharer struct {
	Out     io.Writer
	Fs      afero.Fs
	Dest    string
	Confirm ConfirmFunc
	Logger  *zap.Logger
}

var _ domain.ShareCapability = (*WriterSharer)(nil)

// NewWriterSharer creates a new WriterSharer instance
func NewWriterSharer(out io.Writer, fs afero.Fs, dest string, logger *zap.Logger) *WriterSharer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WriterSharer{
		Out:    out,
		Fs:     fs,
		Dest:   dest,
		Logger: logger,
	}
}

func (s *WriterSharer) confirmed(title string) bool {
	return s.Confirm == nil || s.Confirm(title)
}

// ShareFile implements domain.ShareCapability
func (s *WriterSharer) ShareFile(ctx context.Context, loc domain.ArtifactLocation, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.Fs.Stat(loc.Path); err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	if !s.confirmed(title) {
		return domain.ErrShareCancelled
	}

	target := loc.Path
	if s.Dest != "" {
		target = filepath.Join(s.Dest, filepath.Base(loc.Path))
		if err := s.copy(loc.Path, target); err != nil {
			return err
		}
	}

	s.Logger.Debug("artifact shared", zap.String("path", target))
	_, err := fmt.Fprintf(s.Out, "%s: %s\n", title, target)
	return err
}

// ShareText implements domain.ShareCapability
func (s *WriterSharer) ShareText(ctx context.Context, text string, title string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.confirmed(title) {
		return domain.ErrShareCancelled
	}
	_, err := fmt.Fprintf(s.Out, "%s\n", text)
	return err
}

func (s *WriterSharer) copy(src, dst string) error {
	data, err := afero.ReadFile(s.Fs, src)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := s.Fs.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create share destination: %w", err)
	}
	if err := afero.WriteFile(s.Fs, dst, data, 0o644); err != nil {
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	return nil
}
