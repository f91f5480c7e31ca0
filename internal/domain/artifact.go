package domain

import (
	"context"
	"errors"
)

// ErrShareCancelled is returned by a ShareCapability when the user dismissed
// the share sheet. It is a decision, not a failure.
var ErrShareCancelled = errors.New("share cancelled by user")

// ArtifactLocation identifies a persisted receipt artifact
type ArtifactLocation struct {
	Path      string
	MediaType string
	Size      int64
}

// ArtifactStore persists rendered receipt artifacts.
// Save overwrites any artifact previously stored under the same name.
type ArtifactStore interface {
	Save(ctx context.Context, name string, data []byte) (ArtifactLocation, error)
	Exists(ctx context.Context, loc ArtifactLocation) (bool, error)
}

// ShareCapability hands content to the host platform's share target
type ShareCapability interface {
	ShareFile(ctx context.Context, loc ArtifactLocation, title string) error
	ShareText(ctx context.Context, text string, title string) error
}
