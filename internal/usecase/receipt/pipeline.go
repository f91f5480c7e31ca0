package receipt

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"go.uber.org/zap"

	"github.com/simaogato/transferflow/internal/domain"
)

// Operation names reported in PipelineError
const (
	OpExport     = "export"
	OpShareFile  = "share artifact"
	OpShareText  = "share text"
	shareSubject = "Transaction Receipt"
)

// ErrorKind classifies a pipeline failure
type ErrorKind string

const (
	KindInvalidRecord    ErrorKind = "INVALID_RECORD"
	KindPermissionDenied ErrorKind = "PERMISSION_DENIED"
	KindConversionFailed ErrorKind = "CONVERSION_FAILED"
	KindStorageFailed    ErrorKind = "STORAGE_FAILED"
	KindArtifactNotFound ErrorKind = "ARTIFACT_NOT_FOUND"
	KindShareFailed      ErrorKind = "SHARE_FAILED"
)

var kindMessages = map[ErrorKind]string{
	KindInvalidRecord:    "receipt is not available for this transaction",
	KindPermissionDenied: "permission denied while saving receipt",
	KindConversionFailed: "could not generate receipt document",
	KindStorageFailed:    "could not save receipt",
	KindArtifactNotFound: "receipt file not found",
	KindShareFailed:      "could not share receipt",
}

// PipelineError is scoped to one export operation and never leaks into the others
type PipelineError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *PipelineError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message())
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message(), e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Message is the text shown to the user
func (e *PipelineError) Message() string {
	if msg, ok := kindMessages[e.Kind]; ok {
		return msg
	}
	return "receipt operation failed"
}

// IsKind reports whether err is a PipelineError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var perr *PipelineError
	return errors.As(err, &perr) && perr.Kind == kind
}

// Converter turns a rendered document into a portable binary artifact
type Converter interface {
	Convert(ctx context.Context, doc Document) ([]byte, error)
	MediaType() string
	Extension() string
}

// Pipeline exposes the three independent receipt export paths
type Pipeline struct {
	Converter Converter
	Store     domain.ArtifactStore
	Sharer    domain.ShareCapability
	Style     Style
	Logger    *zap.Logger
	Now       func() time.Time
}

// NewPipeline creates a new Pipeline instance
func NewPipeline(converter Converter, store domain.ArtifactStore, sharer domain.ShareCapability, style Style, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if style == (Style{}) {
		style = DefaultStyle
	}
	return &Pipeline{
		Converter: converter,
		Store:     store,
		Sharer:    sharer,
		Style:     style,
		Logger:    logger,
		Now:       time.Now,
	}
}

// Render returns the document for preview, stamped with the current time
func (p *Pipeline) Render(record domain.TransactionRecord) Document {
	return RenderDocument(record, p.Style, p.Now())
}

// ArtifactName is the file name a record's receipt is stored under
func ArtifactName(record domain.TransactionRecord, extension string) string {
	return fmt.Sprintf("receipt-%s.%s", record.Reference, extension)
}

// ExportPDF renders, converts and persists the receipt.
// Logic:
//  1. Validate the borrowed record
//  2. Render the document and convert it; every call regenerates the artifact
//  3. Save it, overwriting any earlier export of the same record
func (p *Pipeline) ExportPDF(ctx context.Context, record domain.TransactionRecord) (domain.ArtifactLocation, error) {
	return p.export(ctx, OpExport, record)
}

func (p *Pipeline) export(ctx context.Context, op string, record domain.TransactionRecord) (domain.ArtifactLocation, error) {
	if err := record.Validate(); err != nil {
		return domain.ArtifactLocation{}, &PipelineError{Op: op, Kind: KindInvalidRecord, Err: err}
	}

	logger := p.Logger.With(zap.String("reference", record.Reference), zap.String("op", op))

	data, err := p.Converter.Convert(ctx, p.Render(record))
	if err != nil {
		logger.Warn("receipt conversion failed", zap.Error(err))
		return domain.ArtifactLocation{}, &PipelineError{Op: op, Kind: KindConversionFailed, Err: err}
	}
	if len(data) == 0 {
		return domain.ArtifactLocation{}, &PipelineError{Op: op, Kind: KindConversionFailed, Err: errors.New("converter produced no output")}
	}

	loc, err := p.Store.Save(ctx, ArtifactName(record, p.Converter.Extension()), data)
	if err != nil {
		kind := KindStorageFailed
		if errors.Is(err, fs.ErrPermission) {
			kind = KindPermissionDenied
		}
		logger.Warn("receipt save failed", zap.String("kind", string(kind)), zap.Error(err))
		return domain.ArtifactLocation{}, &PipelineError{Op: op, Kind: kind, Err: err}
	}
	if loc.MediaType == "" {
		loc.MediaType = p.Converter.MediaType()
	}

	logger.Info("receipt exported", zap.String("path", loc.Path), zap.Int64("size", loc.Size))
	return loc, nil
}

// ShareArtifact exports a fresh artifact and hands it to the share capability.
// A user-cancelled share is reported as success.
func (p *Pipeline) ShareArtifact(ctx context.Context, record domain.TransactionRecord) error {
	loc, err := p.export(ctx, OpShareFile, record)
	if err != nil {
		return err
	}

	exists, err := p.Store.Exists(ctx, loc)
	if err != nil {
		return &PipelineError{Op: OpShareFile, Kind: KindArtifactNotFound, Err: err}
	}
	if !exists {
		return &PipelineError{Op: OpShareFile, Kind: KindArtifactNotFound}
	}

	return p.share(OpShareFile, record, p.Sharer.ShareFile(ctx, loc, shareSubject))
}

// ShareText shares the plain-text summary. It never renders or converts a
// document, so it works when the document path is unavailable.
func (p *Pipeline) ShareText(ctx context.Context, record domain.TransactionRecord) error {
	if err := record.Validate(); err != nil {
		return &PipelineError{Op: OpShareText, Kind: KindInvalidRecord, Err: err}
	}
	return p.share(OpShareText, record, p.Sharer.ShareText(ctx, PlainText(record, p.Style), shareSubject))
}

func (p *Pipeline) share(op string, record domain.TransactionRecord, err error) error {
	logger := p.Logger.With(zap.String("reference", record.Reference), zap.String("op", op))
	switch {
	case err == nil:
		logger.Info("receipt shared")
		return nil
	case errors.Is(err, domain.ErrShareCancelled):
		logger.Info("receipt share cancelled by user")
		return nil
	case errors.Is(err, fs.ErrNotExist):
		logger.Warn("receipt share failed", zap.Error(err))
		return &PipelineError{Op: op, Kind: KindArtifactNotFound, Err: err}
	default:
		logger.Warn("receipt share failed", zap.Error(err))
		return &PipelineError{Op: op, Kind: KindShareFailed, Err: err}
	}
}
