package share

import (
	"bytes"
	"context"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/transferflow/internal/domain"
)

func TestWriterSharer_ShareFile(t *testing.T) {
	memFs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(memFs, "/cache/receipt-TRF-1.pdf", []byte("%PDF"), 0o600))
	loc := domain.ArtifactLocation{Path: "/cache/receipt-TRF-1.pdf"}

	t.Run("Announces path", func(t *testing.T) {
		var out bytes.Buffer
		sharer := NewWriterSharer(&out, memFs, "", nil)

		require.NoError(t, sharer.ShareFile(context.Background(), loc, "Receipt"))
		assert.Equal(t, "Receipt: /cache/receipt-TRF-1.pdf\n", out.String())
	})

	t.Run("Copies to destination", func(t *testing.T) {
		var out bytes.Buffer
		sharer := NewWriterSharer(&out, memFs, "/downloads", nil)

		require.NoError(t, sharer.ShareFile(context.Background(), loc, "Receipt"))

		data, err := afero.ReadFile(memFs, "/downloads/receipt-TRF-1.pdf")
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(data))
	})

	t.Run("Missing artifact", func(t *testing.T) {
		sharer := NewWriterSharer(&bytes.Buffer{}, memFs, "", nil)

		err := sharer.ShareFile(context.Background(), domain.ArtifactLocation{Path: "/cache/gone.pdf"}, "Receipt")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})

	t.Run("Declined", func(t *testing.T) {
		var out bytes.Buffer
		sharer := NewWriterSharer(&out, memFs, "/downloads", nil)
		sharer.Confirm = func(string) bool { return false }

		err := sharer.ShareFile(context.Background(), loc, "Receipt")
		assert.ErrorIs(t, err, domain.ErrShareCancelled)
		assert.Empty(t, out.String())
	})
}

func TestWriterSharer_ShareText(t *testing.T) {
	var out bytes.Buffer
	sharer := NewWriterSharer(&out, afero.NewMemMapFs(), "", nil)

	require.NoError(t, sharer.ShareText(context.Background(), "Amount: ₦5,000.00", "Receipt"))
	assert.Equal(t, "Amount: ₦5,000.00\n", out.String())

	sharer.Confirm = func(string) bool { return false }
	assert.ErrorIs(t, sharer.ShareText(context.Background(), "x", "Receipt"), domain.ErrShareCancelled)
}
