package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedNoOpWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0644))

	mode, err := NewEmbedder(nil).Embed(path, "", "")
	require.NoError(t, err)
	assert.Empty(t, mode)

	// No sidecar appears for a no-op.
	_, err = os.Stat(path + ".xmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEmbedSidecarForNonJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	original := []byte("video bytes")
	require.NoError(t, os.WriteFile(path, original, 0644))

	mode, err := NewEmbedder(nil).Embed(path, "beach day", "2021-06-12T10:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, ModeSidecar, mode)

	// The media file itself is untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)

	sidecar, err := os.ReadFile(path + ".xmp")
	require.NoError(t, err)
	assert.Contains(t, string(sidecar), "beach day")
	assert.Contains(t, string(sidecar), "2021-06-12")
}

func TestEmbedInPlaceForJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(path, minimalJPEG(), 0644))

	mode, err := NewEmbedder(nil).Embed(path, "a comment", "")
	require.NoError(t, err)
	assert.Equal(t, ModeEmbedded, mode)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	packet := extractJPEGXMP(data)
	require.NotNil(t, packet, "JPEG should carry an XMP packet")
	assert.Contains(t, string(packet), "a comment")

	// In-place embed produces no sidecar.
	_, err = os.Stat(path + ".xmp")
	assert.True(t, os.IsNotExist(err))
}

func TestEmbedFallsBackToSidecarForBrokenJPEG(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jpg")
	original := []byte("not actually a jpeg")
	require.NoError(t, os.WriteFile(path, original, 0644))

	mode, err := NewEmbedder(nil).Embed(path, "desc", "")
	require.NoError(t, err)
	assert.Equal(t, ModeSidecar, mode)

	// The broken file is left untouched.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestEmbedRejectsUnparseableCreationTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(path, []byte("png bytes"), 0644))

	_, err := NewEmbedder(nil).Embed(path, "", "yesterday at noon")
	assert.Error(t, err)
}
