package photo

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeDataURL(t *testing.T) {
	raw := []byte("not really a png")
	enc := base64.StdEncoding.EncodeToString(raw)

	mime, data, err := DecodeDataURL("data:image/png;base64," + enc)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mime)
	assert.Equal(t, raw, data)

	mime, data, err = DecodeDataURL(enc)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, raw, data)

	for _, bad := range []string{"", "data:image/png;base64", "data:image/png," + enc, "%%%"} {
		_, _, err := DecodeDataURL(bad)
		assert.Error(t, err, bad)
	}
}

func TestDiskArchiveStore(t *testing.T) {
	root := t.TempDir()
	archive, err := NewDiskArchive(root, "/photos/", 64)
	require.NoError(t, err)

	payload := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg-bytes"))
	url, err := archive.Store(context.Background(), payload, "Store A", "TKT-1234", 0)
	require.NoError(t, err)
	assert.Equal(t, "/photos/Store_A/TKT-1234_1.jpg", url)

	written, err := os.ReadFile(filepath.Join(root, "Store_A", "TKT-1234_1.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), written)

	url, err = archive.Store(context.Background(), payload, "Store A", "TKT-1234", 2)
	require.NoError(t, err)
	assert.Equal(t, "/photos/Store_A/TKT-1234_3.jpg", url)
}

func TestDiskArchiveStore_Rejects(t *testing.T) {
	archive, err := NewDiskArchive(t.TempDir(), "/photos", 4)
	require.NoError(t, err)

	big := base64.StdEncoding.EncodeToString([]byte("way too large"))
	_, err = archive.Store(context.Background(), big, "STORE-A", "TKT-1", 0)
	assert.ErrorIs(t, err, ErrTooLarge)

	tiff := "data:image/tiff;base64," + base64.StdEncoding.EncodeToString([]byte("ab"))
	_, err = archive.Store(context.Background(), tiff, "STORE-A", "TKT-1", 0)
	assert.ErrorContains(t, err, "unsupported image type")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = archive.Store(ctx, big, "STORE-A", "TKT-1", 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSafeSegment(t *testing.T) {
	assert.Equal(t, "_", safeSegment(".."))
	assert.Equal(t, "a_b", safeSegment("a/b"))
	assert.Equal(t, "_", safeSegment("   "))
	assert.Equal(t, "OUTLET-01", safeSegment(" OUTLET-01 "))
}
