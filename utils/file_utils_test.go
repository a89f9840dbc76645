package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{G: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestNormalizeProfileImage(t *testing.T) {
	out, err := NormalizeProfileImage(encodePNG(t, 1024, 256))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, ProfileImageMaxDim, cfg.Width)
	assert.Equal(t, 128, cfg.Height)

	out, err = NormalizeProfileImage(encodePNG(t, 40, 30))
	require.NoError(t, err)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Width)

	_, err = NormalizeProfileImage([]byte("GIF89a nope"))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestJPEGName(t *testing.T) {
	assert.Equal(t, "me.jpg", JPEGName("me.png"))
	assert.Equal(t, "passwd.jpg", JPEGName("../../etc/passwd"))
	assert.Equal(t, "myphoto.jpg", JPEGName("my photo!.gif"))
}

func TestUploadAndRemove(t *testing.T) {
	dir := t.TempDir()

	url, err := UploadFileToPath(dir, "profiles", "a b.jpg", []byte("data"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/profiles/ab.jpg", url)

	data, err := os.ReadFile(filepath.Join(dir, "profiles", "ab.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)

	_, err = UploadFileToPath(dir, "profiles", "/", []byte("data"))
	assert.Error(t, err)

	require.NoError(t, RemoveUploadedFile(dir, url))
	assert.NoError(t, RemoveUploadedFile(dir, url))

	assert.Error(t, RemoveUploadedFile(dir, "/etc/passwd"))
	assert.Error(t, RemoveUploadedFile(dir, "/uploads/../../etc/passwd"))
	assert.Error(t, RemoveUploadedFile(dir, "/uploads/"))
}
