package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	// Base URL for serving files
	UploadsURLPrefix = "/uploads"
	// Longest side of a stored profile image
	ProfileImageMaxDim = 512
)

var (
	ErrInvalidImage = errors.New("invalid image")

	unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9.-]`)
)

// cleanFilename removes any potentially dangerous characters from the filename
func cleanFilename(filename string) string {
	filename = filepath.Base(filename)
	return unsafeFilename.ReplaceAllString(filename, "")
}

// NormalizeProfileImage decodes an upload and re-encodes it as a JPEG no larger
// than ProfileImageMaxDim on either side.
func NormalizeProfileImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	b := img.Bounds()
	if b.Dx() > ProfileImageMaxDim || b.Dy() > ProfileImageMaxDim {
		img = imaging.Fit(img, ProfileImageMaxDim, ProfileImageMaxDim, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JPEGName replaces the extension of a (cleaned) filename with .jpg.
func JPEGName(filename string) string {
	name := cleanFilename(filename)
	return strings.TrimSuffix(name, filepath.Ext(name)) + ".jpg"
}

// UploadFileToPath saves a file under baseDir/subDir and returns its URL.
func UploadFileToPath(baseDir, subDir, filename string, fileData []byte) (string, error) {
	filename = cleanFilename(filename)
	if filename == "" || filename == "." {
		return "", errors.New("invalid filename")
	}

	fullPath := filepath.Join(baseDir, subDir, filename)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %v", filepath.Dir(fullPath), err)
	}

	// Write the file with restricted permissions
	if err := os.WriteFile(fullPath, fileData, 0644); err != nil {
		return "", fmt.Errorf("failed to write file %s: %v", fullPath, err)
	}

	return fmt.Sprintf("%s/%s/%s", UploadsURLPrefix, subDir, filename), nil
}

// RemoveUploadedFile deletes the file behind a URL returned by UploadFileToPath.
// URLs outside the uploads prefix are rejected.
func RemoveUploadedFile(baseDir, url string) error {
	rel := strings.TrimPrefix(url, UploadsURLPrefix+"/")
	if rel == url || rel == "" {
		return fmt.Errorf("not an uploaded file: %s", url)
	}

	clean := filepath.Clean(rel)
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return fmt.Errorf("not an uploaded file: %s", url)
	}

	err := os.Remove(filepath.Join(baseDir, clean))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
