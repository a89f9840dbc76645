package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/HSouheill/alumni_backend/utils"
)

const profileImageDir = "profiles"

func profileObjectName(filename string) string {
	return uuid.NewString() + "-" + utils.JPEGName(filename)
}

// imageError maps an undecodable upload to a validation failure.
func imageError(err error) *AppError {
	if errors.Is(err, utils.ErrInvalidImage) {
		return ValidationError("profile image could not be decoded")
	}
	return internalError("store image", err)
}

// LocalImageStore keeps profile images under the uploads directory served at /uploads.
type LocalImageStore struct {
	baseDir string
}

func NewLocalImageStore(baseDir string) *LocalImageStore {
	return &LocalImageStore{baseDir: baseDir}
}

func (s *LocalImageStore) Store(_ context.Context, filename string, data []byte) (string, error) {
	img, err := utils.NormalizeProfileImage(data)
	if err != nil {
		return "", err
	}
	return utils.UploadFileToPath(s.baseDir, profileImageDir, profileObjectName(filename), img)
}

func (s *LocalImageStore) Release(_ context.Context, ref string) error {
	return utils.RemoveUploadedFile(s.baseDir, ref)
}

// MinioImageStore keeps profile images in an S3-compatible bucket.
type MinioImageStore struct {
	client   *minio.Client
	bucket   string
	endpoint string
	useSSL   bool
}

func NewMinioImageStore(endpoint, accessKey, secretKey, bucket string, useSSL bool) (*MinioImageStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioImageStore{
		client:   client,
		bucket:   bucket,
		endpoint: endpoint,
		useSSL:   useSSL,
	}, nil
}

func (s *MinioImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *MinioImageStore) Store(ctx context.Context, filename string, data []byte) (string, error) {
	img, err := utils.NormalizeProfileImage(data)
	if err != nil {
		return "", err
	}

	objectName := profileImageDir + "/" + profileObjectName(filename)
	_, err = s.client.PutObject(ctx, s.bucket, objectName, bytes.NewReader(img), int64(len(img)), minio.PutObjectOptions{
		ContentType: "image/jpeg",
	})
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	return s.publicURL(objectName), nil
}

func (s *MinioImageStore) Release(ctx context.Context, ref string) error {
	objectName, ok := s.objectName(ref)
	if !ok {
		return fmt.Errorf("not an object in bucket %s: %s", s.bucket, ref)
	}
	return s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{})
}

func (s *MinioImageStore) publicURL(objectName string) string {
	scheme := "http"
	if s.useSSL {
		scheme = "https"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   s.endpoint,
		Path:   "/" + s.bucket + "/" + objectName,
	}).String()
}

func (s *MinioImageStore) objectName(ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Host != s.endpoint {
		return "", false
	}
	name := strings.TrimPrefix(u.Path, "/"+s.bucket+"/")
	if name == u.Path || name == "" {
		return "", false
	}
	return name, true
}
