package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// ArtifactStore persists derived preview artifacts and returns a public URL.
type ArtifactStore interface {
	UploadFile(ctx context.Context, objectName, filePath, contentType string) (string, error)
}

type minioStore struct {
	client   *minio.Client
	bucket   string
	protocol string
	host     string
}

func NewMinioStore(client *minio.Client, bucket, protocol, host string) ArtifactStore {
	return &minioStore{
		client:   client,
		bucket:   bucket,
		protocol: protocol,
		host:     host,
	}
}

func (s *minioStore) UploadFile(ctx context.Context, objectName, filePath, contentType string) (string, error) {
	objectName = strings.ReplaceAll(objectName, "\\", "/")
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectName, err)
	}
	return fmt.Sprintf("%s://%s/%s/%s", s.protocol, s.host, s.bucket, objectName), nil
}
