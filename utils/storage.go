// agora/utils/storage.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const storageTimeout = 30 * time.Second

// LocalStorage keeps avatars on disk under UploadDir, served at /uploads/.
type LocalStorage struct {
	UploadDir string
}

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create upload directory %s: %w", dir, err)
	}
	return &LocalStorage{UploadDir: dir}, nil
}

func (ls *LocalStorage) SaveFile(filename string, data []byte, contentType string) (string, error) {
	fullPath := filepath.Join(ls.UploadDir, filepath.Base(filename))
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", err
	}
	return "/uploads/" + filepath.Base(filename), nil
}

func (ls *LocalStorage) DeleteFile(path string) error {
	if !strings.HasPrefix(path, "/uploads/") {
		return nil
	}
	err := os.Remove(filepath.Join(ls.UploadDir, filepath.Base(path)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// S3Storage keeps avatars in an S3-compatible bucket.
type S3Storage struct {
	Client     *minio.Client
	BucketName string
	PublicURL  string
}

// S3Options mirrors the AGORA_S3_* settings.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	PublicURL string
	UseSSL    bool
}

// NewS3Storage connects to the bucket and checks that it exists.
func NewS3Storage(ctx context.Context, opts S3Options) (*S3Storage, error) {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(opts.Endpoint, "https://"), "http://")

	var creds *credentials.Credentials
	if opts.AccessKey == "" || opts.SecretKey == "" {
		creds = credentials.NewIAM("")
	} else {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, storageTimeout)
	defer cancel()
	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", opts.Bucket)
	}

	publicURL := opts.PublicURL
	if publicURL == "" {
		protocol := "http"
		if opts.UseSSL {
			protocol = "https"
		}
		publicURL = fmt.Sprintf("%s://%s.%s", protocol, opts.Bucket, endpoint)
	}

	return &S3Storage{
		Client:     client,
		BucketName: opts.Bucket,
		PublicURL:  strings.TrimSuffix(publicURL, "/"),
	}, nil
}

func (s3 *S3Storage) objectKey(filename string) string {
	return "avatars/" + filepath.Base(filename)
}

func (s3 *S3Storage) SaveFile(filename string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	key := s3.objectKey(filename)
	_, err := s3.Client.PutObject(ctx, s3.BucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return s3.PublicURL + "/" + key, nil
}

func (s3 *S3Storage) DeleteFile(path string) error {
	key, ok := strings.CutPrefix(path, s3.PublicURL+"/")
	if !ok || key == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), storageTimeout)
	defer cancel()
	return s3.Client.RemoveObject(ctx, s3.BucketName, key, minio.RemoveObjectOptions{})
}
