package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/config"
	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const trashSegment = ".trash"

// s3Store maps folders onto key prefixes of a single bucket. A file id is the
// full object key.
type s3Store struct {
	client     *minio.Client
	bucketName string
}

func NewS3Storage(ctx context.Context, cfg *config.Config) (Store, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		Secure: cfg.S3UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	// Fail on bad credentials or a missing bucket now rather than on first use.
	exists, err := client.BucketExists(ctx, cfg.S3BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.S3BucketName)
	}

	return &s3Store{
		client:     client,
		bucketName: cfg.S3BucketName,
	}, nil
}

func (s *s3Store) List(ctx context.Context, folderID string, mimeTypes []string) ([]models.SourceFile, error) {
	prefix := folderPrefix(folderID)

	// Stops the lister goroutine when returning early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var files []models.SourceFile
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    false,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, toFetchError("list", folderID, obj.Err)
		}
		if obj.IsDeleteMarker || isTrashed(obj.Key) || strings.HasSuffix(obj.Key, "/") {
			continue
		}

		file := objectToSourceFile(obj)
		if !matchesMime(file.MimeType, mimeTypes) {
			continue
		}
		files = append(files, file)
	}

	return files, nil
}

func (s *s3Store) Download(ctx context.Context, fileID string) (*bytes.Reader, error) {
	object, err := s.client.GetObject(ctx, s.bucketName, fileID, minio.GetObjectOptions{})
	if err != nil {
		return nil, toFetchError("download", fileID, err)
	}
	defer object.Close()

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(object); err != nil {
		return nil, toFetchError("download", fileID, err)
	}

	return bytes.NewReader(buf.Bytes()), nil
}

func (s *s3Store) Upload(ctx context.Context, data io.Reader, filename, folderID, contentType string) (string, error) {
	key := folderPrefix(folderID) + filename

	_, err := s.client.PutObject(ctx, s.bucketName, key, data, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", toFetchError("upload", key, err)
	}

	return key, nil
}

func folderPrefix(folderID string) string {
	folderID = strings.Trim(folderID, "/")
	if folderID == "" {
		return ""
	}
	return folderID + "/"
}

func isTrashed(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == trashSegment {
			return true
		}
	}
	return false
}

func objectToSourceFile(obj minio.ObjectInfo) models.SourceFile {
	mimeType := obj.ContentType
	if mimeType == "" {
		mimeType = obj.UserMetadata["content-type"]
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		if byExt := mimeFromExtension(obj.Key); byExt != "" {
			mimeType = byExt
		}
	}

	return models.SourceFile{
		ID:       obj.Key,
		Name:     path.Base(obj.Key),
		MimeType: mimeType,
	}
}

func toFetchError(op, fileID string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == 0 {
		return &utils.FetchError{Op: op, FileID: fileID, Err: err}
	}
	return &utils.FetchError{
		Op:         op,
		FileID:     fileID,
		StatusCode: resp.StatusCode,
		Body:       resp.Code + ": " + resp.Message,
	}
}
