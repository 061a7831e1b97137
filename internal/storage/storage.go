package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/config"
	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
	"github.com/gabriel-vasile/mimetype"
)

// Store is the remote file store letterheads and bodies are picked from.
type Store interface {
	// List returns the non-trashed files in folderID whose MIME type is one
	// of mimeTypes. An empty filter matches every file.
	List(ctx context.Context, folderID string, mimeTypes []string) ([]models.SourceFile, error)
	Download(ctx context.Context, fileID string) (*bytes.Reader, error)
	Upload(ctx context.Context, data io.Reader, filename, folderID, contentType string) (string, error)
}

func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendDrive:
		return NewDriveStore(ctx, cfg.DriveCredentialsFile)
	case config.BackendS3:
		return NewS3Storage(ctx, cfg)
	case config.BackendLocal:
		return NewLocalStore(cfg.LocalRoot)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Resolve looks fileID up in the folder listing and downloads it. Files
// outside folderID or with a MIME type outside mimeTypes are rejected.
func Resolve(ctx context.Context, store Store, folderID, fileID string, mimeTypes []string, maxSize int64) (models.SourceFile, models.RawDocument, error) {
	files, err := store.List(ctx, folderID, mimeTypes)
	if err != nil {
		return models.SourceFile{}, models.RawDocument{}, err
	}

	var ref *models.SourceFile
	for i := range files {
		if files[i].ID == fileID {
			ref = &files[i]
			break
		}
	}
	if ref == nil {
		return models.SourceFile{}, models.RawDocument{}, &utils.FetchError{
			Op:         "resolve",
			FileID:     fileID,
			StatusCode: http.StatusNotFound,
			Body:       fmt.Sprintf("file not found in folder %s", folderID),
		}
	}

	reader, err := store.Download(ctx, ref.ID)
	if err != nil {
		return models.SourceFile{}, models.RawDocument{}, err
	}

	if maxSize > 0 && reader.Size() > maxSize {
		return models.SourceFile{}, models.RawDocument{}, &utils.FetchError{
			Op:         "download",
			FileID:     ref.ID,
			StatusCode: http.StatusRequestEntityTooLarge,
			Body:       fmt.Sprintf("file is %d bytes, limit is %d", reader.Size(), maxSize),
		}
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return models.SourceFile{}, models.RawDocument{}, &utils.FetchError{Op: "download", FileID: ref.ID, Err: err}
	}

	format, err := InferFormat(ref.Name, ref.MimeType, data)
	if err != nil {
		return models.SourceFile{}, models.RawDocument{}, err
	}

	return *ref, models.RawDocument{Name: ref.Name, Format: format, Data: data}, nil
}

// InferFormat sniffs the content first and falls back to the declared MIME
// type and then the file extension.
func InferFormat(name, declared string, data []byte) (models.Format, error) {
	detected := mimetype.Detect(data)
	switch {
	case detected.Is(models.MimePDF):
		return models.FormatPDF, nil
	case detected.Is(models.MimeDOCX):
		return models.FormatDOCX, nil
	}

	if f, ok := models.FormatFromMime(declared); ok {
		return f, nil
	}
	if f, ok := models.FormatFromMime(mimeFromExtension(name)); ok {
		return f, nil
	}
	if strings.HasPrefix(detected.String(), "text/plain") {
		return models.FormatTXT, nil
	}

	return "", fmt.Errorf("unsupported document type %q for %s", detected.String(), name)
}

func mimeFromExtension(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return models.MimePDF
	case ".docx":
		return models.MimeDOCX
	case ".txt":
		return models.MimeTXT
	}
	return ""
}

func matchesMime(mimeType string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, mt := range filter {
		if strings.EqualFold(mt, mimeType) {
			return true
		}
	}
	return false
}
