package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
)

// localStore serves folders as subdirectories of root. File ids are paths
// relative to root using forward slashes.
type localStore struct {
	root string
}

func NewLocalStore(root string) (Store, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("local store root %s is not a directory", root)
	}
	return &localStore{root: root}, nil
}

func (l *localStore) List(ctx context.Context, folderID string, mimeTypes []string) ([]models.SourceFile, error) {
	dir, err := l.resolve(folderID)
	if err != nil {
		return nil, &utils.FetchError{Op: "list", FileID: folderID, StatusCode: http.StatusBadRequest, Err: err}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, localFetchError("list", folderID, err)
	}

	var files []models.SourceFile
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == trashSegment || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		file := models.SourceFile{
			ID:       filepath.ToSlash(filepath.Join(strings.Trim(folderID, "/"), entry.Name())),
			Name:     entry.Name(),
			MimeType: mimeFromExtension(entry.Name()),
		}
		if !matchesMime(file.MimeType, mimeTypes) {
			continue
		}
		files = append(files, file)
	}

	return files, nil
}

func (l *localStore) Download(ctx context.Context, fileID string) (*bytes.Reader, error) {
	path, err := l.resolve(fileID)
	if err != nil {
		return nil, &utils.FetchError{Op: "download", FileID: fileID, StatusCode: http.StatusBadRequest, Err: err}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, localFetchError("download", fileID, err)
	}

	return bytes.NewReader(data), nil
}

func (l *localStore) Upload(ctx context.Context, data io.Reader, filename, folderID, contentType string) (string, error) {
	dir, err := l.resolve(folderID)
	if err != nil {
		return "", &utils.FetchError{Op: "upload", FileID: filename, StatusCode: http.StatusBadRequest, Err: err}
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", localFetchError("upload", filename, err)
	}

	out, err := os.Create(filepath.Join(dir, filepath.Base(filename)))
	if err != nil {
		return "", localFetchError("upload", filename, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, data); err != nil {
		return "", localFetchError("upload", filename, err)
	}

	return filepath.ToSlash(filepath.Join(strings.Trim(folderID, "/"), filepath.Base(filename))), nil
}

// resolve joins id onto root and refuses paths escaping it.
func (l *localStore) resolve(id string) (string, error) {
	path := filepath.Join(l.root, filepath.FromSlash(id))
	rel, err := filepath.Rel(l.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes store root", id)
	}
	return path, nil
}

func localFetchError(op, fileID string, err error) error {
	status := http.StatusInternalServerError
	if errors.Is(err, fs.ErrNotExist) {
		status = http.StatusNotFound
	}
	return &utils.FetchError{Op: op, FileID: fileID, StatusCode: status, Err: err}
}
