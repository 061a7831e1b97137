package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BerylCAtieno/letterhead-merger/internal/models"
	"github.com/BerylCAtieno/letterhead-merger/internal/utils"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

type driveStore struct {
	service *drive.Service
}

// NewDriveStore builds a Drive client from a service account credentials
// file. Unreadable or malformed credentials fail here.
func NewDriveStore(ctx context.Context, credentialsFile string) (Store, error) {
	creds, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read drive credentials: %w", err)
	}

	service, err := drive.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(drive.DriveScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive client: %w", err)
	}

	// Rejected or revoked credentials surface on the first authorised call.
	if _, err := service.About.Get().Fields("user").Context(ctx).Do(); err != nil {
		return nil, driveFetchError("authenticate", "", err)
	}

	return &driveStore{service: service}, nil
}

func (d *driveStore) List(ctx context.Context, folderID string, mimeTypes []string) ([]models.SourceFile, error) {
	query := buildDriveQuery(folderID, mimeTypes)

	var files []models.SourceFile
	err := d.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, mimeType)").
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				files = append(files, models.SourceFile{ID: f.Id, Name: f.Name, MimeType: f.MimeType})
			}
			return nil
		})
	if err != nil {
		return nil, driveFetchError("list", folderID, err)
	}

	return files, nil
}

func (d *driveStore) Download(ctx context.Context, fileID string) (*bytes.Reader, error) {
	resp, err := d.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, driveFetchError("download", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, driveFetchError("download", fileID, err)
	}

	return bytes.NewReader(data), nil
}

func (d *driveStore) Upload(ctx context.Context, data io.Reader, filename, folderID, contentType string) (string, error) {
	file, err := d.service.Files.Create(&drive.File{
		Name:    filename,
		Parents: []string{folderID},
	}).
		Media(data, googleapi.ContentType(contentType)).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", driveFetchError("upload", filename, err)
	}

	return file.Id, nil
}

// buildDriveQuery selects non-trashed children of folderID, optionally
// restricted to any of mimeTypes.
func buildDriveQuery(folderID string, mimeTypes []string) string {
	query := fmt.Sprintf("'%s' in parents and trashed = false", escapeQuery(folderID))
	if len(mimeTypes) == 0 {
		return query
	}

	clauses := make([]string, 0, len(mimeTypes))
	for _, mt := range mimeTypes {
		clauses = append(clauses, fmt.Sprintf("mimeType='%s'", escapeQuery(mt)))
	}

	return query + " and (" + strings.Join(clauses, " or ") + ")"
}

func escapeQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}

func driveFetchError(op, fileID string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		body := apiErr.Message
		if body == "" {
			body = apiErr.Body
		}
		return &utils.FetchError{Op: op, FileID: fileID, StatusCode: apiErr.Code, Body: body}
	}
	return &utils.FetchError{Op: op, FileID: fileID, Err: err}
}
