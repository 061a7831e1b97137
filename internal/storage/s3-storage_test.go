package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BerylCAtieno/letterhead-merger/internal/utils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestS3Store(t *testing.T, handler http.HandlerFunc) *s3Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := minio.New(strings.TrimPrefix(srv.URL, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4("key", "secret", ""),
		Secure: false,
		Region: "us-east-1",
	})
	require.NoError(t, err)

	return &s3Store{client: client, bucketName: "letterheads"}
}

func TestS3Store_ListErrorIsFetchError(t *testing.T) {
	store := newTestS3Store(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<Error><Code>AccessDenied</Code><Message>Access Denied</Message>` +
			`<BucketName>letterheads</BucketName><Resource>/letterheads</Resource><RequestId>1</RequestId></Error>`))
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for i := 0; i < 3; i++ {
		_, err := store.List(ctx, "heads", nil)

		var fetchErr *utils.FetchError
		require.True(t, errors.As(err, &fetchErr))
		assert.Equal(t, http.StatusForbidden, fetchErr.StatusCode)
		assert.Contains(t, fetchErr.Body, "AccessDenied")
	}
	assert.NoError(t, ctx.Err(), "listing must return as soon as the first error arrives")
}

func TestS3Store_ListSkipsTrashAndFolders(t *testing.T) {
	store := newTestS3Store(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>` +
			`<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">` +
			`<Name>letterheads</Name><Prefix>heads/</Prefix><KeyCount>3</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>` +
			`<Contents><Key>heads/Acme Corp.pdf</Key><Size>10</Size></Contents>` +
			`<Contents><Key>heads/notes.txt</Key><Size>4</Size></Contents>` +
			`<Contents><Key>heads/.trash/Old.pdf</Key><Size>10</Size></Contents>` +
			`</ListBucketResult>`))
	})

	files, err := store.List(context.Background(), "heads", []string{"application/pdf"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "heads/Acme Corp.pdf", files[0].ID)
	assert.Equal(t, "Acme Corp.pdf", files[0].Name)
}
