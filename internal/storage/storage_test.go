package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	gcs "cloud.google.com/go/storage"
	"github.com/fsouza/fake-gcs-server/fakestorage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func TestParseGCS(t *testing.T) {
	tests := []struct {
		uri        string
		wantBucket string
		wantObject string
		wantErr    bool
	}{
		{"gs://bank/raw/umsatz.csv", "bank", "raw/umsatz.csv", false},
		{"gs://bank/a", "bank", "a", false},
		{"gs://bank", "", "", true},
		{"gs://bank/", "", "", true},
		{"gs:///obj", "", "", true},
		{"/tmp/local.csv", "", "", true},
	}
	for _, tt := range tests {
		bucket, object, err := ParseGCS(tt.uri)
		if tt.wantErr {
			assert.Error(t, err, "uri %q", tt.uri)
			continue
		}
		require.NoError(t, err, "uri %q", tt.uri)
		assert.Equal(t, tt.wantBucket, bucket)
		assert.Equal(t, tt.wantObject, object)
	}
}

func TestLocal_OpenMissing(t *testing.T) {
	o := NewOpener()
	_, err := o.Open(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)

	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr))
	assert.Equal(t, "open", ioErr.Op)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLocal_CommitWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "processed.csv")

	o := NewOpener()
	out, err := o.Create(context.Background(), path)
	require.NoError(t, err)

	_, err = out.Write([]byte("date;amount\n"))
	require.NoError(t, err)

	// Nothing at the destination before Commit.
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, out.Commit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date;amount\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file should be gone")
}

func TestLocal_AbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "processed.csv")

	o := NewOpener()
	out, err := o.Create(context.Background(), path)
	require.NoError(t, err)
	_, err = out.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, out.Abort())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_CommitReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	out, err := NewOpener().Create(context.Background(), path)
	require.NoError(t, err)
	_, err = out.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, out.Commit())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestLocal_DoubleCommit(t *testing.T) {
	out, err := NewOpener().Create(context.Background(), filepath.Join(t.TempDir(), "x.csv"))
	require.NoError(t, err)
	require.NoError(t, out.Commit())
	assert.ErrorIs(t, out.Commit(), ErrAlreadyClosed)
	assert.ErrorIs(t, out.Abort(), ErrAlreadyClosed)
}

type gcsHelper struct {
	server *fakestorage.Server
	opener *Opener
}

func newGCSHelper(t *testing.T, objects ...fakestorage.Object) *gcsHelper {
	t.Helper()

	server, err := fakestorage.NewServerWithOptions(fakestorage.Options{
		NoListener:     true,
		InitialObjects: objects,
	})
	require.NoError(t, err)
	t.Cleanup(server.Stop)

	if len(objects) == 0 {
		server.CreateBucketWithOpts(fakestorage.CreateBucketOpts{Name: "bank"})
	}

	client, err := gcs.NewClient(
		context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.HTTPClient()))
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return &gcsHelper{server: server, opener: NewOpener(WithGCSClient(client), WithMaxRetries(0))}
}

func TestGCS_Open(t *testing.T) {
	h := newGCSHelper(t, fakestorage.Object{
		ObjectAttrs: fakestorage.ObjectAttrs{BucketName: "bank", Name: "raw/umsatz.csv"},
		Content:     []byte("05.03.2024;REWE;05.03.2024;-12,50;EUR;x\n"),
	})

	rc, err := h.opener.Open(context.Background(), "gs://bank/raw/umsatz.csv")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(data), "REWE")
}

func TestGCS_OpenMissing(t *testing.T) {
	h := newGCSHelper(t)

	_, err := h.opener.Open(context.Background(), "gs://bank/nope.csv")
	require.Error(t, err)

	var ioErr *IOError
	assert.True(t, errors.As(err, &ioErr))
}

func TestGCS_CommitUploads(t *testing.T) {
	h := newGCSHelper(t)

	out, err := h.opener.Create(context.Background(), "gs://bank/processed/out.csv")
	require.NoError(t, err)
	_, err = out.Write([]byte("date;amount\n"))
	require.NoError(t, err)
	require.NoError(t, out.Commit())

	obj, err := h.server.GetObject("bank", "processed/out.csv")
	require.NoError(t, err)
	assert.Equal(t, "date;amount\n", string(obj.Content))
}

func TestGCS_AbortUploadsNothing(t *testing.T) {
	h := newGCSHelper(t)

	out, err := h.opener.Create(context.Background(), "gs://bank/processed/out.csv")
	require.NoError(t, err)
	_, err = out.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, out.Abort())

	_, err = h.server.GetObject("bank", "processed/out.csv")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv", contentType("a/b.csv"))
	assert.Equal(t, "application/json", contentType("b.json"))
	assert.Equal(t, "application/octet-stream", contentType("b"))
}
