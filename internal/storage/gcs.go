package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/cenkalti/backoff/v4"

	"github.com/cleared-dev/umsatz/internal/logging"
)

func (o *Opener) openGCS(ctx context.Context, uri string) (io.ReadCloser, error) {
	bucket, object, err := ParseGCS(uri)
	if err != nil {
		return nil, &IOError{Op: "open", Path: uri, Err: err}
	}
	c, err := o.client(ctx)
	if err != nil {
		return nil, &IOError{Op: "open", Path: uri, Err: err}
	}
	rc, err := c.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, &IOError{Op: "open", Path: uri, Err: err}
	}
	return rc, nil
}

// gcsOutput buffers the object in memory and uploads it on Commit.
type gcsOutput struct {
	ctx    context.Context
	opener *Opener
	uri    string
	bucket string
	object string
	buf    bytes.Buffer
	done   bool
}

func (o *Opener) createGCS(ctx context.Context, uri string) (Output, error) {
	bucket, object, err := ParseGCS(uri)
	if err != nil {
		return nil, &IOError{Op: "create", Path: uri, Err: err}
	}
	return &gcsOutput{ctx: ctx, opener: o, uri: uri, bucket: bucket, object: object}, nil
}

func (g *gcsOutput) Write(p []byte) (int, error) {
	if g.done {
		return 0, ErrAlreadyClosed
	}
	return g.buf.Write(p)
}

func (g *gcsOutput) Commit() error {
	if g.done {
		return ErrAlreadyClosed
	}
	g.done = true

	c, err := g.opener.client(g.ctx)
	if err != nil {
		return &IOError{Op: "upload", Path: g.uri, Err: err}
	}

	data := g.buf.Bytes()
	attempt := 0
	upload := func() error {
		attempt++
		w := c.Bucket(g.bucket).Object(g.object).NewWriter(g.ctx)
		w.ContentType = contentType(g.object)
		if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
			w.Close()
			return fmt.Errorf("writing object: %w", err)
		}
		if err := w.Close(); err != nil {
			logger := logging.FromContext(g.ctx, g.opener.logger)
			logger.Warn().Err(err).Str("uri", g.uri).Int("attempt", attempt).Msg("upload failed")
			return fmt.Errorf("closing object writer: %w", err)
		}
		return nil
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), g.opener.maxRetries), g.ctx)
	if err := backoff.Retry(upload, b); err != nil {
		return &IOError{Op: "upload", Path: g.uri, Err: err}
	}
	return nil
}

func (g *gcsOutput) Abort() error {
	if g.done {
		return ErrAlreadyClosed
	}
	g.done = true
	g.buf.Reset()
	return nil
}

func contentType(object string) string {
	switch path.Ext(object) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
