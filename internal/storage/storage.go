// Package storage opens pipeline inputs and creates outputs on the local
// filesystem or Google Cloud Storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const gcsScheme = "gs://"

// ErrAlreadyClosed is returned when an Output is committed or aborted twice.
var ErrAlreadyClosed = errors.New("output already committed or aborted")

// IOError reports a missing or unreadable input, or an unwritable output.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Output is a pending write. Nothing is visible at the destination until
// Commit succeeds; Abort discards everything written.
type Output interface {
	io.Writer
	Commit() error
	Abort() error
}

// Opener resolves URIs to readers and outputs.
type Opener struct {
	mu         sync.Mutex
	gcs        *gcs.Client
	gcsOptions []option.ClientOption
	ownsClient bool
	maxRetries uint64
	logger     zerolog.Logger
}

// Option configures an Opener.
type Option func(*Opener)

// WithGCSClient uses c for gs:// URIs instead of creating a client lazily.
func WithGCSClient(c *gcs.Client) Option {
	return func(o *Opener) { o.gcs = c }
}

// WithGCSOptions passes client options to the lazily created GCS client.
func WithGCSOptions(opts ...option.ClientOption) Option {
	return func(o *Opener) { o.gcsOptions = append(o.gcsOptions, opts...) }
}

// WithMaxRetries sets the number of upload retries for gs:// outputs.
func WithMaxRetries(n uint64) Option {
	return func(o *Opener) { o.maxRetries = n }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *Opener) { o.logger = l }
}

// NewOpener creates an Opener.
func NewOpener(opts ...Option) *Opener {
	o := &Opener{maxRetries: 3, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open returns a reader for uri. Failures are *IOError.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if IsGCS(uri) {
		return o.openGCS(ctx, uri)
	}
	return openLocal(uri)
}

// Create returns a pending Output for uri. Failures are *IOError.
func (o *Opener) Create(ctx context.Context, uri string) (Output, error) {
	if IsGCS(uri) {
		return o.createGCS(ctx, uri)
	}
	return createLocal(uri)
}

// Close releases the GCS client if the Opener created it.
func (o *Opener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs != nil && o.ownsClient {
		err := o.gcs.Close()
		o.gcs = nil
		return err
	}
	return nil
}

// IsGCS reports whether uri names a Cloud Storage object.
func IsGCS(uri string) bool {
	return strings.HasPrefix(uri, gcsScheme)
}

// ParseGCS splits "gs://bucket/path/to/object" into bucket and object.
func ParseGCS(uri string) (bucket, object string, err error) {
	if !IsGCS(uri) {
		return "", "", fmt.Errorf("not a gs:// URI: %q", uri)
	}
	rest := strings.TrimPrefix(uri, gcsScheme)
	bucket, object, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || object == "" {
		return "", "", fmt.Errorf("invalid gs:// URI %q: want gs://bucket/object", uri)
	}
	return bucket, object, nil
}

func (o *Opener) client(ctx context.Context) (*gcs.Client, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.gcs != nil {
		return o.gcs, nil
	}
	c, err := gcs.NewClient(ctx, o.gcsOptions...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	o.gcs = c
	o.ownsClient = true
	return c, nil
}
