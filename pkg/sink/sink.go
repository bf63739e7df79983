// Package sink opens output destinations named by URL: a local path,
// s3://bucket/key or gs://bucket/object. The object is committed when Close
// returns nil; Abort discards everything written so far and nothing is
// left at the location.
package sink

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
)

// Scheme identifies the storage backend of a Location.
type Scheme string

const (
	SchemeFile Scheme = "file"
	SchemeS3   Scheme = "s3"
	SchemeGCS  Scheme = "gs"
)

// ArrowContentType is the media type of Arrow IPC files.
const ArrowContentType = "application/vnd.apache.arrow.file"

// Location is a parsed output URL.
type Location struct {
	Scheme Scheme
	Bucket string
	// Key is the object key for remote schemes and the file path otherwise.
	Key string
}

func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return fmt.Sprintf("%s://%s/%s", l.Scheme, l.Bucket, l.Key)
}

// ParseLocation parses raw. Strings without a scheme are local paths.
func ParseLocation(raw string) (Location, error) {
	if raw == "" {
		return Location{}, errors.New(errors.ErrorTypeConfig, "output path is empty")
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: SchemeFile, Key: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid output URL")
	}
	switch Scheme(u.Scheme) {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS, "gcs":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.New(errors.ErrorTypeConfig,
				fmt.Sprintf("output URL %s needs a bucket and an object key", raw))
		}
		s := Scheme(u.Scheme)
		if s == "gcs" {
			s = SchemeGCS
		}
		return Location{Scheme: s, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, errors.New(errors.ErrorTypeConfig,
			fmt.Sprintf("unsupported output scheme %q", u.Scheme))
	}
}

// Options tune remote uploads.
type Options struct {
	ContentType string
	// Region overrides the AWS region from the environment.
	Region string
	// PartSize and Concurrency configure the S3 multipart uploader.
	PartSize    int64
	Concurrency int
	// CredentialsFile is a GCS service account key file.
	CredentialsFile string
}

// Writer is an object being written to a sink. Exactly one of Close or
// Abort must be called.
type Writer interface {
	io.WriteCloser
	// Abort abandons the object. cause is passed to a pending upload so it
	// stops reading.
	Abort(cause error) error
}

// Open returns a writer for the object at raw.
func Open(ctx context.Context, raw string, opts Options) (Writer, error) {
	loc, err := ParseLocation(raw)
	if err != nil {
		return nil, err
	}
	log := logger.Component("sink")
	log.Debug("opening sink", zap.String("location", loc.String()))

	switch loc.Scheme {
	case SchemeS3:
		up, err := newS3Uploader(ctx, opts)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to initialize S3 client")
		}
		return newS3Writer(ctx, up, loc, opts), nil
	case SchemeGCS:
		return openGCS(ctx, loc, opts)
	default:
		return openFile(loc.Key)
	}
}

// fileWriter writes to a temporary file next to the target and renames it
// into place on Close, so a partial file never appears at the path.
type fileWriter struct {
	*os.File
	path string
}

func openFile(path string) (Writer, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
				WithDetail("path", path)
		}
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", path)
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to set output file mode").
			WithDetail("path", path)
	}
	return &fileWriter{File: f, path: path}, nil
}

func (w *fileWriter) Close() error {
	if err := w.File.Close(); err != nil {
		_ = os.Remove(w.Name())
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close output file").
			WithDetail("path", w.path)
	}
	if err := os.Rename(w.Name(), w.path); err != nil {
		_ = os.Remove(w.Name())
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move output file into place").
			WithDetail("path", w.path)
	}
	return nil
}

func (w *fileWriter) Abort(error) error {
	_ = w.File.Close()
	if err := os.Remove(w.Name()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to remove partial output").
			WithDetail("path", w.path)
	}
	return nil
}
