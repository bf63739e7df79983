package sink

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabflow/pkg/errors"
	"github.com/ajitpratap0/tabflow/pkg/logger"
)

var errAborted = errors.New(errors.ErrorTypeInternal, "upload aborted")

// uploader is the part of manager.Uploader the S3 sink uses.
type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

func newS3Uploader(ctx context.Context, opts Options) (uploader, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)
	return manager.NewUploader(client, func(u *manager.Uploader) {
		if opts.PartSize > 0 {
			u.PartSize = opts.PartSize
		}
		if opts.Concurrency > 0 {
			u.Concurrency = opts.Concurrency
		}
	}), nil
}

// s3Writer streams writes into a multipart upload through a pipe.
type s3Writer struct {
	pw   *io.PipeWriter
	done chan error
	loc  Location
}

func newS3Writer(ctx context.Context, up uploader, loc Location, opts Options) *s3Writer {
	pr, pw := io.Pipe()
	w := &s3Writer{pw: pw, done: make(chan error, 1), loc: loc}

	input := &s3.PutObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
		Body:   pr,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}

	go func() {
		out, err := up.Upload(ctx, input)
		// Unblock pending writes if the upload stopped reading.
		pr.CloseWithError(err)
		if err == nil {
			logger.Component("sink").Info("S3 upload complete",
				zap.String("location", loc.String()),
				zap.String("etag", aws.ToString(out.ETag)))
		}
		w.done <- err
	}()
	return w
}

func (w *s3Writer) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		return n, errors.Wrap(err, errors.ErrorTypeConnection, "S3 upload failed").
			WithDetail("location", w.loc.String())
	}
	return n, nil
}

// Abort fails the pipe so the uploader stops reading and abandons the
// upload instead of committing a truncated object.
func (w *s3Writer) Abort(cause error) error {
	if cause == nil {
		cause = errAborted
	}
	w.pw.CloseWithError(cause)
	<-w.done
	return nil
}

// Close finishes the upload and waits for it to commit.
func (w *s3Writer) Close() error {
	w.pw.Close()
	if err := <-w.done; err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "S3 upload failed").
			WithDetail("location", w.loc.String())
	}
	return nil
}
