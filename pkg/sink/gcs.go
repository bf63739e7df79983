package sink

import (
	"context"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/tabflow/pkg/errors"
)

// gcsWriter owns the client so Close can release it after the commit.
// Cancelling the writer's context before Close abandons the object.
type gcsWriter struct {
	*storage.Writer
	client *storage.Client
	cancel context.CancelFunc
	loc    Location
}

func openGCS(ctx context.Context, loc Location, opts Options) (Writer, error) {
	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to initialize GCS client")
	}

	wctx, cancel := context.WithCancel(ctx)
	w := client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(wctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	return &gcsWriter{Writer: w, client: client, cancel: cancel, loc: loc}, nil
}

func (w *gcsWriter) Close() error {
	err := w.Writer.Close()
	w.cancel()
	if cerr := w.client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "GCS upload failed").
			WithDetail("location", w.loc.String())
	}
	return nil
}

func (w *gcsWriter) Abort(error) error {
	w.cancel()
	// Close after cancel reports the cancellation and commits nothing.
	_ = w.Writer.Close()
	return w.client.Close()
}
