package blob

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/Veraticus/esparrago/internal/common"
	"google.golang.org/api/option"
)

// GCS uploads into a Cloud Storage bucket. Folder becomes the object prefix.
type GCS struct {
	client *storage.Client
	logger *slog.Logger
	bucket string
}

// NewGCS connects to bucket. Without options the client uses application
// default credentials.
func NewGCS(ctx context.Context, bucket string, logger *slog.Logger, opts ...option.ClientOption) (*GCS, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket: %w", common.ErrMissingConfig)
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, common.Upstream("create gcs client", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GCS{client: client, bucket: bucket, logger: logger}, nil
}

// Upload writes the object with a public-read ACL.
func (g *GCS) Upload(ctx context.Context, obj Object) (File, error) {
	if err := obj.Validate(); err != nil {
		return File{}, err
	}

	name := objectName(obj.Folder, obj.Name)
	wc := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	wc.ContentType = obj.MimeType
	wc.PredefinedACL = "publicRead"

	if _, err := wc.Write(obj.Data); err != nil {
		_ = wc.Close()
		return File{}, common.Upstream("upload "+name, err)
	}
	if err := wc.Close(); err != nil {
		return File{}, common.Upstream("upload "+name, err)
	}

	g.logger.Info("uploaded object", "bucket", g.bucket, "object", name, "bytes", len(obj.Data))
	link := PublicURL(g.bucket, name)
	return File{ID: name, WebViewLink: link, ViewURL: link}, nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// PublicURL is the anonymous download link of a public object.
func PublicURL(bucket, object string) string {
	parts := strings.Split(object, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return "https://storage.googleapis.com/" + bucket + "/" + strings.Join(parts, "/")
}

func objectName(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}
