package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/esparrago/internal/common"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Drive uploads into Google Drive folders.
type Drive struct {
	api    *drive.Service
	logger *slog.Logger
}

// NewDrive creates the Drive backend. Pass option.WithHTTPClient with the
// client the Sheets service authorized; both scopes are requested there.
func NewDrive(ctx context.Context, logger *slog.Logger, opts ...option.ClientOption) (*Drive, error) {
	api, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Drive{api: api, logger: logger}, nil
}

// Upload creates the file in obj.Folder and grants anyone reader access.
func (d *Drive) Upload(ctx context.Context, obj Object) (File, error) {
	if err := obj.Validate(); err != nil {
		return File{}, err
	}

	meta := &drive.File{Name: obj.Name, MimeType: obj.MimeType}
	if obj.Folder != "" {
		meta.Parents = []string{obj.Folder}
	}

	created, err := d.api.Files.Create(meta).
		Media(bytes.NewReader(obj.Data), googleapi.ContentType(obj.MimeType)).
		Fields("id, webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return File{}, driveError("upload "+obj.Name, err)
	}

	perm := &drive.Permission{Type: "anyone", Role: "reader"}
	if _, err := d.api.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
		return File{}, driveError("share "+obj.Name, err)
	}

	d.logger.Info("uploaded file", "name", obj.Name, "id", created.Id, "folder", obj.Folder, "bytes", len(obj.Data))
	return File{ID: created.Id, WebViewLink: created.WebViewLink, ViewURL: DriveViewURL(created.Id)}, nil
}

func driveError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && (gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500) {
		err = &common.RetryableError{Err: err, Retryable: true}
	}
	return common.Upstream(op, err)
}
