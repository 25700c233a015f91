// Package blob stores uploaded documents and images and hands back a link that
// anyone can open.
package blob

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/Veraticus/esparrago/internal/common"
)

// Object is a file to upload. Folder is backend specific: a Drive folder id or
// a GCS object prefix.
type Object struct {
	Name     string
	MimeType string
	Folder   string
	Data     []byte
}

// File is an uploaded object. WebViewLink opens the file in the backend's
// viewer; ViewURL serves the raw content, suitable for an <img> source.
type File struct {
	ID          string
	WebViewLink string
	ViewURL     string
}

// Store uploads objects and makes them publicly readable.
type Store interface {
	Upload(ctx context.Context, obj Object) (File, error)
}

// Validate checks the object and fills MimeType from the content when blank.
func (o *Object) Validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return &common.FieldError{Kind: common.ErrMissingField, Field: "name"}
	}
	if len(o.Data) == 0 {
		return &common.FieldError{Kind: common.ErrMissingField, Field: "data", Detail: o.Name}
	}
	if o.MimeType == "" {
		o.MimeType = DetectMimeType(o.Name, o.Data)
	}
	return nil
}

// DetectMimeType sniffs the content type, correcting the zip container
// formats Office files share.
func DetectMimeType(name string, data []byte) string {
	mime := http.DetectContentType(data)
	if mime == "application/zip" {
		switch strings.ToLower(path.Ext(name)) {
		case ".docx":
			return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		case ".xlsx":
			return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
	}
	return mime
}

// DriveViewURL is the direct image link for a Drive file id.
func DriveViewURL(id string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=view&id=%s", id)
}
