package maestros

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Veraticus/esparrago/internal/blob"
	"github.com/Veraticus/esparrago/internal/common"
	"github.com/Veraticus/esparrago/internal/model"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// ThumbnailWidth is the width logos are scaled down to before upload.
const ThumbnailWidth = 200

// Clientes adds logo uploads to the client repository.
type Clientes struct {
	*Repo[model.Cliente]
}

// Logo is an image file supplied for a client.
type Logo struct {
	Name string
	Data []byte
}

// UploadLogo stores a thumbnail of the logo and returns the link to put in Icono.
func (c *Clientes) UploadLogo(ctx context.Context, logo Logo) (string, error) {
	if c.svc.logos == nil {
		return "", fmt.Errorf("logo storage: %w", common.ErrMissingConfig)
	}

	thumb, err := Thumbnail(logo.Data, ThumbnailWidth)
	if err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(logo.Name), filepath.Ext(logo.Name))
	if base == "" || base == "." {
		base = "logo"
	}
	file, err := c.svc.logos.Upload(ctx, blob.Object{
		Name:     fmt.Sprintf("%s-%s.jpg", base, uuid.NewString()[:8]),
		MimeType: "image/jpeg",
		Folder:   c.svc.logosFolder,
		Data:     thumb,
	})
	if err != nil {
		return "", err
	}

	c.svc.logger.Info("client logo uploaded", "file", file.ID, "bytes", len(thumb))
	return file.ViewURL, nil
}

// Thumbnail decodes a JPEG, PNG or GIF image and re-encodes it as a JPEG no
// wider than width.
func Thumbnail(data []byte, width int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &common.FieldError{Kind: common.ErrInvalidFormat, Field: "logo", Detail: err.Error()}
	}

	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
