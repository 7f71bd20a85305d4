package storage

import (
	"bytes"
	"context"
	"fmt"

	"helpdesk/internal/model"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryStore implements AttachmentStore against the Cloudinary API.
type CloudinaryStore struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore parses a cloudinary:// URL and returns a ready store.
func NewCloudinaryStore(cloudinaryURL, folder string) (*CloudinaryStore, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: parse url: %w", err)
	}
	return &CloudinaryStore{cld: cld, folder: folder}, nil
}

// Upload pushes the file under the configured folder. The public_id is
// derived from the original filename, keeping the extension so that raw
// documents stay downloadable.
func (s *CloudinaryStore) Upload(ctx context.Context, filename string, content []byte) (model.Attachment, error) {
	params := uploader.UploadParams{
		Folder:       s.folder,
		PublicID:     filename,
		ResourceType: ResourceTypeFor(filename),
	}

	var result *uploader.UploadResult
	err := withRetry(ctx, "upload", func(ctx context.Context) error {
		resp, err := s.cld.Upload.Upload(ctx, bytes.NewReader(content), params)
		if err != nil {
			return err
		}
		if resp.Error.Message != "" {
			return fmt.Errorf("cloudinary: %s", resp.Error.Message)
		}
		result = resp
		return nil
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("cloudinary: upload %q: %w", filename, err)
	}
	return model.Attachment{URL: result.SecureURL, PublicID: result.PublicID}, nil
}

// Delete destroys the remote object. The resource-type hint is derived from
// the public_id's extension — raw documents are invisible to an "image"
// destroy call. A "not found" result counts as success: the object is
// already gone and the local reference can be dropped.
func (s *CloudinaryStore) Delete(ctx context.Context, publicID string) error {
	params := uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: ResourceTypeFor(publicID),
	}

	return withRetry(ctx, "destroy", func(ctx context.Context) error {
		resp, err := s.cld.Upload.Destroy(ctx, params)
		if err != nil {
			return err
		}
		if resp.Result != "ok" && resp.Result != "not found" {
			return fmt.Errorf("cloudinary: destroy %q: %s", publicID, resp.Result)
		}
		return nil
	})
}
