package filesvc

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/pkg/errors"

	"github.com/trezcool/backoffice/core"
	"github.com/trezcool/backoffice/core/admission"
)

type attrsFunc func(ctx context.Context, object string) (*storage.ObjectAttrs, error)

// GCSResolver resolves uploaded objects of a Cloud Storage bucket into FileRefs.
// It reads metadata only; upload and download stay with the storage service.
type GCSResolver struct {
	bucket string
	attrs  attrsFunc
}

var _ admission.FileResolver = (*GCSResolver)(nil)

func NewGCSResolver(client *storage.Client, bucket string) *GCSResolver {
	handle := client.Bucket(bucket)
	return &GCSResolver{
		bucket: bucket,
		attrs: func(ctx context.Context, object string) (*storage.ObjectAttrs, error) {
			return handle.Object(object).Attrs(ctx)
		},
	}
}

func (r *GCSResolver) Resolve(ctx context.Context, object string) (admission.FileRef, error) {
	attrs, err := r.attrs(ctx, object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return admission.FileRef{}, core.NewNotFoundError("file", object)
		}
		return admission.FileRef{}, errors.Wrap(err, "reading object attributes")
	}
	return admission.FileRef{
		URL:        fmt.Sprintf("gs://%s/%s", r.bucket, attrs.Name),
		Size:       attrs.Size,
		UploadedAt: attrs.Created.UTC(),
	}, nil
}
