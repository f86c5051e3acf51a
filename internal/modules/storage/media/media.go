// Package media uploads drawings, thumbnails and printable PDFs to the media
// host. The returned public URL is what posts and categories store.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/metrics"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var allowedTypes = []string{
	"image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml", "application/pdf",
}

// Upload is the result of a stored file.
type Upload struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type Service struct {
	store    ObjectStore
	prefix   string
	maxBytes int64
	now      func() time.Time
}

// NewService creates the upload service. store may be nil, in which case
// every upload fails with a validation error.
func NewService(store ObjectStore, prefix string, maxUploadMB int) *Service {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &Service{
		store:    store,
		prefix:   strings.Trim(prefix, "/"),
		maxBytes: int64(maxUploadMB) << 20,
		now:      time.Now,
	}
}

// Enabled reports whether a media host is configured.
func (s *Service) Enabled() bool { return s.store != nil }

// Upload sniffs the content type of r, rejects anything that is not an image
// or PDF, and stores it under prefix/YYYY/MM/<uuid><ext>.
func (s *Service) Upload(ctx context.Context, r io.Reader) (*Upload, error) {
	if s.store == nil {
		return nil, apperror.Invalid("file", "media uploads are not configured")
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, apperror.Invalid("file", "file is empty")
	}
	if int64(len(data)) > s.maxBytes {
		return nil, apperror.Invalid("file", "file exceeds %d MB", s.maxBytes>>20)
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedTypes...) {
		return nil, apperror.Invalid("file", "unsupported file type %s", mt.String())
	}
	contentType := strings.SplitN(mt.String(), ";", 2)[0]

	key := s.objectKey(mt.Extension())
	if err := s.store.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data))); err != nil {
		return nil, apperror.Storage("upload media", err)
	}
	metrics.MediaUploadBytes.Add(float64(len(data)))

	return &Upload{Key: key, URL: s.store.URL(key), ContentType: contentType, Size: int64(len(data))}, nil
}

// Delete removes an object previously returned by Upload.
func (s *Service) Delete(ctx context.Context, key string) error {
	if s.store == nil {
		return apperror.Invalid("key", "media uploads are not configured")
	}
	key = strings.TrimLeft(key, "/")
	if key == "" || strings.Contains(key, "..") || (s.prefix != "" && !strings.HasPrefix(key, s.prefix+"/")) {
		return apperror.Invalid("key", "invalid media key")
	}
	return apperror.Storage("delete media", s.store.Delete(ctx, key))
}

func (s *Service) objectKey(ext string) string {
	name := uuid.NewString() + ext
	return path.Join(s.prefix, s.now().UTC().Format("2006/01"), name)
}
