// Package backup exports the gallery to portable BSON archives and restores
// them, including dumps taken from the legacy MongoDB deployment.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/drawing-gallery/core/internal/config"
	"github.com/drawing-gallery/core/internal/modules/storage/media"
	"github.com/drawing-gallery/core/internal/pkg/apperror"
	"github.com/drawing-gallery/core/internal/pkg/cron"
	"github.com/drawing-gallery/core/internal/pkg/metrics"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrUploadDisabled is returned when an upload is requested without a bucket.
var ErrUploadDisabled = errors.New("backup: object storage is not configured")

type Service struct {
	db     *gorm.DB
	dir    string
	cfg    config.BackupConfig
	store  media.ObjectStore
	logger *zap.Logger
	now    func() time.Time
}

// NewService stores archives under dir. store may be nil.
func NewService(db *gorm.DB, dir string, cfg config.BackupConfig, store media.ObjectStore, logger *zap.Logger) *Service {
	if cfg.Keep <= 0 {
		cfg.Keep = defaultKeep
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, dir: dir, cfg: cfg, store: store, logger: logger, now: time.Now}
}

// Create writes a new archive to the backup directory, prunes old ones and
// uploads it when configured.
func (s *Service) Create(ctx context.Context) (*Item, error) {
	item, err := s.create(ctx)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}
	metrics.BackupsTotal.WithLabelValues("success").Inc()
	return item, nil
}

func (s *Service) create(ctx context.Context) (*Item, error) {
	var buf bytes.Buffer
	if err := s.Export(ctx, &buf); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, err
	}

	now := s.now()
	filename := filenamePrefix + now.Format(filenameLayout) + ".zip"
	if err := os.WriteFile(filepath.Join(s.dir, filename), buf.Bytes(), 0o644); err != nil {
		return nil, err
	}
	s.logger.Info("backup created", zap.String("file", filename), zap.Int("bytes", buf.Len()))

	if err := s.prune(); err != nil {
		s.logger.Warn("backup prune failed", zap.Error(err))
	}

	if s.cfg.Upload && s.store != nil {
		key := renderObjectKey(s3KeyTemplate, filename, now)
		if err := s.store.Put(ctx, key, "application/zip", bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
			return nil, fmt.Errorf("upload backup: %w", err)
		}
		s.logger.Info("backup uploaded", zap.String("key", key))
	}

	return &Item{Filename: filename, Size: int64(buf.Len()), CreatedAt: now}, nil
}

// Upload pushes an existing archive to object storage and returns its key.
func (s *Service) Upload(ctx context.Context, filename string) (string, error) {
	if s.store == nil {
		return "", ErrUploadDisabled
	}
	f, size, err := s.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	createdAt := s.now()
	if info, err := f.Stat(); err == nil {
		createdAt = info.ModTime()
	}
	key := renderObjectKey(s3KeyTemplate, filepath.Base(f.Name()), createdAt)
	if err := s.store.Put(ctx, key, "application/zip", f, size); err != nil {
		return "", fmt.Errorf("upload backup: %w", err)
	}
	return key, nil
}

// List returns the archives in the backup directory, newest first.
func (s *Service) List() ([]Item, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Item{}, nil
	}
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isArchiveName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, Item{Filename: e.Name(), Size: info.Size(), CreatedAt: info.ModTime()})
	}
	// The timestamp in the name sorts lexically.
	sort.Slice(items, func(i, j int) bool { return items[i].Filename > items[j].Filename })
	return items, nil
}

// Open returns a reader for one archive and its size.
func (s *Service) Open(filename string) (*os.File, int64, error) {
	path, err := s.path(filename)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, apperror.ErrNotFound
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// RestoreFile restores from an archive in the backup directory.
func (s *Service) RestoreFile(ctx context.Context, filename string) (RestoreStats, error) {
	f, size, err := s.Open(filename)
	if err != nil {
		return RestoreStats{}, err
	}
	defer f.Close()
	return s.Restore(ctx, f, size)
}

// Delete removes one archive. Missing files are not an error.
func (s *Service) Delete(filename string) error {
	path, err := s.path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Job returns the periodic backup task, or false when backups are disabled.
func (s *Service) Job() (cron.Job, bool) {
	if !s.cfg.Enable || s.cfg.Interval <= 0 {
		return cron.Job{}, false
	}
	return cron.Job{
		Name:        "backup",
		Description: "Export posts, categories and settings to a BSON archive",
		Interval:    s.cfg.Interval,
		Fn: func(ctx context.Context) error {
			_, err := s.Create(ctx)
			return err
		},
	}, true
}

func (s *Service) prune() error {
	items, err := s.List()
	if err != nil {
		return err
	}
	for _, item := range items[min(len(items), s.cfg.Keep):] {
		if err := os.Remove(filepath.Join(s.dir, item.Filename)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		s.logger.Info("backup pruned", zap.String("file", item.Filename))
	}
	return nil
}

func (s *Service) path(filename string) (string, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name != filename || !isArchiveName(name) {
		return "", apperror.Invalid("filename", "invalid backup filename")
	}
	return filepath.Join(s.dir, name), nil
}

func isArchiveName(name string) bool {
	return strings.HasPrefix(name, filenamePrefix) && strings.HasSuffix(name, ".zip")
}

func renderObjectKey(template, filename string, now time.Time) string {
	replacer := strings.NewReplacer(
		"{Y}", now.Format("2006"),
		"{m}", now.Format("01"),
		"{d}", now.Format("02"),
		"{filename}", filename,
	)
	key := strings.TrimPrefix(replacer.Replace(template), "/")
	for strings.Contains(key, "//") {
		key = strings.ReplaceAll(key, "//", "/")
	}
	if key == "" {
		return filename
	}
	return key
}
