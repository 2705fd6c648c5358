package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/filestore/internal/core/domain"
	"github.com/99minutos/filestore/internal/core/ports"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type FileService struct {
	repo   ports.FileRepository
	blobs  ports.BlobStore
	logger zerolog.Logger
	now    func() time.Time
	// newKey names a fresh blob; every write gets its own key so uploads
	// sharing a file name never share bytes.
	newKey func() string
}

func NewFileService(repo ports.FileRepository, blobs ports.BlobStore, logger zerolog.Logger) *FileService {
	return &FileService{repo: repo, blobs: blobs, logger: logger, now: time.Now, newKey: uuid.NewString}
}

// Upload stores the bytes first and then the metadata row, removing the
// blob again if the row cannot be written.
func (s *FileService) Upload(ctx context.Context, in ports.UploadInput) (*domain.File, error) {
	name, ext, err := splitFileName(in.OriginalName)
	if err != nil {
		return nil, err
	}

	f := &domain.File{
		Name:       name,
		Extension:  ext,
		MimeType:   mimeOrDefault(in.MimeType),
		UploadDate: s.now().UTC(),
		OwnerID:    in.OwnerID,
		BlobKey:    s.newKey(),
	}

	written, err := s.blobs.Put(ctx, f.BlobKey, in.Body)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", f.FileName(), err)
	}
	f.Size = written

	created, err := s.repo.Create(ctx, f)
	if err != nil {
		s.discardBlob(ctx, f.BlobKey)
		return nil, fmt.Errorf("upload %s: %w", f.FileName(), err)
	}

	s.logger.Info().Str("file_id", created.ID).Str("key", created.BlobKey).Int64("size", created.Size).Msg("file uploaded")
	return created, nil
}

// List returns one page of metadata. Non-positive page or size select the
// defaults; size is capped at maxPageSize.
func (s *FileService) List(ctx context.Context, in ports.ListFilesInput) ([]*domain.File, error) {
	page, size := in.Page, in.Size
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	files, err := s.repo.List(ctx, (page-1)*size, size)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	if files == nil {
		files = []*domain.File{}
	}
	return files, nil
}

func (s *FileService) Get(ctx context.Context, id string) (*domain.File, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FileService) Open(ctx context.Context, id string) (*domain.File, io.ReadCloser, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.blobs.Open(ctx, f.BlobKey)
	if err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			s.logger.Warn().Str("file_id", id).Str("key", f.BlobKey).Msg("metadata without blob")
			return nil, nil, fmt.Errorf("open %s: %w", id, domain.ErrFileNotFound)
		}
		return nil, nil, fmt.Errorf("open %s: %w", id, err)
	}
	return f, rc, nil
}

// Replace swaps the bytes and metadata of an existing file. The new blob
// is written before the old one is removed so a failed write leaves the
// previous version intact.
func (s *FileService) Replace(ctx context.Context, id string, in ports.UploadInput) (*domain.File, error) {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name, ext, err := splitFileName(in.OriginalName)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Name = name
	updated.Extension = ext
	updated.MimeType = mimeOrDefault(in.MimeType)
	updated.BlobKey = s.newKey()

	oldKey, newKey := existing.BlobKey, updated.BlobKey

	written, err := s.blobs.Put(ctx, newKey, in.Body)
	if err != nil {
		return nil, fmt.Errorf("replace %s: %w", id, err)
	}
	updated.Size = written

	if err := s.repo.Update(ctx, &updated); err != nil {
		s.discardBlob(ctx, newKey)
		return nil, fmt.Errorf("replace %s: %w", id, err)
	}

	// The row already points at the new bytes; a leftover old blob is
	// only an orphan.
	s.discardBlob(ctx, oldKey)

	s.logger.Info().Str("file_id", id).Str("old", oldKey).Str("new", newKey).Msg("file replaced")
	return &updated, nil
}

func (s *FileService) Delete(ctx context.Context, id string) error {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}

	if err := s.blobs.Delete(ctx, f.BlobKey); err != nil {
		if errors.Is(err, domain.ErrBlobNotFound) {
			s.logger.Warn().Str("file_id", id).Str("key", f.BlobKey).Msg("blob already gone")
			return nil
		}
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}

func (s *FileService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
		s.logger.Error().Err(err).Str("key", key).Msg("orphaned blob")
	}
}

// splitFileName reduces a client-supplied name to its base and splits the
// extension off. Dotfiles such as ".env" keep the whole name.
func splitFileName(original string) (name, ext string, err error) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(original), `\`, "/"))
	if base == "." || base == "/" || base == ".." || base == "" {
		return "", "", fmt.Errorf("%w: bad name %q", domain.ErrInvalidFile, original)
	}

	dotExt := path.Ext(base)
	name = strings.TrimSuffix(base, dotExt)
	if name == "" {
		return base, "", nil
	}
	return name, strings.TrimPrefix(dotExt, "."), nil
}

func mimeOrDefault(mime string) string {
	if mime == "" {
		return "application/octet-stream"
	}
	return mime
}
