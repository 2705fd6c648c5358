package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/99minutos/filestore/internal/core/domain"
)

const fileColumns = `id, name, extension, mime_type, size, upload_date, owner_id, storage_key`

type FileRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewFileRepository(db *sql.DB, d Dialect) *FileRepository {
	return &FileRepository{db: db, dialect: d}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) (*domain.File, error) {
	id, err := insertID(ctx, r.db, r.dialect,
		`INSERT INTO files (name, extension, mime_type, size, upload_date, owner_id, storage_key) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.Name, f.Extension, f.MimeType, f.Size, f.UploadDate, f.OwnerID, f.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("%w: insert file: %v", domain.ErrStoreUnavailable, err)
	}

	created := *f
	created.ID = id
	return &created, nil
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*domain.File, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, domain.ErrFileNotFound
	}

	row := r.db.QueryRowContext(ctx, rebind(r.dialect, `SELECT `+fileColumns+` FROM files WHERE id = ?`), n)
	f, err := scanFile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: find file: %v", domain.ErrStoreUnavailable, err)
	}
	return f, nil
}

func (r *FileRepository) List(ctx context.Context, offset, limit int) ([]*domain.File, error) {
	rows, err := r.db.QueryContext(ctx,
		rebind(r.dialect, `SELECT `+fileColumns+` FROM files ORDER BY id LIMIT ? OFFSET ?`), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list files: %v", domain.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	files := make([]*domain.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list files: %v", domain.ErrStoreUnavailable, err)
	}
	return files, nil
}

func (r *FileRepository) Update(ctx context.Context, f *domain.File) error {
	n, err := strconv.ParseInt(f.ID, 10, 64)
	if err != nil {
		return domain.ErrFileNotFound
	}

	res, err := r.db.ExecContext(ctx,
		rebind(r.dialect, `UPDATE files SET name = ?, extension = ?, mime_type = ?, size = ?, storage_key = ? WHERE id = ?`),
		f.Name, f.Extension, f.MimeType, f.Size, f.BlobKey, n)
	if err != nil {
		return fmt.Errorf("%w: update file: %v", domain.ErrStoreUnavailable, err)
	}
	return requireRow(res)
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return domain.ErrFileNotFound
	}

	res, err := r.db.ExecContext(ctx, rebind(r.dialect, `DELETE FROM files WHERE id = ?`), n)
	if err != nil {
		return fmt.Errorf("%w: delete file: %v", domain.ErrStoreUnavailable, err)
	}
	return requireRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(s rowScanner) (*domain.File, error) {
	var (
		f  domain.File
		id int64
	)
	if err := s.Scan(&id, &f.Name, &f.Extension, &f.MimeType, &f.Size, &f.UploadDate, &f.OwnerID, &f.BlobKey); err != nil {
		return nil, err
	}
	f.ID = strconv.FormatInt(id, 10)
	f.UploadDate = f.UploadDate.UTC()
	return &f, nil
}

// requireRow maps "no rows affected" to ErrFileNotFound. MySQL connections
// are opened with clientFoundRows so an unchanged UPDATE still counts.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", domain.ErrStoreUnavailable, err)
	}
	if n == 0 {
		return domain.ErrFileNotFound
	}
	return nil
}
