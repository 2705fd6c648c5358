package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/99minutos/filestore/internal/core/domain"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		_ = db.Close()
	})
	return db, mock
}

func TestRebind(t *testing.T) {
	q := `UPDATE files SET name = ?, size = ? WHERE id = ?`
	if got := rebind(Postgres, q); got != `UPDATE files SET name = $1, size = $2 WHERE id = $3` {
		t.Fatalf("postgres: %s", got)
	}
	if got := rebind(MySQL, q); got != q {
		t.Fatalf("mysql must keep ?: %s", got)
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres other", &pgconn.PgError{Code: "23502"}, false},
		{"mysql dup entry", &mysql.MySQLError{Number: 1062}, true},
		{"mysql other", &mysql.MySQLError{Number: 1045}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isDuplicateKey(tc.err); got != tc.want {
				t.Fatalf("isDuplicateKey = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestUnsupportedDialect(t *testing.T) {
	if _, err := Open(context.Background(), Config{Dialect: "sqlite"}); err == nil {
		t.Fatal("expected error for unknown dialect")
	}
}

func TestUserRepository_Create_Postgres(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, Postgres)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO users \(username, email, password_hash, created_at\) VALUES \(\$1, \$2, \$3, \$4\) RETURNING id`).
		WithArgs("ana", "ana@example.com", "hash", at).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	u, err := repo.Create(context.Background(), &domain.User{Username: "ana", Email: "ana@example.com", PasswordHash: "hash", CreatedAt: at})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if u.ID != "7" {
		t.Fatalf("unexpected id %q", u.ID)
	}
}

func TestUserRepository_Create_MySQL(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, MySQL)

	mock.ExpectExec(`INSERT INTO users \(username, email, password_hash, created_at\) VALUES \(\?, \?, \?, \?\)`).
		WillReturnResult(sqlmock.NewResult(12, 1))

	u, err := repo.Create(context.Background(), &domain.User{Username: "ana", Email: "ana@example.com", PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if u.ID != "12" || u.CreatedAt.IsZero() {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, MySQL)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ana' for key 'username'"})

	_, err := repo.Create(context.Background(), &domain.User{Username: "ana", Email: "other@example.com"})
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, Postgres)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, username, email, password_hash, created_at FROM users WHERE email = \$1`).
		WithArgs("ana@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "created_at"}).
			AddRow(int64(7), "ana", "ana@example.com", "hash", at))

	u, err := repo.FindByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("FindByEmail error: %v", err)
	}
	if u.ID != "7" || u.Username != "ana" || u.PasswordHash != "hash" || !u.CreatedAt.Equal(at) {
		t.Fatalf("unexpected user: %+v", u)
	}
}

func TestUserRepository_FindByUsername_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, MySQL)

	mock.ExpectQuery(`FROM users WHERE username = \?`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByUsername(context.Background(), "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepository_StoreDown(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db, Postgres)

	mock.ExpectQuery(`FROM users WHERE email`).WillReturnError(errors.New("connection refused"))

	if _, err := repo.FindByEmail(context.Background(), "ana@example.com"); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

var fileCols = []string{"id", "name", "extension", "mime_type", "size", "upload_date", "owner_id", "storage_key"}

func TestFileRepository_CreateAndFind(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFileRepository(db, Postgres)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO files \(name, extension, mime_type, size, upload_date, owner_id, storage_key\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6, \$7\) RETURNING id`).
		WithArgs("report", "pdf", "application/pdf", int64(8), at, "7", "k-3").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery(`SELECT id, name, extension, mime_type, size, upload_date, owner_id, storage_key FROM files WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow(int64(3), "report", "pdf", "application/pdf", int64(8), at, "7", "k-3"))

	created, err := repo.Create(context.Background(), &domain.File{Name: "report", Extension: "pdf", MimeType: "application/pdf", Size: 8, UploadDate: at, OwnerID: "7", BlobKey: "k-3"})
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	got, err := repo.FindByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("FindByID error: %v", err)
	}
	if got.ID != "3" || got.FileName() != "report.pdf" || got.OwnerID != "7" || got.BlobKey != "k-3" {
		t.Fatalf("unexpected file: %+v", got)
	}
}

func TestFileRepository_FindByID_NotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFileRepository(db, MySQL)

	mock.ExpectQuery(`FROM files WHERE id = \?`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	if _, err := repo.FindByID(context.Background(), "9"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
	if _, err := repo.FindByID(context.Background(), "abc"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("non-numeric id: expected ErrFileNotFound, got %v", err)
	}
}

func TestFileRepository_List(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFileRepository(db, MySQL)
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM files ORDER BY id LIMIT \? OFFSET \?`).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow(int64(21), "a", "txt", "text/plain", int64(1), at, "", "k-21").
			AddRow(int64(22), "b", "", "application/octet-stream", int64(2), at, "7", "k-22"))

	files, err := repo.List(context.Background(), 20, 10)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(files) != 2 || files[0].ID != "21" || files[1].FileName() != "b" || files[1].BlobKey != "k-22" {
		t.Fatalf("unexpected page: %+v", files)
	}
}

func TestFileRepository_UpdateDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFileRepository(db, Postgres)

	mock.ExpectExec(`UPDATE files SET name = \$1, extension = \$2, mime_type = \$3, size = \$4, storage_key = \$5 WHERE id = \$6`).
		WithArgs("new", "csv", "text/csv", int64(5), "k-9", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM files WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Update(context.Background(), &domain.File{ID: "3", Name: "new", Extension: "csv", MimeType: "text/csv", Size: 5, BlobKey: "k-9"}); err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if err := repo.Delete(context.Background(), "3"); !errors.Is(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound for zero affected rows, got %v", err)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, d := range []Dialect{Postgres, MySQL} {
		entries, err := migrations.ReadDir("migrations/" + string(d))
		if err != nil || len(entries) != 2 {
			t.Fatalf("%s: expected 2 embedded migrations, got %d (%v)", d, len(entries), err)
		}
		if entries[1].Name() != "00002_file_storage_key.sql" {
			t.Fatalf("%s: unexpected migration %q", d, entries[1].Name())
		}
	}
}
