package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/picvault/picvault-service/entity"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return gdb, mock
}

func testImage() *entity.Image {
	return &entity.Image{
		Key:          "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		OriginalName: "hello.txt",
		Extension:    "txt",
		Size:         5,
		MimeType:     "text/plain",
		StoragePath:  "images/2c/2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		Enabled:      true,
	}
}

func TestImageInsert(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectQuery(`INSERT INTO "images"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	err := repo.Insert(context.Background(), testImage())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageInsertDuplicateKey(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectQuery(`INSERT INTO "images"`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Insert(context.Background(), testImage())
	assert.ErrorIs(t, err, ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageFindByKey(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	img := testImage()
	rows := sqlmock.NewRows([]string{"id", "key", "original_name", "extension", "size", "mime_type", "storage_path", "view_count", "enabled"}).
		AddRow(1, img.Key, img.OriginalName, img.Extension, img.Size, img.MimeType, img.StoragePath, 7, true)

	mock.ExpectQuery(`SELECT \* FROM "images" WHERE key = \$1`).
		WithArgs(img.Key, 1).
		WillReturnRows(rows)

	got, err := repo.FindByKey(context.Background(), img.Key)
	require.NoError(t, err)
	assert.Equal(t, img.Key, got.Key)
	assert.Equal(t, int64(7), got.ViewCount)
	assert.True(t, got.Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageFindByKeyNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectQuery(`SELECT \* FROM "images"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByKey(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// The view counter must be bumped with a single atomic UPDATE expression, not
// a read-modify-write, and it must not touch updated_at.
func TestImageIncrementViewCount(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectExec(`UPDATE "images" SET "view_count"=view_count \+ \$1 WHERE key = \$2`).
		WithArgs(1, "somekey").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.IncrementViewCount(context.Background(), "somekey")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageSetEnabled(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectExec(`UPDATE "images" SET "enabled"=\$1,"updated_at"=\$2 WHERE key = \$3`).
		WithArgs(false, sqlmock.AnyArg(), "somekey").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetEnabled(context.Background(), "somekey", false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageSetEnabledNotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectExec(`UPDATE "images"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetEnabled(context.Background(), "absent", true)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImageDelete(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewImageRepository(gdb)

	mock.ExpectExec(`DELETE FROM "images" WHERE key = \$1`).
		WithArgs("somekey").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "somekey")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
