package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"ocgamma/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	gdb, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return gdb, mock
}

func userColumns() []string {
	return []string{"id", "email", "username", "hashed_password", "full_name", "is_active",
		"is_superuser", "role", "theme_preference", "created_at", "updated_at"}
}

func TestUserRepository_FindByUsername(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE username = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns()).
			AddRow(7, "ada@example.com", "ada", "hash", nil, true, false, "USER", "dark", now, now))

	user, err := repo.FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, uint(7), user.ID)
	assert.Equal(t, model.ThemeDark, user.ThemePreference)
	assert.Nil(t, user.FullName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE email = \\?").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	user, err := repo.FindByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Nil(t, user)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewUserRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	user := &model.User{
		Email:           "grace@example.com",
		Username:        "grace",
		HashedPassword:  "hash",
		IsActive:        true,
		Role:            model.DefaultRole,
		ThemePreference: model.ThemeSystem,
	}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, uint(3), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
