package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/laporpak-api/internal/models"
)

var userColumns = []string{"id", "name", "email", "role", "phone", "address", "created_at"}

func TestUserRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("p-1", "Budi", "budi@example.com", "petugas", "0812", nil, time.Now()))

	user, err := repo.FindByID(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, models.RolePetugas, user.Role)
	assert.Nil(t, user.Address)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUserRepositoryListByRole(t *testing.T) {
	db, mock, cleanup := newReportRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE role = $1 ORDER BY name ASC")).
		WithArgs("petugas").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow("p-1", "Andi", "andi@example.com", "petugas", nil, nil, time.Now()).
			AddRow("p-2", "Budi", "budi@example.com", "petugas", nil, nil, time.Now()))

	users, err := repo.ListByRole(context.Background(), models.RolePetugas)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "Andi", users[0].Name)
}
