package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-lab-api/internal/models"
)

var userRowColumns = []string{"id", "email", "password_hash", "full_name", "role", "campus_id", "active", "last_login", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "admin@campus.edu", "hash", "Admin", string(models.RoleAdmin), "c1", true, now, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE LOWER(email) = LOWER($1) LIMIT 1")).
		WithArgs("admin@campus.edu").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "admin@campus.edu")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	require.NotNil(t, user.CampusID)
	assert.Equal(t, "c1", *user.CampusID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRefreshTokenRotationInTx(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM refresh_tokens WHERE token_hash = $1 LIMIT 1 FOR UPDATE")).
		WithArgs("h1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "token_hash", "expires_at", "created_at", "revoked_at", "ip_address", "user_agent"}).
			AddRow("rt1", "u1", "h1", now.Add(time.Hour), now, nil, "", ""))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked_at = $2 WHERE id = $1 AND revoked_at IS NULL")).
		WithArgs("rt1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := NewTransactor(db).WithinTx(context.Background(), func(tx sqlx.ExtContext) error {
		rt, err := repo.FindRefreshToken(context.Background(), tx, "h1")
		if err != nil {
			return err
		}
		assert.True(t, rt.Active(now))
		if err := repo.RevokeRefreshToken(context.Background(), tx, rt.ID, now); err != nil {
			return err
		}
		return repo.CreateRefreshToken(context.Background(), tx, &models.RefreshToken{UserID: "u1", TokenHash: "h2", ExpiresAt: now.Add(time.Hour)})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
