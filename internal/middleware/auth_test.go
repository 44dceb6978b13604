package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siddharthav19/ToursProj/internal/auth"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

const testSecret = "unit-test-secret-0123456789abcdef"

const userCols = "id,name,email,password_hash,role,password_changed_at,password_reset_digest,password_reset_expires,active,created_at,updated_at"

func protectedRequest(t *testing.T, mw echo.MiddlewareFunc, authorization string) (*httptest.ResponseRecorder, *bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	next := func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	}
	require.NoError(t, mw(next)(c))
	return rec, &reached
}

func TestProtect_MissingBearer(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mw := Protect(testSecret, repository.NewUserRepo(db))
	rec, reached := protectedRequest(t, mw, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestProtect_MalformedToken(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mw := Protect(testSecret, repository.NewUserRepo(db))
	rec, reached := protectedRequest(t, mw, "Bearer not.a.jwt")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestProtect_StaleTokenAfterPasswordChange(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	token, err := auth.IssueToken(testSecret, 1, time.Hour)
	require.NoError(t, err)

	// The password changed after the token was issued, so the token is dead.
	changed := time.Now().UTC().Add(time.Minute)
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE id=?")).
		WithArgs(uint64(1)).
		WillReturnRows(sqlmock.NewRows(strings.Split(userCols, ",")).
			AddRow(1, "Leo", "leo@example.com", "hash", model.RoleUser, changed, nil, nil, true, now, now))

	mw := Protect(testSecret, repository.NewUserRepo(db))
	rec, reached := protectedRequest(t, mw, "Bearer "+token)

	// The request halts here; the handler never runs with a stale credential.
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestProtect_InactiveUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	token, err := auth.IssueToken(testSecret, 2, time.Hour)
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE id=?")).
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows(strings.Split(userCols, ",")).
			AddRow(2, "Leo", "leo@example.com", "hash", model.RoleUser, nil, nil, nil, false, now, now))

	mw := Protect(testSecret, repository.NewUserRepo(db))
	rec, reached := protectedRequest(t, mw, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestProtect_MissingUser(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	token, err := auth.IssueToken(testSecret, 9, time.Hour)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)

	mw := Protect(testSecret, repository.NewUserRepo(db))
	rec, reached := protectedRequest(t, mw, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, *reached)
}

func TestProtect_ValidToken(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	token, err := auth.IssueToken(testSecret, 3, time.Hour)
	require.NoError(t, err)

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE id=?")).
		WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows(strings.Split(userCols, ",")).
			AddRow(3, "Leo", "leo@example.com", "hash", model.RoleGuide, nil, nil, nil, true, now, now))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got *model.User
	next := func(c echo.Context) error {
		got, _ = c.Get(ContextUserKey).(*model.User)
		return c.NoContent(http.StatusOK)
	}
	mw := Protect(testSecret, repository.NewUserRepo(db))
	require.NoError(t, mw(next)(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.ID)
	assert.Equal(t, model.RoleGuide, got.Role)
}

func TestRestrictTo(t *testing.T) {
	run := func(u *model.User, roles ...string) (int, bool) {
		e := echo.New()
		req := httptest.NewRequest(http.MethodDelete, "/v1/tours/1", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if u != nil {
			c.Set(ContextUserKey, u)
		}
		reached := false
		next := func(c echo.Context) error {
			reached = true
			return c.NoContent(http.StatusNoContent)
		}
		_ = RestrictTo(roles...)(next)(c)
		return rec.Code, reached
	}

	code, reached := run(&model.User{Role: model.RoleUser}, model.RoleAdmin, model.RoleLeadGuide)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, reached)

	code, reached = run(&model.User{Role: model.RoleLeadGuide}, model.RoleAdmin, model.RoleLeadGuide)
	assert.Equal(t, http.StatusNoContent, code)
	assert.True(t, reached)

	code, reached = run(nil, model.RoleAdmin)
	assert.Equal(t, http.StatusForbidden, code)
	assert.False(t, reached)
}
