package handler

import (
	"context"
	"database/sql"
	"encoding/json"
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
	"golang.org/x/crypto/bcrypt"

	"github.com/siddharthav19/ToursProj/internal/auth"
	"github.com/siddharthav19/ToursProj/internal/config"
	"github.com/siddharthav19/ToursProj/internal/mailer"
	"github.com/siddharthav19/ToursProj/internal/middleware"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

const userCols = "id,name,email,password_hash,role,password_changed_at,password_reset_digest,password_reset_expires,active,created_at,updated_at"

// fakeMailer records outbound messages, or fails every send when err is set.
type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, m mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

func testConfig() config.Config {
	return config.Config{
		Env:        "test",
		JWTSecret:  "unit-test-secret-0123456789abcdef",
		JWTTTL:     time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
}

func newAuthTest(t *testing.T, m *fakeMailer) (*AuthHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewAuthHandler(testConfig(), repository.NewUserRepo(db), m), mock, db
}

func userRow(t *testing.T, id uint64, email, password, role string) *sqlmock.Rows {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now().UTC()
	return sqlmock.NewRows(strings.Split(userCols, ",")).
		AddRow(id, "Leo", email, hash, role, nil, nil, nil, true, now, now)
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, setup func(echo.Context)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if setup != nil {
		setup(c)
	}
	require.NoError(t, h(c))
	return rec
}

func TestLogin_MissingCredentials(t *testing.T) {
	h, _, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	rec := doJSON(t, h.Login, http.MethodPost, "/v1/users/login",
		`{"email":"leo@example.com"}`, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fail"`)
}

func TestLogin_UnknownEmailLooksLikeWrongPassword(t *testing.T) {
	h, mock, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE email=?")).
		WithArgs("ghost@example.com").
		WillReturnError(sql.ErrNoRows)
	unknown := doJSON(t, h.Login, http.MethodPost, "/v1/users/login",
		`{"email":"ghost@example.com","password":"whatever1"}`, nil)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE email=?")).
		WithArgs("leo@example.com").
		WillReturnRows(userRow(t, 1, "leo@example.com", "correct-horse", model.RoleUser))
	wrongPass := doJSON(t, h.Login, http.MethodPost, "/v1/users/login",
		`{"email":"leo@example.com","password":"battery-staple"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	// Identical bodies: the response cannot be used to enumerate accounts.
	assert.Equal(t, unknown.Body.String(), wrongPass.Body.String())
}

func TestLogin_Success(t *testing.T) {
	h, mock, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE email=?")).
		WithArgs("leo@example.com").
		WillReturnRows(userRow(t, 1, "leo@example.com", "correct-horse", model.RoleUser))

	rec := doJSON(t, h.Login, http.MethodPost, "/v1/users/login",
		`{"email":"leo@example.com","password":"correct-horse"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.NotEmpty(t, body.Token)

	claims, err := auth.VerifyToken(body.Token, testConfig().JWTSecret)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claims.UserID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "jwt", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSignup_ForcesUserRole(t *testing.T) {
	h, mock, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	// The request names an elevated role; the stored row must not.
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name, email, password_hash, role) VALUES (?,?,?,?)")).
		WithArgs("Leo", "leo@example.com", sqlmock.AnyArg(), model.RoleUser).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE id=?")).
		WithArgs(uint64(7)).
		WillReturnRows(userRow(t, 7, "leo@example.com", "correct-horse", model.RoleUser))

	rec := doJSON(t, h.Signup, http.MethodPost, "/v1/users/signup",
		`{"name":"Leo","email":"leo@example.com","password":"correct-horse","passwordConfirm":"correct-horse","role":"admin"}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	user := body["data"].(map[string]any)["user"].(map[string]any)
	assert.Equal(t, "user", user["role"])
	_, hasPassword := user["password"]
	assert.False(t, hasPassword)
	assert.NotContains(t, rec.Body.String(), "$2a$") // no bcrypt hash anywhere
}

func TestForgotPassword_SendsResetLink(t *testing.T) {
	mail := &fakeMailer{}
	h, mock, db := newAuthTest(t, mail)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE email=?")).
		WithArgs("leo@example.com").
		WillReturnRows(userRow(t, 1, "leo@example.com", "correct-horse", model.RoleUser))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_reset_digest=?, password_reset_expires=? WHERE id=?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/users/forgot-password",
		`{"email":"leo@example.com"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, mail.sent, 1)
	assert.Equal(t, "leo@example.com", mail.sent[0].To)
	assert.Contains(t, mail.sent[0].Body, "/v1/users/reset-password/")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPassword_RollsBackOnDeliveryFailure(t *testing.T) {
	mail := &fakeMailer{err: context.DeadlineExceeded}
	h, mock, db := newAuthTest(t, mail)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE email=?")).
		WithArgs("leo@example.com").
		WillReturnRows(userRow(t, 1, "leo@example.com", "correct-horse", model.RoleUser))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_reset_digest=?, password_reset_expires=? WHERE id=?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// Delivery failed, so the stored token is wiped again.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET password_reset_digest=NULL, password_reset_expires=NULL WHERE id=?")).
		WithArgs(uint64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doJSON(t, h.ForgotPassword, http.MethodPost, "/v1/users/forgot-password",
		`{"email":"leo@example.com"}`, nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResetPassword_InvalidToken(t *testing.T) {
	h, mock, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+userCols+" FROM users WHERE password_reset_digest=? AND password_reset_expires > ?")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnError(sql.ErrNoRows)

	rec := doJSON(t, h.ResetPassword, http.MethodPatch, "/v1/users/reset-password/bogus",
		`{"password":"newpass99","passwordConfirm":"newpass99"}`,
		func(c echo.Context) {
			c.SetParamNames("token")
			c.SetParamValues("bogus")
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "token is invalid or expired")
}

func TestUpdatePassword_WrongCurrent(t *testing.T) {
	h, _, db := newAuthTest(t, &fakeMailer{})
	defer db.Close()

	hash, err := auth.HashPassword("correct-horse", bcrypt.MinCost)
	require.NoError(t, err)
	u := &model.User{ID: 1, Email: "leo@example.com", PasswordHash: hash, Role: model.RoleUser, Active: true}

	rec := doJSON(t, h.UpdatePassword, http.MethodPatch, "/v1/users/update-password",
		`{"passwordCurrent":"battery-staple","password":"newpass99","passwordConfirm":"newpass99"}`,
		func(c echo.Context) { c.Set(middleware.ContextUserKey, u) })

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
