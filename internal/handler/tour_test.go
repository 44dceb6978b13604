package handler

import (
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

	"github.com/siddharthav19/ToursProj/internal/repository"
)

const tourCols = "id,name,slug,duration,max_group_size,difficulty,ratings_average,ratings_quantity,price,price_discount,summary,description,image_cover,secret_tour,row_version,created_at"

func newTourTest(t *testing.T) (*TourHandler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewTourHandler(repository.NewTourRepo(db), repository.NewReviewRepo(db)), mock, db
}

func TestTourList_UnknownOperatorRejected(t *testing.T) {
	h, _, db := newTourTest(t)
	defer db.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/tours?price[between]=100", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.List(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown filter operator")
}

func TestTopTours_UsesCuratedParams(t *testing.T) {
	h, mock, db := newTourTest(t)
	defer db.Close()

	// The alias always asks for five rows, rating-then-price order, and the
	// curated projection, no matter what the request carries.
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id, name, price, ratings_average, summary, difficulty FROM tours WHERE secret_tour = 0 ORDER BY ratings_average DESC, price ASC LIMIT ? OFFSET ?")).
		WithArgs(5, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "price", "ratings_average", "summary", "difficulty"}).
			AddRow(1, "The Forest Hiker", 397.0, 4.8, "Breathtaking hike", "easy"))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/tours/top-5?limit=999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, h.TopTours(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())

	var body struct {
		Status  string `json:"status"`
		Results int    `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 1, body.Results)
}

func TestTourGet_SecretTourIsNotAddressable(t *testing.T) {
	h, mock, db := newTourTest(t)
	defer db.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+tourCols+" FROM tours WHERE id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(strings.Split(tourCols, ",")).
			AddRow(9, "Hidden Gem", "hidden-gem", 3, 10, "easy", 4.5, 0, 500.0, nil, "secret", nil, "", true, 0, now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT starts_on FROM tour_dates WHERE tour_id=?")).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"starts_on"}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/tours/9", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9")

	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTourCreate_Validation(t *testing.T) {
	h, _, db := newTourTest(t)
	defer db.Close()

	cases := map[string]string{
		"bad difficulty": `{"name":"T","duration":3,"maxGroupSize":5,"difficulty":"extreme","price":100,"summary":"s"}`,
		"discount >= price": `{"name":"T","duration":3,"maxGroupSize":5,"difficulty":"easy","price":100,"priceDiscount":100,"summary":"s"}`,
		"missing required":  `{"difficulty":"easy"}`,
		"bad date":          `{"name":"T","duration":3,"maxGroupSize":5,"difficulty":"easy","price":100,"summary":"s","startDates":["July 4"]}`,
	}
	for name, body := range cases {
		rec := doJSON(t, h.Create, http.MethodPost, "/v1/tours", body, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestTourDelete_NotFoundMapsTo404(t *testing.T) {
	h, mock, db := newTourTest(t)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM reviews WHERE tour_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tour_dates WHERE tour_id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tours WHERE id=?")).
		WithArgs(uint64(5)).WillReturnResult(sqlmock.NewResult(0, 0))

	e := echo.New()
	req := httptest.NewRequest(http.MethodDelete, "/v1/tours/5", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
