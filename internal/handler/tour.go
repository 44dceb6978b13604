package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/query"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// TourHandler bundles dependencies for tour endpoints.
type TourHandler struct {
	Tours   *repository.TourRepo
	Reviews *repository.ReviewRepo
}

func NewTourHandler(t *repository.TourRepo, r *repository.ReviewRepo) *TourHandler {
	return &TourHandler{Tours: t, Reviews: r}
}

type tourReq struct {
	Name          string   `json:"name"`
	Duration      int      `json:"duration"`
	MaxGroupSize  int      `json:"maxGroupSize"`
	Difficulty    string   `json:"difficulty"`
	Price         float64  `json:"price"`
	PriceDiscount *float64 `json:"priceDiscount"`
	Summary       string   `json:"summary"`
	Description   string   `json:"description"`
	ImageCover    string   `json:"imageCover"`
	SecretTour    bool     `json:"secretTour"`
	StartDates    []string `json:"startDates"`
}

type tourUpdateReq struct {
	Name          *string  `json:"name"`
	Duration      *int     `json:"duration"`
	MaxGroupSize  *int     `json:"maxGroupSize"`
	Difficulty    *string  `json:"difficulty"`
	Price         *float64 `json:"price"`
	PriceDiscount *float64 `json:"priceDiscount"`
	Summary       *string  `json:"summary"`
	Description   *string  `json:"description"`
	ImageCover    *string  `json:"imageCover"`
	SecretTour    *bool    `json:"secretTour"`
}

type tourPart struct {
	ID              uint64   `json:"id"`
	Name            string   `json:"name"`
	Slug            string   `json:"slug"`
	Duration        int      `json:"duration"`
	MaxGroupSize    int      `json:"maxGroupSize"`
	Difficulty      string   `json:"difficulty"`
	RatingsAverage  float64  `json:"ratingsAverage"`
	RatingsQuantity int      `json:"ratingsQuantity"`
	Price           float64  `json:"price"`
	PriceDiscount   *float64 `json:"priceDiscount,omitempty"`
	Summary         string   `json:"summary"`
	Description     string   `json:"description,omitempty"`
	ImageCover      string   `json:"imageCover"`
	StartDates      []string `json:"startDates,omitempty"`
}

func toTourPart(t model.Tour, dates []time.Time) tourPart {
	p := tourPart{
		ID: t.ID, Name: t.Name, Slug: t.Slug, Duration: t.Duration,
		MaxGroupSize: t.MaxGroupSize, Difficulty: t.Difficulty,
		RatingsAverage: t.RatingsAverage, RatingsQuantity: t.RatingsQuantity,
		Price: t.Price, Summary: t.Summary, ImageCover: t.ImageCover,
	}
	if t.PriceDiscount.Valid {
		v := t.PriceDiscount.Float64
		p.PriceDiscount = &v
	}
	if t.Description.Valid {
		p.Description = t.Description.String
	}
	for _, d := range dates {
		p.StartDates = append(p.StartDates, d.Format("2006-01-02"))
	}
	return p
}

// List serves the generic tour listing: every query parameter flows through
// the feature builder, and secret tours are excluded by an explicit
// decorator right here at the call site.
func (h *TourHandler) List(c echo.Context) error {
	return h.list(c, c.QueryParams())
}

// TopTours is the curated "best five cheap tours" alias: it pre-seeds the
// parameters and reuses the generic listing.
func (h *TourHandler) TopTours(c echo.Context) error {
	params := url.Values{}
	params.Set("limit", "5")
	params.Set("sort", "-ratingsAverage,price")
	params.Set("fields", "name,price,ratingsAverage,summary,difficulty")
	return h.list(c, params)
}

func (h *TourHandler) list(c echo.Context, params url.Values) error {
	f := query.New(params, repository.TourSchema).
		Where("secret_tour = 0").
		Filter().Sort().Select().Paginate()

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	tours, err := h.Tours.List(ctx, f)
	if err != nil {
		if errors.Is(err, apperr.ErrBadInput) {
			return failMsg(c, apperr.ErrBadInput, err.Error())
		}
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(tours),
		"data":    echo.Map{"tours": tours},
	})
}

// Get returns one tour with its departure dates and reviews. Secret tours
// are not addressable publicly.
func (h *TourHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid tour id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	t, dates, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failMsg(c, apperr.ErrNotFound, "can't find tour with that ID")
		}
		return internalErr(c, "query failed")
	}
	if t.SecretTour {
		return failMsg(c, apperr.ErrNotFound, "can't find tour with that ID")
	}

	reviews, err := h.Reviews.ListByTour(ctx, id)
	if err != nil {
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": toTourPart(t, dates), "reviews": reviews},
	})
}

// Create inserts a new tour.
func (h *TourHandler) Create(c echo.Context) error {
	var req tourReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	if req.Name == "" || req.Duration <= 0 || req.MaxGroupSize <= 0 || req.Price <= 0 || req.Summary == "" {
		return failMsg(c, apperr.ErrBadInput, "name, duration, maxGroupSize, price and summary are required")
	}
	if !model.ValidDifficulty(req.Difficulty) {
		return failMsg(c, apperr.ErrBadInput, "difficulty must be either: easy, medium, difficult")
	}
	if req.PriceDiscount != nil && *req.PriceDiscount >= req.Price {
		return failMsg(c, apperr.ErrBadInput, "discount price must be below regular price")
	}
	dates, err := parseDates(req.StartDates)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "startDates must be YYYY-MM-DD")
	}

	t := model.Tour{
		Name: req.Name, Duration: req.Duration, MaxGroupSize: req.MaxGroupSize,
		Difficulty: req.Difficulty, RatingsAverage: 4.5, Price: req.Price,
		Summary: req.Summary, ImageCover: req.ImageCover, SecretTour: req.SecretTour,
	}
	if req.PriceDiscount != nil {
		t.PriceDiscount = sql.NullFloat64{Float64: *req.PriceDiscount, Valid: true}
	}
	if req.Description != "" {
		t.Description = sql.NullString{String: req.Description, Valid: true}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	id, err := h.Tours.Create(ctx, t, dates)
	if err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return c.JSON(http.StatusConflict, echo.Map{"status": "fail", "message": err.Error()})
		}
		return internalErr(c, "create tour failed")
	}
	created, createdDates, err := h.Tours.GetByID(ctx, id)
	if err != nil {
		return internalErr(c, "load tour failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": toTourPart(created, createdDates)},
	})
}

// Update applies a partial update.
func (h *TourHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid tour id")
	}
	var req tourUpdateReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	if req.Difficulty != nil && !model.ValidDifficulty(*req.Difficulty) {
		return failMsg(c, apperr.ErrBadInput, "difficulty must be either: easy, medium, difficult")
	}
	if req.PriceDiscount != nil && req.Price != nil && *req.PriceDiscount >= *req.Price {
		return failMsg(c, apperr.ErrBadInput, "discount price must be below regular price")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	t, err := h.Tours.Update(ctx, id, repository.TourUpdate{
		Name: req.Name, Duration: req.Duration, MaxGroupSize: req.MaxGroupSize,
		Difficulty: req.Difficulty, Price: req.Price, PriceDiscount: req.PriceDiscount,
		Summary: req.Summary, Description: req.Description,
		ImageCover: req.ImageCover, SecretTour: req.SecretTour,
	})
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return failMsg(c, apperr.ErrNotFound, "can't find tour with that ID")
		case errors.Is(err, repository.ErrNameExists):
			return c.JSON(http.StatusConflict, echo.Map{"status": "fail", "message": err.Error()})
		}
		return internalErr(c, "update tour failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status": "success",
		"data":   echo.Map{"tour": toTourPart(t, nil)},
	})
}

// Delete removes a tour permanently. Admin and lead guides only; the route
// wiring enforces that.
func (h *TourHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid tour id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if err := h.Tours.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failMsg(c, apperr.ErrNotFound, "can't find tour with that ID")
		}
		return internalErr(c, "delete tour failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Stats serves the per-difficulty aggregate.
func (h *TourHandler) Stats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	stats, err := h.Tours.Stats(ctx)
	if err != nil {
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"stats": stats}})
}

// MonthlyPlan serves departure counts per month for one year.
func (h *TourHandler) MonthlyPlan(c echo.Context) error {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 1 {
		return failMsg(c, apperr.ErrBadInput, "invalid year")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	plan, err := h.Tours.MonthlyPlan(ctx, year)
	if err != nil {
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success", "data": echo.Map{"plan": plan}})
}

func parseDates(raw []string) ([]time.Time, error) {
	var out []time.Time
	for _, s := range raw {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}
