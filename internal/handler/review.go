package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// ReviewHandler bundles dependencies for the review endpoints nested under
// tours.
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
	Tours   *repository.TourRepo
}

func NewReviewHandler(r *repository.ReviewRepo, t *repository.TourRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: r, Tours: t}
}

type reviewReq struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
}

// ListByTour returns the reviews of one tour.
func (h *ReviewHandler) ListByTour(c echo.Context) error {
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid tour id")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	reviews, err := h.Reviews.ListByTour(ctx, tourID)
	if err != nil {
		return internalErr(c, "query failed")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(reviews),
		"data":    echo.Map{"reviews": reviews},
	})
}

// Create posts a review on a tour. The author is always the authenticated
// user; clients cannot review on someone else's behalf.
func (h *ReviewHandler) Create(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return fail(c, apperr.ErrUnauthenticated)
	}
	tourID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid tour id")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, apperr.ErrBadInput, "invalid body")
	}
	if len(req.Review) < 3 {
		return failMsg(c, apperr.ErrBadInput, "review should not be empty")
	}
	if req.Rating < 1.0 || req.Rating > 5.0 {
		return failMsg(c, apperr.ErrBadInput, "rating should be between 1 and 5")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeoutSeconds*time.Second)
	defer cancel()

	if _, _, err := h.Tours.GetByID(ctx, tourID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return failMsg(c, apperr.ErrNotFound, "can't find tour with that ID")
		}
		return internalErr(c, "query failed")
	}

	id, err := h.Reviews.Create(ctx, model.Review{
		TourID: tourID, UserID: u.ID, Review: req.Review, Rating: req.Rating,
	})
	if err != nil {
		return internalErr(c, "create review failed")
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"status": "success",
		"data": echo.Map{"review": echo.Map{
			"id":      id,
			"tour_id": tourID,
			"user_id": u.ID,
			"review":  req.Review,
			"rating":  req.Rating,
		}},
	})
}
