package model

import (
	"database/sql"
	"time"
)

// Difficulty values stored in tours.difficulty.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// ValidDifficulty reports whether a difficulty string is one of the fixed set.
func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	}
	return false
}

// Tour represents a row of the `tours` table.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – unique display name.
//  Slug           – URL slug derived from the name on create/update.
//  Duration       – length in days.
//  MaxGroupSize   – maximum number of participants.
//  Difficulty     – easy, medium or difficult.
//  RatingsAverage – running average rating (default 4.5).
//  RatingsQuantity– number of ratings received.
//  Price          – base price.
//  PriceDiscount  – optional discounted price, must stay below Price.
//  Summary        – short marketing summary.
//  Description    – long description (nullable).
//  ImageCover     – cover image file name.
//  SecretTour     – hidden from public listings when true; call sites hide
//                   it with an explicit query decorator, never implicitly.
//  RowVersion     – internal revision counter, excluded from default
//                   projections.
type Tour struct {
	ID              uint64
	Name            string
	Slug            string
	Duration        int
	MaxGroupSize    int
	Difficulty      string
	RatingsAverage  float64
	RatingsQuantity int
	Price           float64
	PriceDiscount   sql.NullFloat64
	Summary         string
	Description     sql.NullString
	ImageCover      string
	SecretTour      bool
	RowVersion      int
	CreatedAt       time.Time
}

// TourDate is one scheduled departure of a tour, a row of `tour_dates`.
type TourDate struct {
	ID       uint64
	TourID   uint64
	StartsOn time.Time
}
