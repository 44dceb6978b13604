package model

import "time"

// Review represents a row of the `reviews` table. Every review belongs to
// one tour and one user; the rating contributes to the tour's running
// ratings_average/ratings_quantity.
type Review struct {
	ID        uint64
	TourID    uint64
	UserID    uint64
	Review    string
	Rating    float64
	CreatedAt time.Time
}
