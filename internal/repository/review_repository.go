package repository

import (
	"context"
	"database/sql"

	"github.com/siddharthav19/ToursProj/internal/model"
)

// ReviewRow is a review joined with its author's public fields, the shape
// review listings serve.
type ReviewRow struct {
	ID        uint64  `json:"id"`
	TourID    uint64  `json:"tour_id"`
	UserID    uint64  `json:"user_id"`
	UserName  string  `json:"user_name"`
	Review    string  `json:"review"`
	Rating    float64 `json:"rating"`
	CreatedAt string  `json:"created_at"`
}

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review and updates the tour's running rating aggregate.
func (r *ReviewRepo) Create(ctx context.Context, rev model.Review) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (tour_id, user_id, review, rating) VALUES (?,?,?,?)",
		rev.TourID, rev.UserID, rev.Review, rev.Rating)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	// Recompute the aggregate from the source rows rather than drifting an
	// incremental counter.
	_, err = r.DB.ExecContext(ctx, `
		UPDATE tours SET
		  ratings_quantity = (SELECT COUNT(*) FROM reviews WHERE tour_id = ?),
		  ratings_average  = (SELECT COALESCE(AVG(rating),4.5) FROM reviews WHERE tour_id = ?)
		WHERE id = ?`, rev.TourID, rev.TourID, rev.TourID)
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// ListByTour returns a tour's reviews with author names, newest first.
func (r *ReviewRepo) ListByTour(ctx context.Context, tourID uint64) ([]ReviewRow, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.tour_id, r.user_id, u.name,
		       r.review, r.rating,
		       DATE_FORMAT(r.created_at, '%Y-%m-%d %T') AS created_at
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.tour_id = ?
		ORDER BY r.created_at DESC, r.id DESC`, tourID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ReviewRow{}
	for rows.Next() {
		var d ReviewRow
		if err := rows.Scan(&d.ID, &d.TourID, &d.UserID, &d.UserName,
			&d.Review, &d.Rating, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
