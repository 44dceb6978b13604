package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/siddharthav19/ToursProj/internal/model"
	"github.com/siddharthav19/ToursProj/internal/query"
)

const tourColumns = "id,name,slug,duration,max_group_size,difficulty,ratings_average,ratings_quantity,price,price_discount,summary,description,image_cover,secret_tour,row_version,created_at"

// TourSchema whitelists the tour fields exposed to the query builder.
// row_version is internal: selectable on request, excluded from the default
// projection.
var TourSchema = query.Schema{Fields: []query.Field{
	{Name: "id", Column: "id"},
	{Name: "name", Column: "name"},
	{Name: "slug", Column: "slug"},
	{Name: "duration", Column: "duration"},
	{Name: "maxGroupSize", Column: "max_group_size"},
	{Name: "difficulty", Column: "difficulty"},
	{Name: "ratingsAverage", Column: "ratings_average"},
	{Name: "ratingsQuantity", Column: "ratings_quantity"},
	{Name: "price", Column: "price"},
	{Name: "summary", Column: "summary"},
	{Name: "rowVersion", Column: "row_version", Internal: true},
}}

type TourRepo struct{ DB *sql.DB }

func NewTourRepo(db *sql.DB) *TourRepo { return &TourRepo{DB: db} }

// TourUpdate carries a partial update; nil fields keep their current value.
type TourUpdate struct {
	Name          *string
	Duration      *int
	MaxGroupSize  *int
	Difficulty    *string
	Price         *float64
	PriceDiscount *float64
	Summary       *string
	Description   *string
	ImageCover    *string
	SecretTour    *bool
}

// Create inserts a tour and its departure dates. The slug derives from the
// name here so every write path produces one.
func (r *TourRepo) Create(ctx context.Context, t model.Tour, dates []time.Time) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO tours (name, slug, duration, max_group_size, difficulty, ratings_average, ratings_quantity, price, price_discount, summary, description, image_cover, secret_tour)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		t.Name, Slugify(t.Name), t.Duration, t.MaxGroupSize, t.Difficulty,
		t.RatingsAverage, t.RatingsQuantity, t.Price, t.PriceDiscount,
		t.Summary, t.Description, t.ImageCover, t.SecretTour)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, d := range dates {
		if _, err := r.DB.ExecContext(ctx,
			"INSERT INTO tour_dates (tour_id, starts_on) VALUES (?,?)", uint64(id), d); err != nil {
			return 0, err
		}
	}
	return uint64(id), nil
}

// GetByID fetches a tour row and its departure dates.
func (r *TourRepo) GetByID(ctx context.Context, id uint64) (model.Tour, []time.Time, error) {
	var t model.Tour
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+tourColumns+" FROM tours WHERE id=? LIMIT 1", id).
		Scan(&t.ID, &t.Name, &t.Slug, &t.Duration, &t.MaxGroupSize, &t.Difficulty,
			&t.RatingsAverage, &t.RatingsQuantity, &t.Price, &t.PriceDiscount,
			&t.Summary, &t.Description, &t.ImageCover, &t.SecretTour, &t.RowVersion, &t.CreatedAt)
	if err != nil {
		return model.Tour{}, nil, err
	}
	rows, err := r.DB.QueryContext(ctx,
		"SELECT starts_on FROM tour_dates WHERE tour_id=? ORDER BY starts_on", id)
	if err != nil {
		return model.Tour{}, nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return model.Tour{}, nil, err
		}
		dates = append(dates, d)
	}
	return t, dates, rows.Err()
}

// List executes a feature-built query over the tours table. Hiding secret
// tours is the caller's explicit decorator, not something injected here.
func (r *TourRepo) List(ctx context.Context, f *query.Features) ([]map[string]any, error) {
	sqlStr, args, err := f.Build("tours")
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Update applies a partial update and bumps the row version. It returns
// sql.ErrNoRows when the tour does not exist.
func (r *TourRepo) Update(ctx context.Context, id uint64, upd TourUpdate) (model.Tour, error) {
	set := []string{"row_version = row_version + 1"}
	args := []any{}
	add := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if upd.Name != nil {
		add("name", *upd.Name)
		add("slug", Slugify(*upd.Name))
	}
	if upd.Duration != nil {
		add("duration", *upd.Duration)
	}
	if upd.MaxGroupSize != nil {
		add("max_group_size", *upd.MaxGroupSize)
	}
	if upd.Difficulty != nil {
		add("difficulty", *upd.Difficulty)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.PriceDiscount != nil {
		add("price_discount", *upd.PriceDiscount)
	}
	if upd.Summary != nil {
		add("summary", *upd.Summary)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ImageCover != nil {
		add("image_cover", *upd.ImageCover)
	}
	if upd.SecretTour != nil {
		add("secret_tour", *upd.SecretTour)
	}
	args = append(args, id)
	res, err := r.DB.ExecContext(ctx,
		"UPDATE tours SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Tour{}, ErrNameExists
		}
		return model.Tour{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// MySQL reports 0 for a no-op update too, so confirm existence.
		if _, _, err := r.GetByID(ctx, id); err != nil {
			return model.Tour{}, err
		}
	}
	t, _, err := r.GetByID(ctx, id)
	return t, err
}

// Delete removes a tour and its dependent rows. sql.ErrNoRows when absent.
func (r *TourRepo) Delete(ctx context.Context, id uint64) error {
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM reviews WHERE tour_id=?", id); err != nil {
		return err
	}
	if _, err := r.DB.ExecContext(ctx, "DELETE FROM tour_dates WHERE tour_id=?", id); err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM tours WHERE id=?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DifficultyStats is one aggregate row of Stats.
type DifficultyStats struct {
	Difficulty string  `json:"difficulty"`
	TotalTours int     `json:"totalTours"`
	NumRatings int     `json:"numRatings"`
	AvgRating  float64 `json:"avgRating"`
	AvgPrice   float64 `json:"avgPrice"`
	MinPrice   float64 `json:"minPrice"`
	MaxPrice   float64 `json:"maxPrice"`
}

// Stats aggregates well-rated tours per difficulty, mirroring what used to
// be an aggregation pipeline: only tours rated >= 4.5, secret tours
// excluded, ordered by average rating.
func (r *TourRepo) Stats(ctx context.Context) ([]DifficultyStats, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT UPPER(difficulty) AS difficulty,
		       COUNT(*)                AS total_tours,
		       COALESCE(SUM(ratings_quantity),0) AS num_ratings,
		       COALESCE(AVG(ratings_average),0)  AS avg_rating,
		       COALESCE(AVG(price),0)  AS avg_price,
		       COALESCE(MIN(price),0)  AS min_price,
		       COALESCE(MAX(price),0)  AS max_price
		FROM tours
		WHERE ratings_average >= 4.5 AND secret_tour = 0
		GROUP BY difficulty
		ORDER BY avg_rating ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DifficultyStats
	for rows.Next() {
		var s DifficultyStats
		if err := rows.Scan(&s.Difficulty, &s.TotalTours, &s.NumRatings,
			&s.AvgRating, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MonthPlan is one aggregate row of MonthlyPlan.
type MonthPlan struct {
	Month      int      `json:"month"`
	TotalTours int      `json:"totalTours"`
	Tours      []string `json:"tours"`
}

// MonthlyPlan counts departures per month of a year, busiest month first,
// at most twelve rows.
func (r *TourRepo) MonthlyPlan(ctx context.Context, year int) ([]MonthPlan, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT MONTH(d.starts_on)          AS month,
		       COUNT(*)                    AS total_tours,
		       GROUP_CONCAT(t.name ORDER BY t.name SEPARATOR ',') AS tours
		FROM tour_dates d
		JOIN tours t ON t.id = d.tour_id
		WHERE YEAR(d.starts_on) = ? AND t.secret_tour = 0
		GROUP BY MONTH(d.starts_on)
		ORDER BY total_tours DESC, month ASC
		LIMIT 12`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MonthPlan
	for rows.Next() {
		var m MonthPlan
		var names string
		if err := rows.Scan(&m.Month, &m.TotalTours, &names); err != nil {
			return nil, err
		}
		if names != "" {
			m.Tours = strings.Split(names, ",")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Slugify lowercases a name and collapses runs of non-alphanumerics into
// single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
