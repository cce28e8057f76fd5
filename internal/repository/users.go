package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"musomatch/backend/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) CreateUser(ctx context.Context, user models.UserProfile) (models.UserProfile, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.SearchRadiusMiles <= 0 {
		user.SearchRadiusMiles = models.DefaultSearchRadiusMiles
	}
	query := `
INSERT INTO users (id, role, first_name, last_name, postcode, lat, lng, ward, region, country, instruments, search_radius_miles)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING created_at, updated_at;`

	var lat, lng, ward, region, country interface{}
	if user.Location != nil {
		lat = user.Location.Lat
		lng = user.Location.Lng
		ward = nullString(user.Location.Ward)
		region = nullString(user.Location.Region)
		country = nullString(user.Location.Country)
	}
	instruments := user.Instruments
	if instruments == nil {
		instruments = []string{}
	}
	row := r.pool.QueryRow(ctx, query,
		user.ID, user.Role, user.FirstName, nullString(user.LastName), nullString(user.Postcode),
		lat, lng, ward, region, country, instruments, user.SearchRadiusMiles,
	)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		return models.UserProfile{}, err
	}
	return user, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (models.UserProfile, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, role, first_name, last_name, postcode, lat, lng, ward, region, country, instruments, search_radius_miles, created_at, updated_at
FROM users
WHERE id = $1;`, id)
	out, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.UserProfile{}, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
	}
	return out, err
}

// UpdateMatchingProfile replaces the matching-relevant subset of a profile:
// instruments, resolved location, and search radius.
func (r *Repository) UpdateMatchingProfile(ctx context.Context, userID uuid.UUID, postcode string, location *models.GeoPoint, instruments []string, searchRadiusMiles float64) error {
	var lat, lng, ward, region, country interface{}
	if location != nil {
		lat = location.Lat
		lng = location.Lng
		ward = nullString(location.Ward)
		region = nullString(location.Region)
		country = nullString(location.Country)
	}
	if instruments == nil {
		instruments = []string{}
	}
	command, err := r.pool.Exec(ctx, `
UPDATE users
SET postcode = $2,
	lat = $3,
	lng = $4,
	ward = $5,
	region = $6,
	country = $7,
	instruments = $8,
	search_radius_miles = $9,
	updated_at = now()
WHERE id = $1;`, userID, nullString(postcode), lat, lng, ward, region, country, instruments, searchRadiusMiles)
	if err != nil {
		return err
	}
	if command.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	return nil
}

// FindCandidates returns musicians with a location and at least one of the
// given instruments, excluding the poster. Distance filtering is policy and
// stays out of SQL: the matcher owns it.
func (r *Repository) FindCandidates(ctx context.Context, instruments []string, excludeUserID uuid.UUID) ([]models.UserProfile, error) {
	if len(instruments) == 0 {
		return []models.UserProfile{}, nil
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, role, first_name, last_name, postcode, lat, lng, ward, region, country, instruments, search_radius_miles, created_at, updated_at
FROM users
WHERE id <> $1
	AND role = 'musician'
	AND lat IS NOT NULL
	AND lng IS NOT NULL
	AND instruments && $2
ORDER BY id;`, excludeUserID, instruments)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]models.UserProfile, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (models.UserProfile, error) {
	var out models.UserProfile
	var lastName, postcode, ward, region, country sql.NullString
	var lat, lng sql.NullFloat64
	err := row.Scan(
		&out.ID, &out.Role, &out.FirstName, &lastName, &postcode,
		&lat, &lng, &ward, &region, &country,
		&out.Instruments, &out.SearchRadiusMiles, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return models.UserProfile{}, err
	}
	if lastName.Valid {
		out.LastName = lastName.String
	}
	if postcode.Valid {
		out.Postcode = postcode.String
	}
	if lat.Valid && lng.Valid {
		out.Location = &models.GeoPoint{
			Lat:     lat.Float64,
			Lng:     lng.Float64,
			Ward:    ward.String,
			Region:  region.String,
			Country: country.String,
		}
	}
	return out, nil
}
