package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/movie-rating/internal/db"
)

// MovieRepository provides data access for cached movies and their ratings.
type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(database *gorm.DB) *MovieRepository {
	return &MovieRepository{db: database}
}

// FindByExternalID returns the movie cached for a catalog id.
//
// Behavior:
//   - Matches the canonical external_id or, for rows imported from the old
//     schema, legacy_external_id. This is the only place that knows about
//     the legacy column.
//   - Import fills external_id from the canonical field, falling back to the
//     legacy one, so every row has a real catalog id. legacy_external_id is
//     kept only when the old document carried a different legacy value.
//   - A canonical match wins over a legacy match.
//   - Returns gorm.ErrRecordNotFound when the movie was never cached.
func (r *MovieRepository) FindByExternalID(ctx context.Context, externalID int64) (*db.Movie, error) {
	var m db.Movie
	err := r.db.WithContext(ctx).
		Where("external_id = ? OR legacy_external_id = ?", externalID, externalID).
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                "CASE WHEN external_id = ? THEN 0 ELSE 1 END, id ASC",
			Vars:               []any{externalID},
			WithoutParentheses: true,
		}}).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Insert stores m unless a row with the same external id already exists, and
// returns whichever row won.
//
// Behavior:
//   - Unique index on external_id + ON CONFLICT DO NOTHING, so concurrent
//     inserts for the same id converge on one row.
//   - The losing insert re-reads and returns the existing row.
func (r *MovieRepository) Insert(ctx context.Context, m *db.Movie) (*db.Movie, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "external_id"}},
			DoNothing: true,
		}).
		Create(m)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 && m.ID != 0 {
		return m, nil
	}
	return r.FindByExternalID(ctx, m.ExternalID)
}

// catalogColumns are the fields refreshed when a placeholder is replaced.
var catalogColumns = []string{
	"title", "original_title", "poster_path", "backdrop_path", "overview",
	"release_date", "vote_average", "vote_count", "popularity", "genres", "placeholder",
}

// ReplacePlaceholder overwrites the catalog fields of row id with fresh data.
// Ratings and the local average are untouched.
func (r *MovieRepository) ReplacePlaceholder(ctx context.Context, id uint64, fresh *db.Movie) (*db.Movie, error) {
	fresh.Placeholder = false
	err := r.db.WithContext(ctx).
		Model(&db.Movie{ID: id}).
		Select(catalogColumns).
		Updates(fresh).Error
	if err != nil {
		return nil, err
	}

	var m db.Movie
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// FindWithRatings loads a movie with its ratings, newest first, each with the
// rater's id and username only.
func (r *MovieRepository) FindWithRatings(ctx context.Context, id uint64) (*db.Movie, error) {
	var m db.Movie
	err := r.db.WithContext(ctx).
		Preload("Ratings", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("updated_at DESC, id DESC")
		}).
		Preload("Ratings.Account", func(tx *gorm.DB) *gorm.DB {
			return tx.Select("id", "username")
		}).
		First(&m, id).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// UpsertRating stores accountID's score for movieID, overwriting any earlier one.
func (r *MovieRepository) UpsertRating(ctx context.Context, movieID, accountID uint64, score float64, comment string) error {
	rating := db.Rating{
		MovieID:   movieID,
		AccountID: accountID,
		Score:     score,
		Comment:   comment,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "movie_id"}, {Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "comment", "updated_at"}),
		}).
		Create(&rating).Error
}

// RecomputeAverage sets average_user_rating to the mean of local ratings (0 when none).
func (r *MovieRepository) RecomputeAverage(ctx context.Context, movieID uint64) error {
	var avg struct{ AvgScore *float64 }
	err := r.db.WithContext(ctx).
		Model(&db.Rating{}).
		Select("AVG(score) AS avg_score").
		Where("movie_id = ?", movieID).
		Scan(&avg).Error
	if err != nil {
		return err
	}

	value := 0.0
	if avg.AvgScore != nil {
		value = *avg.AvgScore
	}
	return r.db.WithContext(ctx).
		Model(&db.Movie{}).
		Where("id = ?", movieID).
		UpdateColumn("average_user_rating", value).Error
}

// DeleteRatingsByAccount removes every rating by accountID and recomputes the
// affected averages. Run inside a transaction.
func (r *MovieRepository) DeleteRatingsByAccount(ctx context.Context, accountID uint64) error {
	var movieIDs []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Rating{}).
		Where("account_id = ?", accountID).
		Pluck("movie_id", &movieIDs).Error
	if err != nil {
		return err
	}
	if len(movieIDs) == 0 {
		return nil
	}

	if err := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&db.Rating{}).Error; err != nil {
		return err
	}
	for _, id := range movieIDs {
		if err := r.RecomputeAverage(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// IsNotFound is a small helper so callers don't import gorm just for the sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
