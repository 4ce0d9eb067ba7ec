package moviecache

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/repository"
)

// Rate records accountID's score for the movie, replacing an earlier rating by
// the same account, and returns the movie with all ratings loaded.
//
// The rating upsert and the average recompute commit together.
func (r *Resolver) Rate(ctx context.Context, accountID uint64, externalID int64, score float64, comment string) (*db.Movie, error) {
	if score < 0 || score > 10 {
		return nil, ErrInvalidRating
	}

	movie, err := r.Resolve(ctx, externalID, PolicyPropagate)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		movies := repository.NewMovieRepository(tx)
		if err := movies.UpsertRating(ctx, movie.ID, accountID, score, strings.TrimSpace(comment)); err != nil {
			return err
		}
		return movies.RecomputeAverage(ctx, movie.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("rate movie %d: %w", externalID, err)
	}

	return r.movies.FindWithRatings(ctx, movie.ID)
}
