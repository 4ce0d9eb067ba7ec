// Package moviecache resolves catalog ids to locally stored movies, fetching
// and persisting them on first reference.
package moviecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/db"
	apperr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/metrics"
	"github.com/oggyb/movie-rating/internal/repository"
)

// Policy decides what happens when the catalog cannot supply a movie.
type Policy int

const (
	// PolicyPropagate returns ErrMovieUnavailable (or ErrMovieNotFound).
	PolicyPropagate Policy = iota
	// PolicyPlaceholder stores and returns a row flagged Placeholder.
	PolicyPlaceholder
)

var (
	ErrMovieUnavailable = apperr.Upstream("Movie catalog is unavailable, please try again later")
	ErrMovieNotFound    = apperr.NotFound("Movie not found")
	ErrInvalidMovieID   = apperr.InvalidArgument("Invalid movie id")
	ErrInvalidRating    = apperr.InvalidArgument("Rating must be between 0 and 10")
)

// Catalog is the subset of the catalog client used here.
type Catalog interface {
	Movie(ctx context.Context, id int64) (*catalog.MovieDetails, error)
}

type Resolver struct {
	db      *gorm.DB
	movies  *repository.MovieRepository
	catalog Catalog
	log     *slog.Logger
	group   singleflight.Group
}

func NewResolver(database *gorm.DB, c Catalog, log *slog.Logger) *Resolver {
	return &Resolver{
		db:      database,
		movies:  repository.NewMovieRepository(database),
		catalog: c,
		log:     log,
	}
}

// Resolve returns the stored movie for externalID, fetching and storing it on
// first reference.
//
// Behavior:
//   - Stored, non-placeholder rows are returned unchanged without a fetch.
//   - Concurrent misses for the same id in this process share one fetch.
//   - Inserts go through the external_id unique index, so racing processes
//     converge on one row.
//   - A stored placeholder is retried and upgraded in place on success; if the
//     catalog is still down it is returned as-is under PolicyPlaceholder.
func (r *Resolver) Resolve(ctx context.Context, externalID int64, policy Policy) (*db.Movie, error) {
	if externalID <= 0 {
		return nil, ErrInvalidMovieID
	}

	existing, err := r.movies.FindByExternalID(ctx, externalID)
	switch {
	case err == nil && !existing.Placeholder:
		metrics.RecordMovieResolution("stored")
		return existing, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("lookup movie %d: %w", externalID, err)
	}

	// The shared fetch must not die with whichever caller started it; the
	// catalog client's own timeout bounds it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := r.group.Do(strconv.FormatInt(externalID, 10), func() (any, error) {
		return r.fetchAndStore(shared, externalID, existing)
	})
	if err == nil {
		metrics.RecordMovieResolution("fetched")
		return v.(*db.Movie), nil
	}

	log := logger.FromContext(ctx, r.log)
	if policy == PolicyPlaceholder && !errors.Is(err, catalog.ErrNotFound) && ctx.Err() == nil {
		log.Warn("catalog unavailable, using placeholder movie", "external_id", externalID, "err", err)
		metrics.RecordMovieResolution("placeholder")
		if existing != nil {
			return existing, nil
		}
		return r.movies.Insert(ctx, placeholder(externalID))
	}

	metrics.RecordMovieResolution("failed")
	if errors.Is(err, catalog.ErrNotFound) {
		return nil, ErrMovieNotFound.Wrap(err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	log.Warn("catalog fetch failed", "external_id", externalID, "err", err)
	return nil, ErrMovieUnavailable.Wrap(err)
}

// fetchAndStore runs once per id among concurrent callers. It re-checks the
// store first, since another caller may have finished while this one waited.
func (r *Resolver) fetchAndStore(ctx context.Context, externalID int64, existing *db.Movie) (*db.Movie, error) {
	if existing == nil {
		m, err := r.movies.FindByExternalID(ctx, externalID)
		if err == nil && !m.Placeholder {
			return m, nil
		}
		if err == nil {
			existing = m
		}
	}

	details, err := r.catalog.Movie(ctx, externalID)
	if err != nil {
		return nil, err
	}

	fresh := FromCatalog(externalID, details)
	if existing != nil {
		return r.movies.ReplacePlaceholder(ctx, existing.ID, fresh)
	}
	return r.movies.Insert(ctx, fresh)
}

// Lookup returns the stored movie without touching the catalog.
func (r *Resolver) Lookup(ctx context.Context, externalID int64) (*db.Movie, error) {
	m, err := r.movies.FindByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMovieNotFound.Wrap(err)
	}
	return m, err
}

// WithRatings reloads m with ratings and their authors' handles.
func (r *Resolver) WithRatings(ctx context.Context, m *db.Movie) (*db.Movie, error) {
	return r.movies.FindWithRatings(ctx, m.ID)
}

// FromCatalog maps a catalog payload onto the local schema.
func FromCatalog(externalID int64, d *catalog.MovieDetails) *db.Movie {
	genres := make([]db.Genre, 0, len(d.Genres))
	for _, g := range d.Genres {
		genres = append(genres, db.Genre{ID: g.ID, Name: g.Name})
	}
	title := d.Title
	if title == "" {
		title = d.OriginalTitle
	}
	return &db.Movie{
		ExternalID:    externalID,
		Title:         title,
		OriginalTitle: d.OriginalTitle,
		PosterPath:    d.PosterPath,
		BackdropPath:  d.BackdropPath,
		Overview:      d.Overview,
		ReleaseDate:   d.Released(),
		VoteAverage:   d.VoteAverage,
		VoteCount:     d.VoteCount,
		Popularity:    d.Popularity,
		Genres:        genres,
	}
}

func placeholder(externalID int64) *db.Movie {
	return &db.Movie{
		ExternalID:  externalID,
		Title:       fmt.Sprintf("Movie %d", externalID),
		Overview:    "Movie details are temporarily unavailable.",
		Genres:      []db.Genre{},
		Placeholder: true,
	}
}
