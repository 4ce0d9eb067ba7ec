package moviecache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/db/dbtest"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/moviecache"
)

type fakeCatalog struct {
	mu     sync.Mutex
	movies map[int64]*catalog.MovieDetails
	err    error
	delay  time.Duration
	calls  atomic.Int64
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{movies: map[int64]*catalog.MovieDetails{
		550: {ID: 550, Title: "Fight Club", PosterPath: "/fc.jpg", ReleaseDate: "1999-10-15", VoteAverage: 8.4, Genres: []catalog.Genre{{ID: 18, Name: "Drama"}}},
		603: {ID: 603, Title: "The Matrix", PosterPath: "/m.jpg", ReleaseDate: "1999-03-30", VoteAverage: 8.2},
	}}
}

func (f *fakeCatalog) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeCatalog) Movie(_ context.Context, id int64) (*catalog.MovieDetails, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.movies[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func setup(t *testing.T) (*moviecache.Resolver, *fakeCatalog, *gorm.DB) {
	t.Helper()
	database := dbtest.New(t)
	fc := newFakeCatalog()
	return moviecache.NewResolver(database, fc, logger.Discard()), fc, database
}

func seedAccount(t *testing.T, database *gorm.DB, username string) *db.Account {
	t.Helper()
	a := &db.Account{
		Username:           username,
		Email:              username + "@x.com",
		PasswordHash:       "hash",
		SecurityQuestion:   "What is your favorite animal?",
		SecurityAnswerHash: "hash",
	}
	require.NoError(t, database.Create(a).Error)
	return a
}

func countMovies(t *testing.T, database *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, database.Model(&db.Movie{}).Count(&n).Error)
	return n
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("first reference fetches and stores", func(t *testing.T) {
		r, fc, database := setup(t)

		m, err := r.Resolve(ctx, 550, moviecache.PolicyPropagate)
		require.NoError(t, err)
		assert.Equal(t, "Fight Club", m.Title)
		assert.Equal(t, 1999, m.Year())
		assert.Equal(t, []db.Genre{{ID: 18, Name: "Drama"}}, m.Genres)
		assert.False(t, m.Placeholder)

		again, err := r.Resolve(ctx, 550, moviecache.PolicyPropagate)
		require.NoError(t, err)
		assert.Equal(t, m.ID, again.ID)
		assert.EqualValues(t, 1, fc.calls.Load())
		assert.EqualValues(t, 1, countMovies(t, database))
	})

	t.Run("stored rows are served while the catalog is down", func(t *testing.T) {
		r, fc, _ := setup(t)
		_, err := r.Resolve(ctx, 603, moviecache.PolicyPropagate)
		require.NoError(t, err)

		fc.setErr(&catalog.StatusError{Code: 503})
		m, err := r.Resolve(ctx, 603, moviecache.PolicyPropagate)
		require.NoError(t, err)
		assert.Equal(t, "The Matrix", m.Title)
	})

	t.Run("legacy external id matches", func(t *testing.T) {
		r, fc, database := setup(t)
		// imported row whose legacy id differs from its canonical id
		legacy := int64(42)
		require.NoError(t, database.Create(&db.Movie{ExternalID: 900042, LegacyExternalID: &legacy, Title: "Imported"}).Error)

		m, err := r.Resolve(ctx, 42, moviecache.PolicyPropagate)
		require.NoError(t, err)
		assert.Equal(t, "Imported", m.Title)
		assert.Zero(t, fc.calls.Load())
	})

	t.Run("invalid id", func(t *testing.T) {
		r, _, _ := setup(t)
		_, err := r.Resolve(ctx, 0, moviecache.PolicyPropagate)
		assert.ErrorIs(t, err, moviecache.ErrInvalidMovieID)
	})

	t.Run("unknown id is not found under both policies", func(t *testing.T) {
		r, _, database := setup(t)
		_, err := r.Resolve(ctx, 1, moviecache.PolicyPropagate)
		assert.ErrorIs(t, err, moviecache.ErrMovieNotFound)
		_, err = r.Resolve(ctx, 1, moviecache.PolicyPlaceholder)
		assert.ErrorIs(t, err, moviecache.ErrMovieNotFound)
		assert.Zero(t, countMovies(t, database))
	})

	t.Run("outage propagates", func(t *testing.T) {
		r, fc, database := setup(t)
		fc.setErr(&catalog.StatusError{Code: 500})

		_, err := r.Resolve(ctx, 550, moviecache.PolicyPropagate)
		assert.ErrorIs(t, err, moviecache.ErrMovieUnavailable)
		assert.Zero(t, countMovies(t, database))
	})

	t.Run("placeholder is stored and later upgraded in place", func(t *testing.T) {
		r, fc, database := setup(t)
		fc.setErr(catalog.ErrNotConfigured)

		ph, err := r.Resolve(ctx, 550, moviecache.PolicyPlaceholder)
		require.NoError(t, err)
		assert.True(t, ph.Placeholder)
		assert.Equal(t, "Movie 550", ph.Title)

		// still down: same placeholder, no duplicate
		again, err := r.Resolve(ctx, 550, moviecache.PolicyPlaceholder)
		require.NoError(t, err)
		assert.Equal(t, ph.ID, again.ID)
		assert.EqualValues(t, 1, countMovies(t, database))

		fc.setErr(nil)
		up, err := r.Resolve(ctx, 550, moviecache.PolicyPropagate)
		require.NoError(t, err)
		assert.Equal(t, ph.ID, up.ID)
		assert.Equal(t, "Fight Club", up.Title)
		assert.False(t, up.Placeholder)
		assert.EqualValues(t, 1, countMovies(t, database))
	})

	t.Run("placeholder is not served under propagate", func(t *testing.T) {
		r, fc, _ := setup(t)
		fc.setErr(errors.New("connection refused"))
		_, err := r.Resolve(ctx, 603, moviecache.PolicyPlaceholder)
		require.NoError(t, err)

		_, err = r.Resolve(ctx, 603, moviecache.PolicyPropagate)
		assert.ErrorIs(t, err, moviecache.ErrMovieUnavailable)
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		r, fc, database := setup(t)
		fc.delay = 50 * time.Millisecond

		const n = 10
		ids := make([]uint64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				m, err := r.Resolve(ctx, 550, moviecache.PolicyPropagate)
				if assert.NoError(t, err) {
					ids[i] = m.ID
				}
			}(i)
		}
		wg.Wait()

		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
		assert.EqualValues(t, 1, fc.calls.Load())
		assert.EqualValues(t, 1, countMovies(t, database))
	})
}

func TestLookup(t *testing.T) {
	ctx := context.Background()
	r, fc, _ := setup(t)

	_, err := r.Lookup(ctx, 550)
	assert.ErrorIs(t, err, moviecache.ErrMovieNotFound)
	assert.Zero(t, fc.calls.Load())

	_, err = r.Resolve(ctx, 550, moviecache.PolicyPropagate)
	require.NoError(t, err)
	m, err := r.Lookup(ctx, 550)
	require.NoError(t, err)
	assert.Equal(t, "Fight Club", m.Title)
}

func TestRate(t *testing.T) {
	ctx := context.Background()

	t.Run("score bounds", func(t *testing.T) {
		r, fc, _ := setup(t)
		for _, s := range []float64{-0.5, 10.5} {
			_, err := r.Rate(ctx, 1, 550, s, "")
			assert.ErrorIs(t, err, moviecache.ErrInvalidRating)
		}
		assert.Zero(t, fc.calls.Load())
	})

	t.Run("re-rating replaces and average follows", func(t *testing.T) {
		r, _, database := setup(t)
		alice := seedAccount(t, database, "alice")
		bob := seedAccount(t, database, "bob")

		m, err := r.Rate(ctx, alice.ID, 550, 8, "great")
		require.NoError(t, err)
		assert.InDelta(t, 8, m.AverageUserRating, 0.001)
		require.Len(t, m.Ratings, 1)
		require.NotNil(t, m.Ratings[0].Account)
		assert.Equal(t, "alice", m.Ratings[0].Account.Username)

		m, err = r.Rate(ctx, bob.ID, 550, 6, "")
		require.NoError(t, err)
		assert.InDelta(t, 7, m.AverageUserRating, 0.001)

		m, err = r.Rate(ctx, alice.ID, 550, 10, "changed my mind")
		require.NoError(t, err)
		assert.InDelta(t, 8, m.AverageUserRating, 0.001)
		require.Len(t, m.Ratings, 2)

		var aliceRating db.Rating
		require.NoError(t, database.Where("account_id = ?", alice.ID).First(&aliceRating).Error)
		assert.Equal(t, 10.0, aliceRating.Score)
		assert.Equal(t, "changed my mind", aliceRating.Comment)
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		r, _, database := setup(t)
		alice := seedAccount(t, database, "alice")
		_, err := r.Rate(ctx, alice.ID, 603, 0, "")
		require.NoError(t, err)
		m, err := r.Rate(ctx, alice.ID, 603, 10, "")
		require.NoError(t, err)
		assert.InDelta(t, 10, m.AverageUserRating, 0.001)
	})

	t.Run("catalog outage fails without writing", func(t *testing.T) {
		r, fc, database := setup(t)
		alice := seedAccount(t, database, "alice")
		fc.setErr(&catalog.StatusError{Code: 502})

		_, err := r.Rate(ctx, alice.ID, 550, 7, "")
		assert.ErrorIs(t, err, moviecache.ErrMovieUnavailable)

		var n int64
		require.NoError(t, database.Model(&db.Rating{}).Count(&n).Error)
		assert.Zero(t, n)
	})
}
