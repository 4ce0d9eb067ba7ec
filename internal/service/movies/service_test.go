package movies_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/movie-rating/internal/app/apptest"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/server"
	"github.com/oggyb/movie-rating/internal/service/movies"
)

func setup(t *testing.T) *apptest.Env {
	t.Helper()
	env := apptest.New(t)
	return env.Mount(movies.NewRegistrar(env.App))
}

type rateResponse struct {
	Message string `json:"message"`
	Movie   struct {
		TmdbID            int64               `json:"tmdbId"`
		Title             string              `json:"title"`
		AverageUserRating float64             `json:"averageUserRating"`
		Ratings           []movies.RatingView `json:"ratings"`
	} `json:"movie"`
}

func TestSearch(t *testing.T) {
	env := setup(t)

	rec := env.Do(t, http.MethodGet, "/api/movies/search?query=m", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Search query must be at least 2 characters long", apptest.Decode[server.ErrorBody](t, rec).Message)

	rec = env.Do(t, http.MethodGet, "/api/movies/search?query=matrix", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := apptest.Decode[catalog.Page](t, rec)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(603), page.Results[0].ID)
	assert.Equal(t, 1, env.Catalog.Hits("search"))

	// served from redis; case and whitespace share the key
	rec = env.Do(t, http.MethodGet, "/api/movies/search?query=%20MATRIX&page=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Catalog.Hits("search"))
	assert.True(t, env.Redis.Exists(cache.KeyForSearch("matrix", 1)))

	t.Run("upstream failure", func(t *testing.T) {
		env.Catalog.Down.Store(true)
		defer env.Catalog.Down.Store(false)

		rec := env.Do(t, http.MethodGet, "/api/movies/search?query=gump", "", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestPopular(t *testing.T) {
	env := setup(t)

	rec := env.Do(t, http.MethodGet, "/api/movies/popular", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, apptest.Decode[catalog.Page](t, rec).Results, 3)

	rec = env.Do(t, http.MethodGet, "/api/movies/popular?page=1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Catalog.Hits("popular"))

	t.Run("falls back to now playing", func(t *testing.T) {
		env.Catalog.PopularDown.Store(true)
		rec := env.Do(t, http.MethodGet, "/api/movies/popular?page=2", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		page := apptest.Decode[catalog.Page](t, rec)
		require.Len(t, page.Results, 1)
		assert.Equal(t, int64(603), page.Results[0].ID)
		assert.Equal(t, 1, env.Catalog.Hits("now_playing"))
	})

	t.Run("both lists down", func(t *testing.T) {
		env.Catalog.Down.Store(true)
		rec := env.Do(t, http.MethodGet, "/api/movies/popular?page=3", "", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestDetails(t *testing.T) {
	env := setup(t)

	rec := env.Do(t, http.MethodGet, "/api/movies/550", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := apptest.Decode[map[string]any](t, rec)
	assert.Equal(t, "Fight Club", body["title"])
	assert.EqualValues(t, 550, body["tmdbId"])
	assert.Empty(t, body["ratings"])

	rec = env.Do(t, http.MethodGet, "/api/movies/550", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.Catalog.Hits("movie"))

	rec = env.Do(t, http.MethodGet, "/api/movies/999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.Do(t, http.MethodGet, "/api/movies/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.Catalog.Down.Store(true)
	rec = env.Do(t, http.MethodGet, "/api/movies/603", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var n int64
	require.NoError(t, env.App.DB.Model(&db.Movie{}).Where("external_id = ?", 603).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRateAndRatings(t *testing.T) {
	env := setup(t)
	_, alice := env.Account(t, "alice")
	_, bob := env.Account(t, "bob")

	rec := env.Do(t, http.MethodPost, "/api/movies/550/rate", "", map[string]any{"rating": 5})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.Do(t, http.MethodGet, "/api/movies/550/ratings", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	for _, bad := range []any{11, -1} {
		rec = env.Do(t, http.MethodPost, "/api/movies/550/rate", alice, map[string]any{"rating": bad})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	rec = env.Do(t, http.MethodPost, "/api/movies/550/rate", alice, map[string]any{"comment": "no score"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.Do(t, http.MethodPost, "/api/movies/550/rate", alice, map[string]any{"rating": 9, "comment": " great "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := apptest.Decode[rateResponse](t, rec)
	assert.Equal(t, "Rating saved successfully", out.Message)
	assert.InDelta(t, 9, out.Movie.AverageUserRating, 0.001)
	require.Len(t, out.Movie.Ratings, 1)
	assert.Equal(t, "alice", out.Movie.Ratings[0].User.Username)
	assert.Equal(t, "great", out.Movie.Ratings[0].Comment)

	rec = env.Do(t, http.MethodPost, "/api/movies/550/rate", bob, map[string]any{"rating": 0})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 4.5, apptest.Decode[rateResponse](t, rec).Movie.AverageUserRating, 0.001)

	rec = env.Do(t, http.MethodPost, "/api/movies/550/rate", alice, map[string]any{"rating": 7})
	require.Equal(t, http.StatusOK, rec.Code)
	out = apptest.Decode[rateResponse](t, rec)
	assert.InDelta(t, 3.5, out.Movie.AverageUserRating, 0.001)
	assert.Len(t, out.Movie.Ratings, 2)

	rec = env.Do(t, http.MethodGet, "/api/movies/550/ratings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	ratings := apptest.Decode[movies.RatingsView](t, rec)
	assert.Equal(t, "Fight Club", ratings.Title)
	assert.Len(t, ratings.Ratings, 2)
	assert.NotContains(t, rec.Body.String(), "email")
}
