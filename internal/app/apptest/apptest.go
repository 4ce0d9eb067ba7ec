// Package apptest wires a complete AppContext for service and end-to-end
// tests: in-memory sqlite, miniredis and a fake movie catalog.
package apptest

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/auth"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/config"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/db/dbtest"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/server"
)

// Env is one isolated application instance.
type Env struct {
	App     *app.AppContext
	Catalog *FakeCatalog
	Redis   *miniredis.Miniredis
	Handler http.Handler
}

// New builds an Env. Call Mount before sending requests.
func New(t *testing.T) *Env {
	t.Helper()

	fake := NewFakeCatalog()
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)

	cfg := config.New()
	cfg.App.ENV = "test"
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.TokenTTL = time.Hour
	cfg.Auth.ResetTokenTTL = 15 * time.Minute
	cfg.Catalog.APIKey = "test-key"
	cfg.Catalog.BaseURL = srv.URL
	cfg.Catalog.Timeout = 2 * time.Second
	cfg.Catalog.RateLimit = 0
	cfg.Catalog.CacheTTL = 10 * time.Minute
	cfg.HTTP.RequestTimeout = 5 * time.Second
	cfg.RateLimit.Disabled = true

	log := logger.Discard()
	tokens, err := auth.NewManager(cfg)
	require.NoError(t, err)

	rdb := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = rdb.Close() })

	return &Env{
		App:     app.New(cfg, dbtest.New(t), rdb, log, catalog.New(cfg, log), tokens),
		Catalog: fake,
		Redis:   mr,
	}
}

// Mount builds the router with the given registrars under /api.
func (e *Env) Mount(registrars ...server.Registrar) *Env {
	e.Handler = server.NewRouter(e.App.Config, e.App.Logger, nil, registrars...)
	return e
}

// Account inserts an account directly and returns it with a valid access token.
func (e *Env) Account(t *testing.T, username string) (*db.Account, string) {
	t.Helper()
	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)
	answer, err := auth.HashAnswer("cat")
	require.NoError(t, err)

	a := &db.Account{
		Username:           username,
		Email:              username + "@example.com",
		PasswordHash:       hash,
		ProfilePicture:     "/default-profile.png",
		SecurityQuestion:   "What is your favorite animal?",
		SecurityAnswerHash: answer,
	}
	require.NoError(t, e.App.DB.Create(a).Error)

	token, err := e.App.Tokens.GenerateToken(a.ID)
	require.NoError(t, err)
	return a, token
}

// Do sends a request through the router. body is JSON-encoded unless nil.
func (e *Env) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.Handler.ServeHTTP(rec, req)
	return rec
}

// Decode unmarshals a recorded response body.
func Decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// FakeCatalog serves a small fixed catalog over the same paths as the real one.
// Down makes every endpoint answer 503; PopularDown only breaks /movie/popular.
type FakeCatalog struct {
	Down        atomic.Bool
	PopularDown atomic.Bool

	mu     sync.Mutex
	movies map[int64]catalog.MovieDetails
	hits   map[string]int
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		movies: map[int64]catalog.MovieDetails{
			550: {ID: 550, Title: "Fight Club", PosterPath: "/fc.jpg", Overview: "An insomniac office worker.", ReleaseDate: "1999-10-15", VoteAverage: 8.4, VoteCount: 26280, Genres: []catalog.Genre{{ID: 18, Name: "Drama"}}},
			603: {ID: 603, Title: "The Matrix", PosterPath: "/matrix.jpg", Overview: "A hacker learns the truth.", ReleaseDate: "1999-03-30", VoteAverage: 8.2, VoteCount: 24000, Genres: []catalog.Genre{{ID: 878, Name: "Science Fiction"}}},
			13:  {ID: 13, Title: "Forrest Gump", PosterPath: "/fg.jpg", Overview: "Life is like a box of chocolates.", ReleaseDate: "1994-06-23", VoteAverage: 8.5, VoteCount: 27000},
		},
		hits: map[string]int{},
	}
}

// Hits returns how many times endpoint was requested ("movie", "search", "popular", "now_playing").
func (f *FakeCatalog) Hits(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[endpoint]
}

func (f *FakeCatalog) hit(endpoint string) {
	f.mu.Lock()
	f.hits[endpoint]++
	f.mu.Unlock()
}

func (f *FakeCatalog) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if f.Down.Load() {
				http.Error(w, `{"status_message":"service unavailable"}`, http.StatusServiceUnavailable)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		f.hit("popular")
		if f.PopularDown.Load() {
			http.Error(w, `{}`, http.StatusBadGateway)
			return
		}
		f.writePage(w, r, func(m catalog.MovieDetails) bool { return true })
	})
	r.Get("/movie/now_playing", func(w http.ResponseWriter, r *http.Request) {
		f.hit("now_playing")
		f.writePage(w, r, func(m catalog.MovieDetails) bool { return m.ID == 603 })
	})
	r.Get("/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.hit("movie")
		id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		f.mu.Lock()
		m, ok := f.movies[id]
		f.mu.Unlock()
		if !ok {
			http.Error(w, `{"status_code":34}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(m)
	})
	r.Get("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		f.hit("search")
		q := r.URL.Query().Get("query")
		f.writePage(w, r, func(m catalog.MovieDetails) bool {
			return bytes.Contains(bytes.ToLower([]byte(m.Title)), bytes.ToLower([]byte(q)))
		})
	})
	return r
}

func (f *FakeCatalog) writePage(w http.ResponseWriter, r *http.Request, keep func(catalog.MovieDetails) bool) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	f.mu.Lock()
	results := []catalog.MovieSummary{}
	for _, id := range []int64{550, 603, 13} {
		m := f.movies[id]
		if keep(m) {
			results = append(results, catalog.MovieSummary{
				ID:          m.ID,
				Title:       m.Title,
				Overview:    m.Overview,
				PosterPath:  m.PosterPath,
				ReleaseDate: m.ReleaseDate,
				VoteAverage: m.VoteAverage,
				VoteCount:   m.VoteCount,
			})
		}
	}
	f.mu.Unlock()

	_ = json.NewEncoder(w).Encode(catalog.Page{
		Page:         page,
		Results:      results,
		TotalPages:   1,
		TotalResults: len(results),
	})
}

// Path formats an /api path.
func Path(format string, args ...any) string {
	return "/api" + fmt.Sprintf(format, args...)
}
