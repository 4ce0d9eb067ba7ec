package movies

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/cache"
	"github.com/oggyb/movie-rating/internal/catalog"
	"github.com/oggyb/movie-rating/internal/db"
	svcErr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/moviecache"
)

// maxPage is the last page the catalog serves.
const maxPage = 500

var (
	ErrQueryTooShort      = svcErr.InvalidArgument("Search query must be at least 2 characters long")
	ErrSearchUnavailable  = svcErr.Upstream("Error searching movies")
	ErrPopularUnavailable = svcErr.Upstream("Error fetching popular movies")
)

// Lister is the part of the catalog used for browsing.
type Lister interface {
	Search(ctx context.Context, query string, page int) (*catalog.Page, error)
	Popular(ctx context.Context, page int) (*catalog.Page, error)
	NowPlaying(ctx context.Context, page int) (*catalog.Page, error)
}

// Handle identifies the author of a rating.
type Handle struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

type RatingView struct {
	User      Handle    `json:"user"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MovieView is a stored movie with its local ratings.
type MovieView struct {
	*db.Movie
	Ratings []RatingView `json:"ratings"`
}

type RatingsView struct {
	Title   string       `json:"title"`
	Ratings []RatingView `json:"ratings"`
}

// Service serves catalog browsing, movie details and local ratings.
type Service struct {
	appCtx  *app.AppContext
	lister  Lister
	resolve *moviecache.Resolver
	ttl     time.Duration
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:  appCtx,
		lister:  appCtx.Catalog,
		resolve: appCtx.Movies,
		ttl:     appCtx.Config.Catalog.CacheTTL,
	}
}

// Search returns one page of catalog title matches, cache-first.
func (s *Service) Search(ctx context.Context, query string, page int) (*catalog.Page, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, ErrQueryTooShort
	}
	page = clampPage(page)

	return s.cached(ctx, "search", cache.KeyForSearch(query, page), func() (*catalog.Page, error) {
		p, err := s.lister.Search(ctx, query, page)
		if err != nil {
			return nil, ErrSearchUnavailable.Wrap(err)
		}
		return p, nil
	})
}

// Popular returns one page of popular titles, cache-first. When the popular
// list fails, the now-playing list is served instead.
func (s *Service) Popular(ctx context.Context, page int) (*catalog.Page, error) {
	page = clampPage(page)

	return s.cached(ctx, "popular", cache.KeyForPopular(page), func() (*catalog.Page, error) {
		p, err := s.lister.Popular(ctx, page)
		if err == nil {
			return p, nil
		}
		log := logger.FromContext(ctx, s.appCtx.Logger)
		log.Warn("popular list failed, trying now playing", "page", page, "err", err)

		p, fallbackErr := s.lister.NowPlaying(ctx, page)
		if fallbackErr != nil {
			return nil, ErrPopularUnavailable.Wrap(errors.Join(err, fallbackErr))
		}
		return p, nil
	})
}

// cached serves key from redis or calls fetch and stores its result. Redis
// failures degrade to a direct fetch.
func (s *Service) cached(ctx context.Context, name, key string, fetch func() (*catalog.Page, error)) (*catalog.Page, error) {
	log := logger.FromContext(ctx, s.appCtx.Logger)

	var page catalog.Page
	hit, err := s.appCtx.RedisCache.GetJSON(ctx, name, key, &page)
	if err != nil {
		log.Warn("catalog cache read failed", "key", key, "err", err)
	}
	if hit {
		return &page, nil
	}

	p, err := fetch()
	if err != nil {
		return nil, err
	}
	if err := s.appCtx.RedisCache.SetJSON(ctx, key, p, s.ttl); err != nil {
		log.Warn("catalog cache write failed", "key", key, "err", err)
	}
	return p, nil
}

// Details resolves the movie, fetching it on first reference, and returns it
// with local ratings.
func (s *Service) Details(ctx context.Context, externalID int64) (*MovieView, error) {
	m, err := s.resolve.Resolve(ctx, externalID, moviecache.PolicyPropagate)
	if err != nil {
		return nil, err
	}
	m, err = s.resolve.WithRatings(ctx, m)
	if err != nil {
		return nil, err
	}
	return view(m), nil
}

// Rate stores the caller's rating and returns the updated movie.
func (s *Service) Rate(ctx context.Context, accountID uint64, externalID int64, score float64, comment string) (*MovieView, error) {
	m, err := s.resolve.Rate(ctx, accountID, externalID, score, comment)
	if err != nil {
		return nil, err
	}
	logger.FromContext(ctx, s.appCtx.Logger).Debug("movie rated", "external_id", externalID, "score", score)
	return view(m), nil
}

// Ratings lists local ratings of a movie that has been stored before; it
// never contacts the catalog.
func (s *Service) Ratings(ctx context.Context, externalID int64) (*RatingsView, error) {
	m, err := s.resolve.Lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	m, err = s.resolve.WithRatings(ctx, m)
	if err != nil {
		return nil, err
	}
	return &RatingsView{Title: m.Title, Ratings: ratingViews(m.Ratings)}, nil
}

func view(m *db.Movie) *MovieView {
	return &MovieView{Movie: m, Ratings: ratingViews(m.Ratings)}
}

func ratingViews(ratings []db.Rating) []RatingView {
	out := make([]RatingView, 0, len(ratings))
	for _, r := range ratings {
		v := RatingView{
			User:      Handle{ID: r.AccountID},
			Rating:    r.Score,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		}
		if r.Account != nil {
			v.User.Username = r.Account.Username
		}
		out = append(out, v)
	}
	return out
}

func clampPage(page int) int {
	switch {
	case page < 1:
		return 1
	case page > maxPage:
		return maxPage
	default:
		return page
	}
}
