package favourites

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/db"
	svcErr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/moviecache"
	"github.com/oggyb/movie-rating/internal/repository"
)

var (
	ErrAlreadyFavourite = svcErr.AlreadyExists("Movie already in favorites")
	ErrFavouriteMissing = svcErr.NotFound("Favorite not found")
)

type AddRequest struct {
	TmdbID int64 `json:"tmdbId" validate:"required,gt=0"`
}

// Service manages the caller's favourite movies.
type Service struct {
	appCtx    *app.AppContext
	favorites *repository.FavoriteRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		favorites: repository.NewFavoriteRepository(appCtx.DB),
	}
}

func (s *Service) List(ctx context.Context, accountID uint64) ([]db.Favorite, error) {
	favs, err := s.favorites.List(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if favs == nil {
		favs = []db.Favorite{}
	}
	return favs, nil
}

func (s *Service) Get(ctx context.Context, accountID uint64, externalID int64) (*db.Favorite, error) {
	f, err := s.favorites.FindByExternalID(ctx, accountID, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrFavouriteMissing
	}
	return f, err
}

// Add pins a movie. The favourite keeps a copy of title, poster, catalog
// rating and year as they are now; later changes to the movie are not copied.
//
// Behavior:
//   - The movie is resolved with the propagate policy: no favourite is
//     created from a placeholder.
//   - Same movie twice → ErrAlreadyFavourite (409).
func (s *Service) Add(ctx context.Context, accountID uint64, externalID int64) (*db.Favorite, error) {
	movie, err := s.appCtx.Movies.Resolve(ctx, externalID, moviecache.PolicyPropagate)
	if err != nil {
		return nil, err
	}

	f := &db.Favorite{
		AccountID:  accountID,
		MovieID:    movie.ID,
		ExternalID: movie.ExternalID,
		Title:      movie.Title,
		Poster:     movie.PosterPath,
		Rating:     movie.VoteAverage,
		Year:       movie.Year(),
	}
	if err := s.favorites.Create(ctx, f); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyFavourite.Wrap(err)
		}
		return nil, err
	}
	return f, nil
}

func (s *Service) Remove(ctx context.Context, accountID uint64, externalID int64) error {
	ok, err := s.favorites.DeleteByExternalID(ctx, accountID, externalID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrFavouriteMissing
	}
	return nil
}

// Clear removes every favourite of the caller and reports how many went away.
func (s *Service) Clear(ctx context.Context, accountID uint64) (int64, error) {
	return s.favorites.Clear(ctx, accountID)
}
