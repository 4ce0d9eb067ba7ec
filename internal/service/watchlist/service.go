package watchlist

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/db"
	svcErr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/moviecache"
	"github.com/oggyb/movie-rating/internal/repository"
)

var (
	ErrInvalidType   = svcErr.InvalidArgument(`Type must be either "public" or "private"`)
	ErrAlreadyListed = svcErr.AlreadyExists("Movie already exists in this watchlist")
	ErrListNotFound  = svcErr.NotFound("Watchlist not found")
	ErrEntryNotFound = svcErr.NotFound("Movie not found in watchlist")
)

type AddRequest struct {
	MovieID int64  `json:"movieId" validate:"required,gt=0"`
	Type    string `json:"type"`
	Comment string `json:"comment" validate:"max=500"`
}

type CommentRequest struct {
	Comment string `json:"comment" validate:"max=500"`
}

// Service manages the caller's public and private watchlists.
type Service struct {
	appCtx *app.AppContext
	lists  *repository.ListRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx: appCtx,
		lists:  repository.NewListRepository(appCtx.DB),
	}
}

// List returns the caller's lists, newest first. visibility "" means both.
func (s *Service) List(ctx context.Context, ownerID uint64, visibility string) ([]db.WatchList, error) {
	if err := checkType(visibility); err != nil {
		return nil, err
	}
	lists, err := s.lists.ByOwner(ctx, ownerID, visibility)
	if err != nil {
		return nil, err
	}
	if lists == nil {
		lists = []db.WatchList{}
	}
	return lists, nil
}

// Add puts a movie on the caller's list of the requested visibility.
//
// Behavior:
//   - The movie is resolved with the placeholder policy, so a catalog outage
//     still lets the user save the movie; the row is upgraded later.
//   - The list is created on first use.
//   - A movie already on that list → ErrAlreadyListed (409).
func (s *Service) Add(ctx context.Context, ownerID uint64, req AddRequest) (*db.WatchList, error) {
	if err := checkType(req.Type); err != nil {
		return nil, err
	}
	visibility := req.Type
	if visibility == "" {
		visibility = db.VisibilityPublic
	}

	movie, err := s.appCtx.Movies.Resolve(ctx, req.MovieID, moviecache.PolicyPlaceholder)
	if err != nil {
		return nil, err
	}

	var listID uint64
	err = s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lists := repository.NewListRepository(tx)
		list, err := lists.FindOrCreate(ctx, ownerID, visibility)
		if err != nil {
			return err
		}
		listID = list.ID
		return lists.AddEntry(ctx, list.ID, movie.ID, strings.TrimSpace(req.Comment))
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrAlreadyListed.Wrap(err)
	}
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.appCtx.Logger).Debug("watchlist entry added",
		"list_id", listID, "external_id", req.MovieID, "placeholder", movie.Placeholder)
	return s.lists.Load(ctx, listID)
}

// UpdateComment replaces the comment of a movie on one of the caller's lists.
func (s *Service) UpdateComment(ctx context.Context, ownerID, listID uint64, externalID int64, comment string) error {
	list, movie, err := s.entryTarget(ctx, ownerID, listID, externalID)
	if err != nil {
		return err
	}
	ok, err := s.lists.UpdateEntryComment(ctx, list.ID, movie.ID, strings.TrimSpace(comment))
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}
	return nil
}

// Remove takes a movie off one of the caller's lists.
func (s *Service) Remove(ctx context.Context, ownerID, listID uint64, externalID int64) error {
	list, movie, err := s.entryTarget(ctx, ownerID, listID, externalID)
	if err != nil {
		return err
	}
	ok, err := s.lists.RemoveEntry(ctx, list.ID, movie.ID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrEntryNotFound
	}
	return nil
}

// entryTarget checks ownership and maps the catalog id to the stored movie.
// A list owned by someone else is reported as missing.
func (s *Service) entryTarget(ctx context.Context, ownerID, listID uint64, externalID int64) (*db.WatchList, *db.Movie, error) {
	list, err := s.lists.FindOwned(ctx, listID, ownerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, ErrListNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	movie, err := s.appCtx.Movies.Lookup(ctx, externalID)
	if errors.Is(err, moviecache.ErrMovieNotFound) {
		return nil, nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, nil, err
	}
	return list, movie, nil
}

// checkType accepts "" as "not specified".
func checkType(visibility string) error {
	switch visibility {
	case "", db.VisibilityPublic, db.VisibilityPrivate:
		return nil
	}
	return ErrInvalidType
}
