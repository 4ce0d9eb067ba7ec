package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/db"
)

// FavoriteRepository provides data access for favourites. Lookups are by the
// catalog id the client knows, not the local movie id.
type FavoriteRepository struct {
	db *gorm.DB
}

func NewFavoriteRepository(database *gorm.DB) *FavoriteRepository {
	return &FavoriteRepository{db: database}
}

// Create inserts a favourite. Same movie twice → gorm.ErrDuplicatedKey.
func (r *FavoriteRepository) Create(ctx context.Context, f *db.Favorite) error {
	return r.db.WithContext(ctx).Create(f).Error
}

// List returns the account's favourites, most recently added first.
func (r *FavoriteRepository) List(ctx context.Context, accountID uint64) ([]db.Favorite, error) {
	var favs []db.Favorite
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("added_at DESC, id DESC").
		Find(&favs).Error
	return favs, err
}

func (r *FavoriteRepository) FindByExternalID(ctx context.Context, accountID uint64, externalID int64) (*db.Favorite, error) {
	var f db.Favorite
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		First(&f).Error
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteByExternalID reports false when nothing was removed.
func (r *FavoriteRepository) DeleteByExternalID(ctx context.Context, accountID uint64, externalID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("account_id = ? AND external_id = ?", accountID, externalID).
		Delete(&db.Favorite{})
	return res.RowsAffected > 0, res.Error
}

// Clear removes every favourite of accountID and returns how many were removed.
func (r *FavoriteRepository) Clear(ctx context.Context, accountID uint64) (int64, error) {
	res := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&db.Favorite{})
	return res.RowsAffected, res.Error
}

func (r *FavoriteRepository) Count(ctx context.Context, accountID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Favorite{}).Where("account_id = ?", accountID).Count(&count).Error
	return count, err
}
