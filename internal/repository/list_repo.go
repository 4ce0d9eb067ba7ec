package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/movie-rating/internal/db"
)

// ListRepository provides data access for watchlists and their entries.
type ListRepository struct {
	db *gorm.DB
}

func NewListRepository(database *gorm.DB) *ListRepository {
	return &ListRepository{db: database}
}

// FindOrCreate returns the owner's list for visibility, creating it on first use.
//
// Behavior:
//   - Unique (owner_id, visibility) + ON CONFLICT DO NOTHING, then re-read,
//     so two concurrent first adds end up on the same list.
func (r *ListRepository) FindOrCreate(ctx context.Context, ownerID uint64, visibility string) (*db.WatchList, error) {
	list := db.WatchList{OwnerID: ownerID, Visibility: visibility}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "owner_id"}, {Name: "visibility"}},
			DoNothing: true,
		}).
		Create(&list).Error
	if err != nil {
		return nil, err
	}

	var out db.WatchList
	err = r.db.WithContext(ctx).
		Where("owner_id = ? AND visibility = ?", ownerID, visibility).
		First(&out).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ByOwner returns the owner's lists, newest first, with entries (newest first)
// and their movies. An empty visibility returns every list.
func (r *ListRepository) ByOwner(ctx context.Context, ownerID uint64, visibility string) ([]db.WatchList, error) {
	var lists []db.WatchList

	q := r.withEntries(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC")
	if visibility != "" {
		q = q.Where("visibility = ?", visibility)
	}

	if err := q.Find(&lists).Error; err != nil {
		return nil, err
	}
	return lists, nil
}

// FindOwned returns list listID only if ownerID owns it, else gorm.ErrRecordNotFound.
func (r *ListRepository) FindOwned(ctx context.Context, listID, ownerID uint64) (*db.WatchList, error) {
	var list db.WatchList
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", listID, ownerID).
		First(&list).Error
	if err != nil {
		return nil, err
	}
	return &list, nil
}

// Load returns a list with entries and movies.
func (r *ListRepository) Load(ctx context.Context, listID uint64) (*db.WatchList, error) {
	var list db.WatchList
	if err := r.withEntries(ctx).First(&list, listID).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *ListRepository) withEntries(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Entries", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("added_at DESC, id DESC")
		}).
		Preload("Entries.Movie")
}

// AddEntry appends movieID to listID. Already present → gorm.ErrDuplicatedKey.
func (r *ListRepository) AddEntry(ctx context.Context, listID, movieID uint64, comment string) error {
	entry := db.ListEntry{ListID: listID, MovieID: movieID, Comment: comment}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}
	return r.touch(ctx, listID)
}

// UpdateEntryComment reports false when the movie is not on the list.
func (r *ListRepository) UpdateEntryComment(ctx context.Context, listID, movieID uint64, comment string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&db.ListEntry{}).
		Where("list_id = ? AND movie_id = ?", listID, movieID).
		UpdateColumn("comment", comment)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, r.touch(ctx, listID)
}

// RemoveEntry reports false when the movie was not on the list.
func (r *ListRepository) RemoveEntry(ctx context.Context, listID, movieID uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("list_id = ? AND movie_id = ?", listID, movieID).
		Delete(&db.ListEntry{})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, r.touch(ctx, listID)
}

func (r *ListRepository) CountByOwner(ctx context.Context, ownerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.WatchList{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

// DeleteByOwner removes every list of ownerID and their entries. Run inside a transaction.
func (r *ListRepository) DeleteByOwner(ctx context.Context, ownerID uint64) error {
	sub := r.db.Model(&db.WatchList{}).Select("id").Where("owner_id = ?", ownerID)
	if err := r.db.WithContext(ctx).Where("list_id IN (?)", sub).Delete(&db.ListEntry{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(&db.WatchList{}).Error
}

func (r *ListRepository) touch(ctx context.Context, listID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.WatchList{}).
		Where("id = ?", listID).
		UpdateColumn("updated_at", time.Now().UTC()).Error
}
