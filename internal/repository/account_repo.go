package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/db"
)

// AccountRepository provides data access methods for the Account model.
type AccountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new repository bound to the given DB connection
// (or transaction).
func NewAccountRepository(database *gorm.DB) *AccountRepository {
	return &AccountRepository{db: database}
}

// Create inserts a new account. Duplicate username or email → gorm.ErrDuplicatedKey.
func (r *AccountRepository) Create(ctx context.Context, a *db.Account) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *AccountRepository) FindByID(ctx context.Context, id uint64) (*db.Account, error) {
	var a db.Account
	if err := r.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByEmail matches case-insensitively; emails are stored lower-cased.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*db.Account, error) {
	var a db.Account
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// UsernameTaken reports whether another account (not excludeID) uses username,
// ignoring case so MySQL and SQLite agree.
func (r *AccountRepository) UsernameTaken(ctx context.Context, username string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)), excludeID)
}

// EmailTaken reports whether another account (not excludeID) uses email.
func (r *AccountRepository) EmailTaken(ctx context.Context, email string, excludeID uint64) (bool, error) {
	return r.exists(ctx, "email = ?", strings.ToLower(strings.TrimSpace(email)), excludeID)
}

func (r *AccountRepository) exists(ctx context.Context, cond string, value string, excludeID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where(cond, value).
		Where("id <> ?", excludeID).
		Count(&count).Error
	return count > 0, err
}

// Update writes the given columns. Zero values are written too.
func (r *AccountRepository) Update(ctx context.Context, id uint64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&db.Account{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AccountRepository) TouchLogin(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&db.Account{}).
		Where("id = ?", id).
		UpdateColumn("last_login_at", at).Error
}

// Search returns accounts whose username contains query (case-insensitive),
// excluding excludeID, ordered by id and starting after afterID.
//
// Example:
//
//	repo.Search(ctx, "ali", 7, 0, 20) // first page of handles containing "ali"
func (r *AccountRepository) Search(
	ctx context.Context,
	query string,
	excludeID, afterID uint64,
	limit int,
) ([]db.Account, error) {
	var accounts []db.Account

	q := r.db.WithContext(ctx).
		Select("id", "username", "profile_picture").
		Where("LOWER(username) LIKE ? ESCAPE '!'", "%"+escapeLike(strings.ToLower(query))+"%").
		Where("id <> ?", excludeID).
		Order("id ASC").
		Limit(limit)
	if afterID > 0 {
		q = q.Where("id > ?", afterID)
	}

	if err := q.Find(&accounts).Error; err != nil {
		return nil, err
	}
	return accounts, nil
}

// Delete removes the account row only; dependent rows are removed by the caller
// in the same transaction.
func (r *AccountRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&db.Account{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
