package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/movie-rating/internal/db"
)

// RelationshipRepository stores friend requests and friendships.
//
// A pending request is one friend_requests row (sender → receiver).
// A friendship is two friendships rows, one per direction, so "friends of X"
// is a single indexed lookup. Callers mutate both sides inside one transaction.
type RelationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(database *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{db: database}
}

// LockPair reads the two accounts of a relationship change and reports whether
// both exist. On MySQL the rows are locked in id order (SELECT ... FOR UPDATE),
// so concurrent changes to the same pair run one after another. SQLite
// serializes writers on its own. Run inside a transaction.
func (r *RelationshipRepository) LockPair(ctx context.Context, a, b uint64) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&db.Account{}).
		Select("id").
		Where("id IN ?", []uint64{a, b}).
		Order("id ASC")
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var ids []uint64
	if err := q.Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) == 2, nil
}

// HasRequest checks whether from has a pending request to to.
func (r *RelationshipRepository) HasRequest(ctx context.Context, from, to uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.FriendRequest{}).
		Where("sender_id = ? AND receiver_id = ?", from, to).
		Count(&count).Error
	return count > 0, err
}

// AreFriends checks the a → b row; both rows are always written together.
func (r *RelationshipRepository) AreFriends(ctx context.Context, a, b uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Friendship{}).
		Where("account_id = ? AND friend_id = ?", a, b).
		Count(&count).Error
	return count > 0, err
}

func (r *RelationshipRepository) CreateRequest(ctx context.Context, from, to uint64) error {
	return r.db.WithContext(ctx).Create(&db.FriendRequest{SenderID: from, ReceiverID: to}).Error
}

// DeleteRequest removes from → to and returns how many rows went away (0 or 1).
func (r *RelationshipRepository) DeleteRequest(ctx context.Context, from, to uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("sender_id = ? AND receiver_id = ?", from, to).
		Delete(&db.FriendRequest{})
	return res.RowsAffected, res.Error
}

// CreateFriendship writes both directions; existing rows are kept.
func (r *RelationshipRepository) CreateFriendship(ctx context.Context, a, b uint64) error {
	rows := []db.Friendship{
		{AccountID: a, FriendID: b},
		{AccountID: b, FriendID: a},
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

// DeleteFriendship removes both directions and returns the number of rows deleted.
func (r *RelationshipRepository) DeleteFriendship(ctx context.Context, a, b uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(account_id = ? AND friend_id = ?) OR (account_id = ? AND friend_id = ?)", a, b, b, a).
		Delete(&db.Friendship{})
	return res.RowsAffected, res.Error
}

// Friends returns the friends of id as handle-only accounts, ordered by username.
func (r *RelationshipRepository) Friends(ctx context.Context, id uint64) ([]db.Account, error) {
	return r.accountsVia(ctx, "friendships", "friend_id", "account_id", id)
}

// Sent returns the accounts id has pending requests to.
func (r *RelationshipRepository) Sent(ctx context.Context, id uint64) ([]db.Account, error) {
	return r.accountsVia(ctx, "friend_requests", "receiver_id", "sender_id", id)
}

// Received returns the accounts with pending requests to id.
func (r *RelationshipRepository) Received(ctx context.Context, id uint64) ([]db.Account, error) {
	return r.accountsVia(ctx, "friend_requests", "sender_id", "receiver_id", id)
}

func (r *RelationshipRepository) accountsVia(ctx context.Context, table, joinCol, whereCol string, id uint64) ([]db.Account, error) {
	var accounts []db.Account
	err := r.db.WithContext(ctx).
		Model(&db.Account{}).
		Select("accounts.id", "accounts.username", "accounts.profile_picture").
		Joins("JOIN "+table+" rel ON rel."+joinCol+" = accounts.id").
		Where("rel."+whereCol+" = ?", id).
		Order("accounts.username ASC").
		Find(&accounts).Error
	return accounts, err
}

// Counts returns how many friends, sent and received requests id has.
func (r *RelationshipRepository) Counts(ctx context.Context, id uint64) (friends, sent, received int64, err error) {
	q := r.db.WithContext(ctx)
	if err = q.Model(&db.Friendship{}).Where("account_id = ?", id).Count(&friends).Error; err != nil {
		return
	}
	if err = q.Model(&db.FriendRequest{}).Where("sender_id = ?", id).Count(&sent).Error; err != nil {
		return
	}
	err = q.Model(&db.FriendRequest{}).Where("receiver_id = ?", id).Count(&received).Error
	return
}

// DeleteAllFor removes every request and friendship that mentions id, on both
// sides. Run inside a transaction.
func (r *RelationshipRepository) DeleteAllFor(ctx context.Context, id uint64) error {
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR receiver_id = ?", id, id).
		Delete(&db.FriendRequest{}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("account_id = ? OR friend_id = ?", id, id).
		Delete(&db.Friendship{}).Error
}
