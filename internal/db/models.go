package db

import (
	"time"
)

// Account table.
// Password and security answer are stored as bcrypt hashes and never serialized.
type Account struct {
	ID                 uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Username           string     `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email              string     `gorm:"uniqueIndex;size:128;not null" json:"email"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-"`
	ProfilePicture     string     `gorm:"size:255" json:"profilePicture"`
	SecurityQuestion   string     `gorm:"size:128;not null" json:"securityQuestion"`
	SecurityAnswerHash string     `gorm:"size:255;not null" json:"-"`
	LastLoginAt        *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Movie is a catalog entry cached locally on first reference.
//
// Indexes:
//   - external_id (unique): one row per catalog id, the target of upserts.
//   - legacy_external_id: rows imported from the old schema may only carry this.
//
// Placeholder rows are written when the catalog was unavailable and are
// replaced in place by the next successful fetch.
type Movie struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ExternalID        int64      `gorm:"uniqueIndex;not null" json:"tmdbId"`
	LegacyExternalID  *int64     `gorm:"index" json:"-"`
	Title             string     `gorm:"size:512;not null" json:"title"`
	OriginalTitle     string     `gorm:"size:512" json:"originalTitle,omitempty"`
	PosterPath        string     `gorm:"size:255" json:"posterPath"`
	BackdropPath      string     `gorm:"size:255" json:"backdropPath,omitempty"`
	Overview          string     `gorm:"type:text" json:"overview"`
	ReleaseDate       *time.Time `json:"releaseDate,omitempty"`
	VoteAverage       float64    `gorm:"not null;default:0" json:"voteAverage"`
	VoteCount         int64      `gorm:"not null;default:0" json:"voteCount"`
	Popularity        float64    `gorm:"not null;default:0" json:"popularity"`
	Genres            []Genre    `gorm:"serializer:json" json:"genres"`
	AverageUserRating float64    `gorm:"not null;default:0" json:"averageUserRating"`
	Placeholder       bool       `gorm:"not null;default:false" json:"placeholder,omitempty"`
	Ratings           []Rating   `gorm:"foreignKey:MovieID" json:"-"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Year returns the release year, or 0 when unknown.
func (m *Movie) Year() int {
	if m.ReleaseDate == nil {
		return 0
	}
	return m.ReleaseDate.Year()
}

// Rating is one account's score for a movie.
//
// Unique (movie_id, account_id): re-rating overwrites in place.
type Rating struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	MovieID   uint64    `gorm:"not null;uniqueIndex:idx_rating_movie_account,priority:1"`
	AccountID uint64    `gorm:"not null;uniqueIndex:idx_rating_movie_account,priority:2;index"`
	Score     float64   `gorm:"not null"`
	Comment   string    `gorm:"size:1000"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
	Account   *Account  `gorm:"foreignKey:AccountID"`
}

// Visibility tags of a watchlist.
const (
	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

// WatchList is an ordered collection of movies.
//
// Unique (owner_id, visibility): at most one list per owner and tag.
type WatchList struct {
	ID         uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerID    uint64      `gorm:"not null;uniqueIndex:idx_watchlist_owner_visibility,priority:1" json:"userId"`
	Visibility string      `gorm:"size:16;not null;uniqueIndex:idx_watchlist_owner_visibility,priority:2" json:"type"`
	Entries    []ListEntry `gorm:"foreignKey:ListID" json:"movies"`
	CreatedAt  time.Time   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt  time.Time   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (WatchList) TableName() string { return "watchlists" }

// ListEntry is one movie on a watchlist.
//
// Unique (list_id, movie_id): a movie appears at most once per list.
type ListEntry struct {
	ID      uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ListID  uint64    `gorm:"not null;uniqueIndex:idx_entry_list_movie,priority:1" json:"-"`
	MovieID uint64    `gorm:"not null;uniqueIndex:idx_entry_list_movie,priority:2;index" json:"-"`
	Movie   *Movie    `gorm:"foreignKey:MovieID" json:"movie"`
	Comment string    `gorm:"size:500" json:"comment"`
	AddedAt time.Time `gorm:"autoCreateTime" json:"addedAt"`
}

// Favorite pins a movie for an account with display fields copied at add time.
// The copies are not refreshed when the movie changes.
//
// Unique (account_id, movie_id).
type Favorite struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID  uint64    `gorm:"not null;uniqueIndex:idx_favorite_account_movie,priority:1" json:"-"`
	MovieID    uint64    `gorm:"not null;uniqueIndex:idx_favorite_account_movie,priority:2;index" json:"-"`
	ExternalID int64     `gorm:"not null;index" json:"tmdbId"`
	Title      string    `gorm:"size:512;not null" json:"title"`
	Poster     string    `gorm:"size:255" json:"poster"`
	Rating     float64   `json:"rating"`
	Year       int       `json:"year"`
	AddedAt    time.Time `gorm:"autoCreateTime" json:"addedAt"`
}

// FriendRequest is a pending request sender -> receiver.
//
// Composite PK: (SenderID, ReceiverID).
type FriendRequest struct {
	SenderID   uint64    `gorm:"primaryKey"`
	ReceiverID uint64    `gorm:"primaryKey;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// Friendship is stored once per direction, so a mutual pair is two rows.
//
// Composite PK: (AccountID, FriendID).
type Friendship struct {
	AccountID uint64    `gorm:"primaryKey"`
	FriendID  uint64    `gorm:"primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Models lists every table in migration order.
func Models() []any {
	return []any{
		&Account{},
		&Movie{},
		&Rating{},
		&WatchList{},
		&ListEntry{},
		&Favorite{},
		&FriendRequest{},
		&Friendship{},
	}
}
