package friends

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/gorm"

	"github.com/oggyb/movie-rating/internal/app"
	"github.com/oggyb/movie-rating/internal/db"
	svcErr "github.com/oggyb/movie-rating/internal/errors"
	"github.com/oggyb/movie-rating/internal/logger"
	"github.com/oggyb/movie-rating/internal/repository"
	"github.com/oggyb/movie-rating/internal/utils/pagination"
)

// searchPageSize is the number of accounts returned per search page.
const searchPageSize = 20

var (
	ErrSelfTarget      = svcErr.InvalidArgument("Cannot send friend request to yourself")
	ErrAlreadyFriends  = svcErr.AlreadyExists("Already friends with this user")
	ErrAlreadyPending  = svcErr.AlreadyExists("A friend request between you and this user is already pending")
	ErrNoSuchRequest   = svcErr.InvalidArgument("No friend request from this user")
	ErrNotFriends      = svcErr.InvalidArgument("You are not friends with this user")
	ErrNotFriendsView  = svcErr.Forbidden("You can only view watchlists of your friends")
	ErrAccountNotFound = svcErr.NotFound("User not found")
	ErrQueryTooShort   = svcErr.InvalidArgument("Search query must be at least 2 characters long")
	ErrInvalidCursor   = svcErr.InvalidArgument("Invalid cursor")
)

// State is the relationship between the caller and another account, seen
// from the caller's side.
type State string

const (
	StateNone     State = "none"
	StateOutgoing State = "outgoing_pending"
	StateIncoming State = "incoming_pending"
	StateMutual   State = "mutual"
)

// Handle is the public face of an account. It never carries an email.
type Handle struct {
	ID             uint64 `json:"id"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
}

type Requests struct {
	Sent     []Handle `json:"sent"`
	Received []Handle `json:"received"`
}

type SearchPage struct {
	Users      []Handle `json:"users"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Watchlist is a friend's public list. User is nil when the friend has no
// public list yet.
type Watchlist struct {
	ID     uint64         `json:"id,omitempty"`
	Type   string         `json:"type,omitempty"`
	User   *Handle        `json:"user"`
	Movies []db.ListEntry `json:"movies"`
}

// Service runs the friend request lifecycle.
//
// Every transition reads and writes both sides of the pair inside one
// transaction, so a request is never half-sent and a friendship never
// half-formed.
type Service struct {
	appCtx   *app.AppContext
	rels     *repository.RelationshipRepository
	accounts *repository.AccountRepository
	lists    *repository.ListRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		rels:     repository.NewRelationshipRepository(appCtx.DB),
		accounts: repository.NewAccountRepository(appCtx.DB),
		lists:    repository.NewListRepository(appCtx.DB),
	}
}

// State reports how me relates to other.
func (s *Service) State(ctx context.Context, me, other uint64) (State, error) {
	return stateOf(ctx, s.rels, me, other)
}

func stateOf(ctx context.Context, rels *repository.RelationshipRepository, me, other uint64) (State, error) {
	friends, err := rels.AreFriends(ctx, me, other)
	if err != nil {
		return "", err
	}
	if friends {
		return StateMutual, nil
	}
	out, err := rels.HasRequest(ctx, me, other)
	if err != nil {
		return "", err
	}
	if out {
		return StateOutgoing, nil
	}
	in, err := rels.HasRequest(ctx, other, me)
	if err != nil {
		return "", err
	}
	if in {
		return StateIncoming, nil
	}
	return StateNone, nil
}

// Send moves the pair from none to me→target pending.
func (s *Service) Send(ctx context.Context, me, target uint64) error {
	err := s.transition(ctx, me, target, func(rels *repository.RelationshipRepository, st State) error {
		switch st {
		case StateMutual:
			return ErrAlreadyFriends
		case StateOutgoing, StateIncoming:
			return ErrAlreadyPending
		}
		err := rels.CreateRequest(ctx, me, target)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyPending.Wrap(err)
		}
		return err
	})
	if err != nil {
		return err
	}
	s.log(ctx).Info("friend request sent", "from", me, "to", target)
	return nil
}

// Accept turns from's pending request to me into a friendship.
func (s *Service) Accept(ctx context.Context, me, from uint64) error {
	err := s.transition(ctx, me, from, func(rels *repository.RelationshipRepository, _ State) error {
		n, err := rels.DeleteRequest(ctx, from, me)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNoSuchRequest
		}
		if _, err := rels.DeleteRequest(ctx, me, from); err != nil {
			return err
		}
		return rels.CreateFriendship(ctx, me, from)
	})
	if err != nil {
		return err
	}
	s.log(ctx).Info("friend request accepted", "from", from, "to", me)
	return nil
}

// Reject drops from's request to me. No request is not an error.
func (s *Service) Reject(ctx context.Context, me, from uint64) error {
	return s.dropRequest(ctx, me, from, me)
}

// Cancel withdraws me's request to target. No request is not an error.
func (s *Service) Cancel(ctx context.Context, me, target uint64) error {
	return s.dropRequest(ctx, me, me, target)
}

func (s *Service) dropRequest(ctx context.Context, me, from, to uint64) error {
	other := from
	if other == me {
		other = to
	}
	return s.transition(ctx, me, other, func(rels *repository.RelationshipRepository, _ State) error {
		_, err := rels.DeleteRequest(ctx, from, to)
		return err
	})
}

// Remove ends a friendship on both sides.
func (s *Service) Remove(ctx context.Context, me, friend uint64) error {
	err := s.transition(ctx, me, friend, func(rels *repository.RelationshipRepository, _ State) error {
		n, err := rels.DeleteFriendship(ctx, me, friend)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFriends
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log(ctx).Info("friendship removed", "account", me, "friend", friend)
	return nil
}

// transition runs fn in a transaction after locking the pair and reading its
// current state. A missing account on either side → ErrAccountNotFound.
func (s *Service) transition(
	ctx context.Context,
	me, other uint64,
	fn func(rels *repository.RelationshipRepository, st State) error,
) error {
	if me == other {
		return ErrSelfTarget
	}
	return s.appCtx.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels := repository.NewRelationshipRepository(tx)
		ok, err := rels.LockPair(ctx, me, other)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAccountNotFound
		}
		st, err := stateOf(ctx, rels, me, other)
		if err != nil {
			return err
		}
		return fn(rels, st)
	})
}

func (s *Service) Friends(ctx context.Context, me uint64) ([]Handle, error) {
	accounts, err := s.rels.Friends(ctx, me)
	if err != nil {
		return nil, err
	}
	return handles(accounts), nil
}

func (s *Service) Requests(ctx context.Context, me uint64) (*Requests, error) {
	sent, err := s.rels.Sent(ctx, me)
	if err != nil {
		return nil, err
	}
	received, err := s.rels.Received(ctx, me)
	if err != nil {
		return nil, err
	}
	return &Requests{Sent: handles(sent), Received: handles(received)}, nil
}

// Search finds accounts by handle substring, excluding the caller.
// cursor is the opaque token from the previous page; "" starts over.
func (s *Service) Search(ctx context.Context, me uint64, query, cursor string) (*SearchPage, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, ErrQueryTooShort
	}
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, ErrInvalidCursor.Wrap(err)
	}

	// one extra row tells us whether another page exists
	accounts, err := s.accounts.Search(ctx, query, me, cur.LastID, searchPageSize+1)
	if err != nil {
		return nil, err
	}

	page := &SearchPage{}
	if len(accounts) > searchPageSize {
		accounts = accounts[:searchPageSize]
		next, err := pagination.Encode(pagination.Cursor{LastID: accounts[len(accounts)-1].ID})
		if err != nil {
			return nil, err
		}
		page.NextCursor = next
	}
	page.Users = handles(accounts)
	return page, nil
}

// FriendWatchlist returns friend's public list. Only mutual friends may look.
func (s *Service) FriendWatchlist(ctx context.Context, me, friend uint64) (*Watchlist, error) {
	ok, err := s.rels.AreFriends(ctx, me, friend)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFriendsView
	}

	lists, err := s.lists.ByOwner(ctx, friend, db.VisibilityPublic)
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return &Watchlist{Movies: []db.ListEntry{}}, nil
	}

	owner, err := s.accounts.FindByID(ctx, friend)
	if err != nil {
		return nil, err
	}
	list := lists[0]
	out := &Watchlist{
		ID:     list.ID,
		Type:   list.Visibility,
		User:   &Handle{ID: owner.ID, Username: owner.Username, ProfilePicture: owner.ProfilePicture},
		Movies: list.Entries,
	}
	if out.Movies == nil {
		out.Movies = []db.ListEntry{}
	}
	return out, nil
}

func (s *Service) log(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.appCtx.Logger)
}

func handles(accounts []db.Account) []Handle {
	out := make([]Handle, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, Handle{ID: a.ID, Username: a.Username, ProfilePicture: a.ProfilePicture})
	}
	return out
}
