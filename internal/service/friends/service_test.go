package friends_test

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/movie-rating/internal/app/apptest"
	"github.com/oggyb/movie-rating/internal/db"
	"github.com/oggyb/movie-rating/internal/server"
	"github.com/oggyb/movie-rating/internal/service/friends"
	"github.com/oggyb/movie-rating/internal/service/watchlist"
)

func setup(t *testing.T) *apptest.Env {
	t.Helper()
	env := apptest.New(t)
	return env.Mount(friends.NewRegistrar(env.App), watchlist.NewRegistrar(env.App))
}

type pair struct {
	aliceID, bobID uint64
	alice, bob     string
}

func twoAccounts(t *testing.T, env *apptest.Env) pair {
	t.Helper()
	a, aliceTok := env.Account(t, "alice")
	b, bobTok := env.Account(t, "bob")
	return pair{aliceID: a.ID, bobID: b.ID, alice: aliceTok, bob: bobTok}
}

func state(t *testing.T, env *apptest.Env, token string, other uint64) friends.State {
	t.Helper()
	rec := env.Do(t, http.MethodGet, apptest.Path("/friends/status/%d", other), token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return friends.State(apptest.Decode[map[string]any](t, rec)["state"].(string))
}

func TestSendAndAccept(t *testing.T) {
	env := setup(t)
	p := twoAccounts(t, env)

	rec := env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.bobID), "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.bobID), p.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Friend request sent successfully", apptest.Decode[server.ErrorBody](t, rec).Message)

	assert.Equal(t, friends.StateOutgoing, state(t, env, p.alice, p.bobID))
	assert.Equal(t, friends.StateIncoming, state(t, env, p.bob, p.aliceID))

	t.Run("invalid sends", func(t *testing.T) {
		cases := []struct {
			name   string
			token  string
			target uint64
			status int
		}{
			{"to self", p.alice, p.aliceID, http.StatusBadRequest},
			{"repeat", p.alice, p.bobID, http.StatusConflict},
			{"reverse while pending", p.bob, p.aliceID, http.StatusConflict},
			{"unknown account", p.alice, 9999, http.StatusNotFound},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				rec := env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", tc.target), tc.token, nil)
				assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			})
		}
	})

	rec = env.Do(t, http.MethodGet, "/api/friends/requests", p.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reqs := apptest.Decode[friends.Requests](t, rec)
	assert.Empty(t, reqs.Sent)
	require.Len(t, reqs.Received, 1)
	assert.Equal(t, "alice", reqs.Received[0].Username)
	assert.NotContains(t, rec.Body.String(), "email")

	// only the receiver can accept
	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/accept/%d", p.bobID), p.alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No friend request from this user", apptest.Decode[server.ErrorBody](t, rec).Message)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/accept/%d", p.aliceID), p.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, side := range []struct {
		token string
		want  string
	}{{p.alice, "bob"}, {p.bob, "alice"}} {
		rec := env.Do(t, http.MethodGet, "/api/friends/list", side.token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		list := apptest.Decode[[]friends.Handle](t, rec)
		require.Len(t, list, 1)
		assert.Equal(t, side.want, list[0].Username)

		rec = env.Do(t, http.MethodGet, "/api/friends/requests", side.token, nil)
		assert.JSONEq(t, `{"sent":[],"received":[]}`, rec.Body.String())
	}

	assert.Equal(t, friends.StateMutual, state(t, env, p.alice, p.bobID))

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.aliceID), p.bob, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Already friends with this user", apptest.Decode[server.ErrorBody](t, rec).Message)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/accept/%d", p.aliceID), p.bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRejectAndCancel(t *testing.T) {
	env := setup(t)
	p := twoAccounts(t, env)

	rec := env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.bobID), p.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/reject/%d", p.aliceID), p.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, friends.StateNone, state(t, env, p.alice, p.bobID))
	assert.Equal(t, friends.StateNone, state(t, env, p.bob, p.aliceID))

	// nothing left to reject
	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/reject/%d", p.aliceID), p.bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// either side may start over
	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.aliceID), p.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/cancel/%d", p.aliceID), p.bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, friends.StateNone, state(t, env, p.bob, p.aliceID))

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/cancel/%d", p.aliceID), p.bob, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.Do(t, http.MethodPost, apptest.Path("/friends/reject/%d", 9999), p.bob, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRemove(t *testing.T) {
	env := setup(t)
	p := twoAccounts(t, env)

	rec := env.Do(t, http.MethodDelete, apptest.Path("/friends/remove/%d", p.bobID), p.alice, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, env.App.DB.Create(&[]db.Friendship{
		{AccountID: p.aliceID, FriendID: p.bobID},
		{AccountID: p.bobID, FriendID: p.aliceID},
	}).Error)

	rec = env.Do(t, http.MethodPost, "/api/watchlist", p.bob, map[string]any{"movieId": 550})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = env.Do(t, http.MethodGet, apptest.Path("/friends/%d/watchlist", p.bobID), p.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.Do(t, http.MethodDelete, apptest.Path("/friends/remove/%d", p.bobID), p.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var n int64
	require.NoError(t, env.App.DB.Model(&db.Friendship{}).Count(&n).Error)
	assert.Zero(t, n)

	for _, side := range []struct {
		token string
		other uint64
	}{{p.alice, p.bobID}, {p.bob, p.aliceID}} {
		rec := env.Do(t, http.MethodGet, apptest.Path("/friends/%d/watchlist", side.other), side.token, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	}

	rec = env.Do(t, http.MethodDelete, apptest.Path("/friends/remove/%d", p.aliceID), p.bob, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFriendWatchlist(t *testing.T) {
	env := setup(t)
	p := twoAccounts(t, env)
	path := apptest.Path("/friends/%d/watchlist", p.bobID)

	rec := env.Do(t, http.MethodGet, path, p.alice, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "You can only view watchlists of your friends", apptest.Decode[server.ErrorBody](t, rec).Message)

	require.Equal(t, http.StatusOK, env.Do(t, http.MethodPost, apptest.Path("/friends/request/%d", p.bobID), p.alice, nil).Code)
	require.Equal(t, http.StatusOK, env.Do(t, http.MethodPost, apptest.Path("/friends/accept/%d", p.aliceID), p.bob, nil).Code)

	rec = env.Do(t, http.MethodPost, "/api/watchlist", p.bob, map[string]any{"movieId": 603, "type": "private"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("no public list", func(t *testing.T) {
		rec := env.Do(t, http.MethodGet, path, p.alice, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":null,"movies":[]}`, rec.Body.String())
	})

	rec = env.Do(t, http.MethodPost, "/api/watchlist", p.bob, map[string]any{"movieId": 550, "comment": "great film"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.Do(t, http.MethodGet, path, p.alice, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := apptest.Decode[friends.Watchlist](t, rec)
	require.NotNil(t, got.User)
	assert.Equal(t, "bob", got.User.Username)
	assert.Equal(t, db.VisibilityPublic, got.Type)
	require.Len(t, got.Movies, 1)
	assert.Equal(t, "great film", got.Movies[0].Comment)
	require.NotNil(t, got.Movies[0].Movie)
	assert.Equal(t, "Fight Club", got.Movies[0].Movie.Title)
}

func TestSearch(t *testing.T) {
	env := setup(t)
	_, token := env.Account(t, "searcher")

	for i := range 25 {
		require.NoError(t, env.App.DB.Create(&db.Account{
			Username:           fmt.Sprintf("movie_fan%02d", i),
			Email:              fmt.Sprintf("fan%02d@example.com", i),
			PasswordHash:       "x",
			SecurityQuestion:   "What is your favorite animal?",
			SecurityAnswerHash: "x",
		}).Error)
	}

	search := func(query, cursor string) *friends.SearchPage {
		t.Helper()
		v := url.Values{"query": {query}}
		if cursor != "" {
			v.Set("cursor", cursor)
		}
		rec := env.Do(t, http.MethodGet, "/api/friends/search?"+v.Encode(), token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "email")
		page := apptest.Decode[friends.SearchPage](t, rec)
		return &page
	}

	first := search("FAN", "")
	assert.Len(t, first.Users, 20)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, "movie_fan00", first.Users[0].Username)

	second := search("FAN", first.NextCursor)
	assert.Len(t, second.Users, 5)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, "movie_fan20", second.Users[0].Username)

	assert.Empty(t, search("searcher", "").Users)
	assert.Len(t, search("fan07", "").Users, 1)

	rec := env.Do(t, http.MethodGet, "/api/friends/search?query=f", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.Do(t, http.MethodGet, "/api/friends/search?query=fan&cursor=%25%25", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
