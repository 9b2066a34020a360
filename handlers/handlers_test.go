package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"sharehub/database"
	"sharehub/feed"
	"sharehub/handlers"
	"sharehub/models"
	"sharehub/notify"
)

const testPassword = "Sup3rSecret!"

func setupRouter(t *testing.T) *mux.Router {
	t.Helper()

	err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.DB.Close() })

	handlers.Feed = feed.NewStore()
	handlers.Notifier = nil
	handlers.BaseURL = "http://localhost:4422"

	return handlers.NewRouter()
}

func doForm(t *testing.T, router *mux.Router, method, path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var body string
	if form != nil {
		body = form.Encode()
	}
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doGet(t *testing.T, router *mux.Router, path string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func registerAndLogin(t *testing.T, router *mux.Router, email string) *http.Cookie {
	t.Helper()

	rec := doForm(t, router, http.MethodPost, "/api/register",
		url.Values{"email": {email}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doForm(t, router, http.MethodPost, "/api/login",
		url.Values{"email": {email}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == "session_token" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set on login")
	return nil
}

func submitShare(t *testing.T, router *mux.Router, session *http.Cookie, title, description, category, link string) {
	t.Helper()

	rec := doForm(t, router, http.MethodPost, "/api/share", url.Values{
		"title":       {title},
		"description": {description},
		"category":    {category},
		"url":         {link},
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

type listingResponse struct {
	Posts []models.PostWithVotes `json:"posts"`
	Total int                    `json:"total"`
}

func TestRegister_Duplicate(t *testing.T) {
	router := setupRouter(t)

	rec := doForm(t, router, http.MethodPost, "/api/register",
		url.Values{"email": {"cy@example.com"}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doForm(t, router, http.MethodPost, "/api/register",
		url.Values{"email": {"cy@example.com"}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	decode(t, rec, &resp)
	require.Contains(t, resp["error"], "already registered")
}

func TestMe(t *testing.T) {
	router := setupRouter(t)

	rec := doGet(t, router, "/api/me", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var anon struct {
		User *models.User `json:"user"`
	}
	decode(t, rec, &anon)
	require.Nil(t, anon.User)

	session := registerAndLogin(t, router, "me@example.com")
	rec = doGet(t, router, "/api/me", session)
	var authed struct {
		User *models.User `json:"user"`
	}
	decode(t, rec, &authed)
	require.NotNil(t, authed.User)
	require.Equal(t, "me@example.com", authed.User.Email)
}

func TestLogout_EndsSession(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "out@example.com")

	rec := doForm(t, router, http.MethodPost, "/api/logout", nil, session)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, router, "/api/posts", session)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestShareSubmit_ValidationMakesNoWrites(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "author@example.com")

	rec := doForm(t, router, http.MethodPost, "/api/share", url.Values{
		"title":       {"Test Card"},
		"description": {""},
		"category":    {"credit card"},
	}, session)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp struct {
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &resp)
	require.Contains(t, resp.Fields, "description")

	var count int
	err := database.DB.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	require.NoError(t, err)
	require.Zero(t, count, "rejected submission must not write anything")
}

func TestShareSubmit_EndToEnd(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "author@example.com")

	submitShare(t, router, session, "Test Card", "solid signup bonus", "credit card", "")

	rec := doGet(t, router, "/api/posts", session)
	require.Equal(t, http.StatusOK, rec.Code)

	var listing listingResponse
	decode(t, rec, &listing)
	require.Equal(t, 1, listing.Total)
	require.Len(t, listing.Posts, 1)

	got := listing.Posts[0]
	require.Equal(t, "Test Card", got.Title)
	require.Equal(t, models.TypeSharing, got.Type)
	require.Equal(t, "credit card", got.Category)
	require.Empty(t, got.URL)
	require.Empty(t, got.Location)
	require.Zero(t, got.UpCount)
	require.Zero(t, got.DownCount)
}

func TestAskSubmit_EndToEnd(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "asker@example.com")

	rec := doForm(t, router, http.MethodPost, "/api/ask", url.Values{
		"title":    {"Best eSIM deal"},
		"details":  {"traveling to Europe next month"},
		"category": {"mobile / internet"},
		"location": {"Online"},
	}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doGet(t, router, "/api/posts", session)
	var listing listingResponse
	decode(t, rec, &listing)
	require.Len(t, listing.Posts, 1)
	require.Equal(t, models.TypeAsk, listing.Posts[0].Type)
	require.Equal(t, "Online", listing.Posts[0].Location)
}

func TestListing_Filters(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "author@example.com")

	submitShare(t, router, session, "Chase Sapphire", "travel points", "credit card", "")
	submitShare(t, router, session, "Gym pass", "one month free", "health & fitness", "")
	submitShare(t, router, session, "Amex Gold", "dining rewards", "credit card", "")

	rec := doGet(t, router, "/api/posts?category=credit+card", session)
	var listing listingResponse
	decode(t, rec, &listing)
	require.Equal(t, 2, listing.Total)
	// Newest first.
	require.Equal(t, "Amex Gold", listing.Posts[0].Title)
	require.Equal(t, "Chase Sapphire", listing.Posts[1].Title)

	rec = doGet(t, router, "/api/posts?search=GYM", session)
	decode(t, rec, &listing)
	require.Equal(t, 1, listing.Total)
	require.Equal(t, "Gym pass", listing.Posts[0].Title)

	rec = doGet(t, router, "/api/posts?search=rewards&category=health+%26+fitness", session)
	decode(t, rec, &listing)
	require.Zero(t, listing.Total)

	rec = doGet(t, router, "/api/posts?limit=2", session)
	decode(t, rec, &listing)
	require.Equal(t, 3, listing.Total)
	require.Len(t, listing.Posts, 2)
}

type voteResponse struct {
	PostID   int    `json:"post_id"`
	Up       int    `json:"up"`
	Down     int    `json:"down"`
	UserVote string `json:"user_vote"`
}

func castVote(t *testing.T, router *mux.Router, session *http.Cookie, postID, direction string) voteResponse {
	t.Helper()

	rec := doForm(t, router, http.MethodPost, "/api/vote",
		url.Values{"post_id": {postID}, "direction": {direction}}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp voteResponse
	decode(t, rec, &resp)
	return resp
}

func firstPostID(t *testing.T, router *mux.Router, session *http.Cookie) string {
	t.Helper()

	rec := doGet(t, router, "/api/posts", session)
	var listing listingResponse
	decode(t, rec, &listing)
	require.NotEmpty(t, listing.Posts)
	return strconv.Itoa(listing.Posts[0].ID)
}

func TestVote_CastThenRetract(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "voter@example.com")
	submitShare(t, router, session, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, session)

	resp := castVote(t, router, session, postID, "up")
	require.Equal(t, 1, resp.Up)
	require.Equal(t, 0, resp.Down)
	require.Equal(t, "up", resp.UserVote)

	// Same direction again retracts: net state unchanged from before both calls.
	resp = castVote(t, router, session, postID, "up")
	require.Equal(t, 0, resp.Up)
	require.Equal(t, 0, resp.Down)
	require.Empty(t, resp.UserVote)
}

func TestVote_SwitchDirection(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "voter@example.com")
	submitShare(t, router, session, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, session)

	castVote(t, router, session, postID, "up")
	resp := castVote(t, router, session, postID, "down")
	require.Equal(t, 0, resp.Up)
	require.Equal(t, 1, resp.Down)
	require.Equal(t, "down", resp.UserVote)

	// One row per (post, user) regardless of toggling.
	var rows int
	err := database.DB.QueryRow("SELECT COUNT(*) FROM post_votes").Scan(&rows)
	require.NoError(t, err)
	require.Equal(t, 1, rows)
}

func TestVote_IndependentUsers(t *testing.T) {
	router := setupRouter(t)
	alice := registerAndLogin(t, router, "alice@example.com")
	bob := registerAndLogin(t, router, "bob@example.com")
	submitShare(t, router, alice, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, alice)

	castVote(t, router, alice, postID, "up")
	resp := castVote(t, router, bob, postID, "up")
	require.Equal(t, 2, resp.Up)

	// Bob's own vote is visible only to Bob.
	rec := doGet(t, router, "/api/posts", bob)
	var listing listingResponse
	decode(t, rec, &listing)
	require.Equal(t, "up", listing.Posts[0].UserVote)
	require.Equal(t, 2, listing.Posts[0].UpCount)
}

func TestVote_Rejections(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "voter@example.com")
	submitShare(t, router, session, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, session)

	rec := doForm(t, router, http.MethodPost, "/api/vote",
		url.Values{"post_id": {postID}, "direction": {"sideways"}}, session)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doForm(t, router, http.MethodPost, "/api/vote",
		url.Values{"post_id": {"9999"}, "direction": {"up"}}, session)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doForm(t, router, http.MethodPost, "/api/vote",
		url.Values{"post_id": {postID}, "direction": {"up"}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestComments_LazyLoadAndCache(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "author@example.com")
	submitShare(t, router, session, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, session)

	rec := doGet(t, router, "/api/posts/"+postID+"/comments", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var comments []models.Comment
	decode(t, rec, &comments)
	require.Empty(t, comments)

	rec = doForm(t, router, http.MethodPost, "/api/posts/"+postID+"/comments",
		url.Values{"content": {"does the bonus still apply?"}}, session)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doGet(t, router, "/api/posts/"+postID+"/comments", session)
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
	require.Equal(t, "does the bonus still apply?", comments[0].Content)
	require.Equal(t, "author@example.com", comments[0].Author)

	// A write that bypasses the handler is invisible to the cached
	// thread: re-expanding must not refetch.
	_, err := database.DB.Exec(
		"INSERT INTO comments (post_id, user_id, content) VALUES (?, 1, 'stale')", postID,
	)
	require.NoError(t, err)

	rec = doGet(t, router, "/api/posts/"+postID+"/comments", session)
	decode(t, rec, &comments)
	require.Len(t, comments, 1)
}

func TestResetPassword_Flow(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router, "forgetful@example.com")

	rec := doForm(t, router, http.MethodPost, "/api/reset-password",
		url.Values{"email": {"forgetful@example.com"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var token string
	err := database.DB.QueryRow(
		"SELECT token FROM password_resets ORDER BY expires_at DESC LIMIT 1",
	).Scan(&token)
	require.NoError(t, err)

	// Token delivered as a query parameter.
	rec = doForm(t, router, http.MethodPost,
		"/api/reset-password/confirm?token="+token,
		url.Values{"password": {"N3wSecret!pw"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doForm(t, router, http.MethodPost, "/api/login",
		url.Values{"email": {"forgetful@example.com"}, "password": {testPassword}}, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code, "old password must stop working")

	rec = doForm(t, router, http.MethodPost, "/api/login",
		url.Values{"email": {"forgetful@example.com"}, "password": {"N3wSecret!pw"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// The token is single-use.
	rec = doForm(t, router, http.MethodPost, "/api/reset-password/confirm",
		url.Values{"token": {token}, "password": {"An0ther!pass"}}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthCallback(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router, "cb@example.com")

	// Without query tokens the callback serves the fragment shim.
	rec := doGet(t, router, "/auth/callback", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "location.hash")

	// A recovery token redirects to the reset page.
	rec = doForm(t, router, http.MethodPost, "/api/reset-password",
		url.Values{"email": {"cb@example.com"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var token string
	err := database.DB.QueryRow("SELECT token FROM password_resets LIMIT 1").Scan(&token)
	require.NoError(t, err)

	rec = doGet(t, router, "/auth/callback?access_token="+token+"&type=recovery", nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/reset-password?token="+token, rec.Header().Get("Location"))

	rec = doGet(t, router, "/auth/callback?access_token=bogus&type=recovery", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReferrals_CRUD(t *testing.T) {
	router := setupRouter(t)
	owner := registerAndLogin(t, router, "owner@example.com")
	other := registerAndLogin(t, router, "other@example.com")

	form := url.Values{
		"title":       {"Chase Sapphire"},
		"description": {"90k points"},
		"category":    {"credit card"},
		"url":         {"https://chase.example/ref"},
		"expiration":  {"2026-12-31"},
	}
	rec := doForm(t, router, http.MethodPost, "/api/referrals", form, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doGet(t, router, "/api/referrals", owner)
	var referrals []models.Referral
	decode(t, rec, &referrals)
	require.Len(t, referrals, 1)
	require.Equal(t, "2026-12-31 00:00:00+00", referrals[0].ExpirationDate)
	id := strconv.Itoa(referrals[0].ID)

	// Referrals are private to their owner.
	rec = doGet(t, router, "/api/referrals", other)
	decode(t, rec, &referrals)
	require.Empty(t, referrals)

	form.Set("title", "Chase Sapphire Preferred")
	rec = doForm(t, router, http.MethodPut, "/api/referrals/"+id, form, other)
	require.Equal(t, http.StatusNotFound, rec.Code, "non-owner cannot edit")

	rec = doForm(t, router, http.MethodPut, "/api/referrals/"+id, form, owner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doForm(t, router, http.MethodDelete, "/api/referrals/"+id, nil, other)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doForm(t, router, http.MethodDelete, "/api/referrals/"+id, nil, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doGet(t, router, "/api/referrals", owner)
	decode(t, rec, &referrals)
	require.Empty(t, referrals)
}

func TestCommentSubmit_NotifiesOwner(t *testing.T) {
	router := setupRouter(t)

	received := make(chan notify.Email, 4)
	mail := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var e notify.Email
		require.NoError(t, json.NewDecoder(r.Body).Decode(&e))
		received <- e
	}))
	defer mail.Close()

	handlers.Notifier = notify.NewClient(mail.URL, "secret")
	t.Cleanup(func() {
		handlers.Notifier.Close()
		handlers.Notifier = nil
	})

	owner := registerAndLogin(t, router, "owner@example.com")
	other := registerAndLogin(t, router, "other@example.com")
	submitShare(t, router, owner, "Test Card", "desc", "credit card", "")
	postID := firstPostID(t, router, owner)

	// Commenting on your own post is not news.
	rec := doForm(t, router, http.MethodPost, "/api/posts/"+postID+"/comments",
		url.Values{"content": {"bump"}}, owner)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doForm(t, router, http.MethodPost, "/api/posts/"+postID+"/comments",
		url.Values{"content": {"is this still active?"}}, other)
	require.Equal(t, http.StatusOK, rec.Code)

	select {
	case e := <-received:
		require.Equal(t, "owner@example.com", e.To)
		require.Contains(t, e.Subject, "Test Card")
		require.Contains(t, e.Content, "other@example.com")
	case <-time.After(2 * time.Second):
		t.Fatal("no notification delivered")
	}

	select {
	case e := <-received:
		t.Fatalf("unexpected extra notification to %s", e.To)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWebSocket_FeedAndFilters(t *testing.T) {
	router := setupRouter(t)
	session := registerAndLogin(t, router, "live@example.com")
	submitShare(t, router, session, "Chase Sapphire", "travel points", "credit card", "")
	submitShare(t, router, session, "Gym pass", "one month free", "health & fitness", "")

	srv := httptest.NewServer(router)
	defer srv.Close()

	header := http.Header{}
	header.Add("Cookie", "session_token="+session.Value)
	conn, _, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", header)
	require.NoError(t, err)
	defer conn.Close()

	var initial struct {
		Type    string                 `json:"type"`
		Payload []models.PostWithVotes `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&initial))
	require.Equal(t, "feed", initial.Type)
	require.Len(t, initial.Payload, 2)

	// Filter commands mirror straight into the shared page state.
	err = conn.WriteJSON(map[string]string{"type": "category", "category": "credit card"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v := handlers.Feed.Visible()
		return len(v) == 1 && v[0].Title == "Chase Sapphire"
	}, 2*time.Second, 10*time.Millisecond)
}
