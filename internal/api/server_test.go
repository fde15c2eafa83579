package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wormz-app/backend/internal/config"
	"github.com/wormz-app/backend/internal/db"
	"github.com/wormz-app/backend/internal/db/sqlite"
	"github.com/wormz-app/backend/internal/service/chats"
	"github.com/wormz-app/backend/internal/service/exchange"
	"github.com/wormz-app/backend/internal/service/matching"
)

const (
	testToken    = "12345:TEST_TOKEN"
	testInitData = "auth_date=1735689600&query_id=AAH4mC0tAAAAAPiYLS1abcdef&user=%7B%22id%22%3A777000%2C%22first_name%22%3A%22Wormz%22%2C%22username%22%3A%22wormz_tester%22%2C%22language_code%22%3A%22en%22%7D&hash=ab9eb5a1bbddbb00143ccfe59ef7081629173385b594b6fa18b94164cf13d73c"
)

type allowAllGateway struct{}

func (allowAllGateway) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	return true, nil
}

type noopNotifier struct{}

func (noopNotifier) Notify(ctx context.Context, userID int64, text string) {}

func newTestServer(t *testing.T) (*Server, db.Client) {
	t.Helper()
	store, err := sqlite.NewSQLiteClient(context.Background(), t.TempDir(), "test.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ratings := config.Ratings{Initial: 100, JoinMin: 60, CreateMin: 80, Reward: 2, HoldPenalty: 10}
	limits := config.Limits{DailyPosts: 3, PostCooldown: time.Hour, PostTTL: 24 * time.Hour, MutualTTL: 24 * time.Hour, ChatTTL: 24 * time.Hour}

	engine := exchange.NewEngine(store, allowAllGateway{}, noopNotifier{}, ratings, limits)
	matchSvc := matching.NewService(store, noopNotifier{}, ratings, limits)
	chatSvc := chats.NewService(store, engine, noopNotifier{}, ratings, limits)
	return NewServer(":0", testToken, engine, matchSvc, chatSvc, nil), store
}

func doRequest(t *testing.T, s *Server, method, path, initData, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if initData != "" {
		req.Header.Set(initDataHeader, initData)
	}
	w := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)
	w := doRequest(t, s, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/profile", "", "")
	require.Equal(t, http.StatusUnauthorized, w.Code)

	tampered := strings.Replace(testInitData, "1735689600", "1735689601", 1)
	w = doRequest(t, s, http.MethodGet, "/api/profile", tampered, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProfileWithValidInitData(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodGet, "/api/profile", testInitData, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ok":true`)
	require.Contains(t, w.Body.String(), "777000")
}

func TestCreateMutualWithoutChannel(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	body := `{"channel_id": 1, "exchange_type": "subscribe"}`
	w := doRequest(t, s, http.MethodPost, "/api/mutuals/create", testInitData, body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "channel")
}

func TestJoinMissingMutual(t *testing.T) {
	t.Parallel()
	s, _ := newTestServer(t)

	w := doRequest(t, s, http.MethodPost, "/api/mutuals/999/join", testInitData, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestJoinOwnMutualIsBadRequest(t *testing.T) {
	t.Parallel()
	s, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.UpsertUser(ctx, 777000)
	require.NoError(t, err)
	channel, err := store.UpsertChannel(ctx, &db.Channel{
		OwnerID:   777000,
		TGID:      5001,
		Title:     "own channel",
		Kind:      db.ChannelKindChannel,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	mutual, err := store.CreateMutual(ctx, &db.Mutual{
		CreatorID:     777000,
		ChannelID:     channel.ID,
		ExchangeType:  db.ExchangeTypeSubscribe,
		RequiredCount: 1,
		HoldHours:     24,
		CreatedAt:     now,
		ExpiresAt:     now.Add(24 * time.Hour),
	})
	require.NoError(t, err)

	w := doRequest(t, s, http.MethodPost, "/api/mutuals/"+strconv.FormatInt(mutual.ID, 10)+"/join", testInitData, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}
