package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolf-tap/internal/config"
	"wolf-tap/internal/game"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/repository/memstore"
	"wolf-tap/internal/service"
)

const (
	testBotToken = "123456:test-token"
	testAdminKey = "admin-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router http.Handler
	svc    Services
}

func newTestServer(t *testing.T, devMode bool, rules service.Rules) *testServer {
	t.Helper()
	store := memstore.New()
	engine := service.NewEngine(store, lock.NewUserLock(), clock.NewFixed(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)), rules)
	registry, err := game.NewRegistry(game.Defaults()...)
	require.NoError(t, err)

	settings := service.NewSettingsService(store, rules.DefaultCoinValue)
	refs := service.NewReferralService(engine)
	svc := Services{
		Accounts:    service.NewAccountService(engine, refs),
		Settings:    settings,
		Taps:        service.NewTapService(engine, settings),
		Tasks:       service.NewTaskService(engine),
		Badges:      service.NewBadgeService(engine),
		Referrals:   refs,
		Wallet:      service.NewWalletService(engine),
		Social:      service.NewSocialService(engine),
		Games:       service.NewGameService(engine, registry),
		Leaderboard: service.NewLeaderboardService(store, 10, nil),
	}
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			CORSOrigins:   []string{"*"},
			InitDataTTL:   0,
			AdminAPIKey:   testAdminKey,
			DevMode:       devMode,
			DevTelegramID: 12345678,
		},
		Telegram: config.TelegramConfig{BotToken: testBotToken},
	}
	srv := NewServer(cfg, svc)
	return &testServer{router: srv.Router(), svc: svc}
}

func testRules() service.Rules {
	rules := service.DefaultRules()
	rules.Location = time.UTC
	return rules
}

// signInitData builds Mini App init data signed the way Telegram signs it.
func signInitData(t *testing.T, telegramID int64, username, startParam string) string {
	t.Helper()
	user, err := json.Marshal(map[string]any{"id": telegramID, "first_name": "Test", "username": username})
	require.NoError(t, err)

	fields := map[string]string{
		"auth_date": strconv.FormatInt(time.Now().Unix(), 10),
		"query_id":  "AAH-test",
		"user":      string(user),
	}
	if startParam != "" {
		fields["start_param"] = startParam
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, k+"="+fields[k])
	}

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))

	q := url.Values{}
	for k, v := range fields {
		q.Set(k, v)
	}
	q.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return q.Encode()
}

type request struct {
	method   string
	path     string
	body     any
	initData string
	adminKey string
}

func (ts *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.initData != "" {
		req.Header.Set(HeaderInitData, r.initData)
	}
	if r.adminKey != "" {
		req.Header.Set(HeaderAdminAPIKey, r.adminKey)
	}
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPublicRoutes(t *testing.T) {
	ts := newTestServer(t, false, testRules())

	rec := ts.do(t, request{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderRequestID))

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/ranks"})
	require.Equal(t, http.StatusOK, rec.Code)
	ranks := decode[[]rankView](t, rec)
	require.Len(t, ranks, 100)
	assert.Equal(t, 1, ranks[0].Level)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/coin/settings"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(5), decode[map[string]any](t, rec)["coinValue"])

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/games"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]game.Game](t, rec), len(game.Defaults()))
}

func TestAuthFailsClosed(t *testing.T) {
	ts := newTestServer(t, false, testRules())

	rec := ts.do(t, request{method: http.MethodGet, path: "/api/auth/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/auth/me", initData: "user=%7B%22id%22%3A1%7D&auth_date=1&hash=00"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tampered := strings.Replace(signInitData(t, 42, "wolfie", ""), "wolfie", "mallory", 1)
	rec = ts.do(t, request{method: http.MethodGet, path: "/api/auth/me", initData: tampered})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginWithSignedInitData(t *testing.T) {
	ts := newTestServer(t, false, testRules())

	owner := signInitData(t, 1001, "alpha", "")
	rec := ts.do(t, request{method: http.MethodPost, path: "/api/auth/login", initData: owner})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[loginResponse](t, rec)
	require.True(t, first.Created)
	code := first.Profile.User.ReferralCode
	assert.Equal(t, int64(100), first.Profile.User.Coins)

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/auth/login", initData: owner})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[loginResponse](t, rec).Created)

	// The start param carries the referral code of the invite link.
	invited := signInitData(t, 1002, "beta", strings.ToLower(code))
	rec = ts.do(t, request{method: http.MethodPost, path: "/api/auth/login", initData: invited})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotNil(t, decode[loginResponse](t, rec).Profile.User.ReferrerID)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/referrals/stats", initData: owner})
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[service.ReferralStats](t, rec)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(50), stats.TotalEarnings)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/wallet/balance", initData: owner})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(150), decode[service.Balance](t, rec).Coins)
}

func TestTapFlowInDevMode(t *testing.T) {
	rules := testRules()
	rules.DailyTapLimit = 20
	ts := newTestServer(t, true, rules)

	var last service.TapResult
	for i := 0; i < 20; i++ {
		rec := ts.do(t, request{method: http.MethodPost, path: "/api/coin/tap"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		last = decode[service.TapResult](t, rec)
	}
	assert.Equal(t, 20, last.TapCount)
	assert.Equal(t, int64(200), last.NewBalance)

	rec := ts.do(t, request{method: http.MethodPost, path: "/api/coin/tap"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/auth/me"})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[service.Profile](t, rec)
	assert.Equal(t, int64(12345678), profile.User.TelegramID)
	assert.Equal(t, 2, profile.User.Level)
	assert.Equal(t, 0, profile.TapsLeft)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/leaderboard/rank"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[service.UserRank](t, rec).Rank)
}

func TestAdminKeyRequired(t *testing.T) {
	ts := newTestServer(t, true, testRules())

	rec := ts.do(t, request{method: http.MethodGet, path: "/api/admin/tasks"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/admin/tasks", adminKey: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/admin/tasks", adminKey: testAdminKey})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTaskLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, true, testRules())

	rec := ts.do(t, request{method: http.MethodPost, path: "/api/admin/tasks", adminKey: testAdminKey,
		body: map[string]any{"title": "Tap 3 times", "type": "daily", "target": 3, "reward": 40}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	taskID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/claim", body: map[string]any{"taskId": taskID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/progress",
		body: map[string]any{"taskId": taskID, "progress": 5}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(3), decode[map[string]any](t, rec)["progress"])

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/claim", body: map[string]any{"taskId": taskID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(140), decode[service.TaskClaim](t, rec).NewBalance)

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/claim", body: map[string]any{"taskId": taskID}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, request{method: http.MethodDelete, path: fmt.Sprintf("/api/admin/tasks/%d", taskID), adminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["isActive"])

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/progress",
		body: map[string]any{"taskId": taskID, "progress": 1, "increment": true}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/tasks/claim", body: map[string]any{"taskId": 999}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWithdrawalReviewOverHTTP(t *testing.T) {
	ts := newTestServer(t, true, testRules())

	rec := ts.do(t, request{method: http.MethodPost, path: "/api/wallet/withdraw", body: map[string]any{"amount": 500, "address": "UQwallet"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, request{method: http.MethodPost, path: "/api/wallet/withdraw", body: map[string]any{"amount": 60, "address": "UQwallet"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entryID := int64(decode[map[string]any](t, rec)["id"].(float64))

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/wallet/balance"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.Balance{Coins: 40, Pending: 60}, decode[service.Balance](t, rec))

	rec = ts.do(t, request{method: http.MethodPost, path: fmt.Sprintf("/api/admin/withdrawals/%d/reject", entryID), adminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, request{method: http.MethodPost, path: fmt.Sprintf("/api/admin/withdrawals/%d/approve", entryID), adminKey: testAdminKey})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/wallet/balance"})
	assert.Equal(t, service.Balance{Coins: 100, Pending: 0}, decode[service.Balance](t, rec))

	rec = ts.do(t, request{method: http.MethodGet, path: "/api/admin/reconcile", adminKey: testAdminKey})
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), report["checked"])
	assert.Nil(t, report["mismatches"])
}

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrDailyLimitExceeded, http.StatusTooManyRequests},
		{service.ErrAlreadyClaimed, http.StatusConflict},
		{fmt.Errorf("%w: title is required", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrFeaturedLimitExceeded, http.StatusBadRequest},
		{lock.ErrLockTimeout, http.StatusServiceUnavailable},
		{fmt.Errorf("failed to save user: %w", assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusOf(tc.err), tc.err.Error())
	}
}
