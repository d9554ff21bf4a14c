package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"wolf-tap/internal/config"
)

// fakeContext implements just enough of tele.Context for middleware tests.
type fakeContext struct {
	tele.Context
	sender   *tele.User
	chat     *tele.Chat
	callback *tele.Callback
	replies  []string
	answers  []string
}

func (f *fakeContext) Sender() *tele.User       { return f.sender }
func (f *fakeContext) Chat() *tele.Chat         { return f.chat }
func (f *fakeContext) Callback() *tele.Callback { return f.callback }
func (f *fakeContext) Text() string             { return "/pending" }

func (f *fakeContext) Reply(what interface{}, _ ...interface{}) error {
	f.replies = append(f.replies, what.(string))
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) > 0 {
		f.answers = append(f.answers, resp[0].Text)
	}
	return nil
}

func adminIDsGen() *rapid.Generator[[]int64] {
	return rapid.SliceOfNDistinct(rapid.Int64Range(1, 1_000_000_000), 1, 10, rapid.ID[int64])
}

func TestAdminMembershipProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := adminIDsGen().Draw(t, "adminIDs")
		cfg := &config.Config{Telegram: config.TelegramConfig{AdminIDs: adminIDs}}

		known := adminIDs[rapid.IntRange(0, len(adminIDs)-1).Draw(t, "index")]
		if !cfg.IsAdmin(known) {
			t.Fatalf("admin %d not recognized, admins=%v", known, adminIDs)
		}

		candidate := rapid.Int64Range(1, 1_000_000_000).Draw(t, "candidate")
		expected := false
		for _, id := range adminIDs {
			if id == candidate {
				expected = true
				break
			}
		}
		if cfg.IsAdmin(candidate) != expected {
			t.Fatalf("IsAdmin(%d)=%v, want %v", candidate, !expected, expected)
		}
	})
}

func TestAdminMiddlewareGatesHandlerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		adminIDs := adminIDsGen().Draw(t, "adminIDs")
		cfg := &config.Config{Telegram: config.TelegramConfig{AdminIDs: adminIDs}}
		senderID := rapid.Int64Range(1, 1_000_000_000).Draw(t, "sender")

		called := false
		next := func(tele.Context) error { called = true; return nil }
		ctx := &fakeContext{sender: &tele.User{ID: senderID}, chat: &tele.Chat{Type: tele.ChatPrivate}}

		if err := AdminMiddleware(cfg)(next)(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if called != cfg.IsAdmin(senderID) {
			t.Fatalf("handler called=%v for sender %d, admins=%v", called, senderID, adminIDs)
		}
		if !called && len(ctx.replies) != 1 {
			t.Fatalf("non-admin should get exactly one reply, got %v", ctx.replies)
		}
	})
}

func TestAdminMiddlewareRespondsToCallbacks(t *testing.T) {
	cfg := &config.Config{Telegram: config.TelegramConfig{AdminIDs: []int64{1}}}
	ctx := &fakeContext{sender: &tele.User{ID: 2}, callback: &tele.Callback{Data: "\fwd_approve:5"}}

	err := AdminMiddleware(cfg)(func(tele.Context) error {
		t.Fatal("handler must not run")
		return nil
	})(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Admins only"}, ctx.answers)
	assert.Empty(t, ctx.replies)
}

func TestPrivateOnlyMiddleware(t *testing.T) {
	calls := 0
	mw := PrivateOnlyMiddleware()(func(tele.Context) error { calls++; return nil })

	require.NoError(t, mw(&fakeContext{chat: &tele.Chat{Type: tele.ChatGroup}}))
	require.NoError(t, mw(&fakeContext{}))
	assert.Equal(t, 0, calls)

	require.NoError(t, mw(&fakeContext{chat: &tele.Chat{Type: tele.ChatPrivate}}))
	assert.Equal(t, 1, calls)
}

func TestRecoveryMiddleware(t *testing.T) {
	ctx := &fakeContext{sender: &tele.User{ID: 7}}
	err := RecoveryMiddleware()(func(tele.Context) error { panic("boom") })(ctx)
	require.NoError(t, err)
	require.Len(t, ctx.replies, 1)
	assert.Contains(t, ctx.replies[0], "Something went wrong")
}
