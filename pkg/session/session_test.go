package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlashSurvivesExactlyOneFollowingRequest(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	manager := NewManager(store, WithIDGenerator(func() string { return "s1" }))
	ctx := context.Background()

	// request 1 flashes
	sess := New("s1")
	sess.Namespace("form.contact").Flash("notices.error", []string{"Name is required"})
	require.NoError(t, manager.Save(ctx, sess))

	// request 2 sees the flash
	sess = load(t, manager, "s1")
	assert.Equal(t, []any{"Name is required"}, sess.Get("form.contact.notices.error"))
	require.NoError(t, manager.Save(ctx, sess))

	// request 3 does not
	sess = load(t, manager, "s1")
	assert.False(t, sess.Has("form.contact.notices.error"))
}

func TestSetPromotesStaleFlash(t *testing.T) {
	sess := New("s1")
	sess.Flash("successful", true)
	sess.Age()

	sess.Set("successful", true)
	sess.Age()

	assert.Equal(t, true, sess.Get("successful"))
}

func TestScopeClearRemovesOnlyItsPrefix(t *testing.T) {
	sess := New("s1")
	contact := sess.Namespace("form.contact")
	contact.Set("request.email", "jane@example.com")
	contact.Flash("successful", true)
	sess.Namespace("form.other").Set("request.email", "kept@example.com")

	assert.Equal(t, map[string]any{"email": "jane@example.com"}, contact.Get("request"))

	contact.Clear()

	assert.Nil(t, contact.All())
	assert.Equal(t, "kept@example.com", sess.Get("form.other.request.email"))
}

func TestScopePull(t *testing.T) {
	sess := New("s1")
	scope := sess.Namespace("form.contact")
	scope.Set("successful", true)

	assert.Equal(t, true, scope.Pull("successful"))
	assert.Nil(t, scope.Pull("successful"))
	assert.Equal(t, "fallback", scope.GetOr("successful", "fallback"))
}

func TestMiddlewareSetsCookieAndPersists(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	manager := NewManager(store, WithIDGenerator(func() string { return "generated" }))

	handler := manager.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := FromContext(r.Context())
		require.True(t, ok)
		sess.Set("visits", 1)
		http.Redirect(w, r, "/done", http.StatusSeeOther)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/forms/contact", nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, DefaultCookieName, cookies[0].Name)
	assert.Equal(t, "generated", cookies[0].Value)

	sess := load(t, manager, "generated")
	assert.EqualValues(t, 1, sess.Get("visits"))
}

func TestLoadDiscardsUnreadablePayload(t *testing.T) {
	store := NewMemoryStore(WithCleanupInterval(time.Hour))
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Save(context.Background(), "broken", []byte("{"), time.Now().Add(time.Minute)))

	manager := NewManager(store, WithIDGenerator(func() string { return "fresh" }))
	sess := load(t, manager, "broken")

	assert.Equal(t, "fresh", sess.ID())
	assert.True(t, sess.IsNew())
}

func TestMemoryStoreExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithCleanupInterval(time.Hour), WithClock(func() time.Time { return now }))
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", []byte("abc"), now.Add(time.Minute)))
	data, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))

	now = now.Add(2 * time.Minute)
	data, err = store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, data)

	store.cleanup()
	assert.Equal(t, 0, store.Count())

	require.NoError(t, store.Close())
	_, err = store.Load(ctx, "s1")
	assert.ErrorAs(t, err, &ErrStoreClosed{})
}

func load(t *testing.T, manager *Manager, id string) *Session {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: manager.CookieName(), Value: id})
	sess, err := manager.Load(context.Background(), req)
	require.NoError(t, err)
	return sess
}
