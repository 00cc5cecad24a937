package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestManager() *Manager {
	return NewManager("unit-test-secret", Options{CookieName: "fg_session", MaxAge: 3600}, zap.NewNop())
}

func captureID(t *testing.T, m *Manager, req *http.Request) (string, *httptest.ResponseRecorder) {
	t.Helper()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IDFromContext(r.Context())
		require.True(t, ok)
		seen = id
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestMiddleware_IssuesAndReusesSessionID(t *testing.T) {
	m := newTestManager()

	first, rec := captureID(t, m, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, first)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "fg_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	second, rec2 := captureID(t, m, req)

	assert.Equal(t, first, second)
	assert.Empty(t, rec2.Result().Cookies(), "existing session should not be re-issued")
}

func TestMiddleware_TamperedCookieStartsNewSession(t *testing.T) {
	m := newTestManager()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "fg_session", Value: "forged"})
	id, rec := captureID(t, m, req)

	assert.NotEmpty(t, id)
	assert.Len(t, rec.Result().Cookies(), 1)
}

func TestMiddleware_CookieFromOtherSecretIsRejected(t *testing.T) {
	other := NewManager("another-secret", Options{CookieName: "fg_session", MaxAge: 3600}, zap.NewNop())
	firstID, rec := captureID(t, other, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	id, _ := captureID(t, newTestManager(), req)

	assert.NotEqual(t, firstID, id)
}

func TestIDFromContext_Missing(t *testing.T) {
	_, ok := IDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
