package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cafe_admin/internal/cafe"
	"cafe_admin/internal/config"
	"cafe_admin/internal/nav"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const adminBody = `{"user_is_admin":true,"token":{"access":"acc-1","refresh":"ref-1"},"name":"Owner"}`

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newStore(t *testing.T, ttl time.Duration) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
	cfg := config.Config{
		SessionFile: filepath.Join(t.TempDir(), "cafe-admin", "session.json"),
		SessionTTL:  ttl,
	}
	store := NewStore(cfg, zap.NewNop())
	store.now = clock.Now
	return store, clock
}

func loginResponse(t *testing.T, body string) cafe.LoginResponse {
	t.Helper()
	var resp cafe.LoginResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	resp.Raw = json.RawMessage(body)
	return resp
}

func TestStoreSavePersistsVerbatimBody(t *testing.T) {
	store, _ := newStore(t, time.Hour)

	sess, err := store.Save(loginResponse(t, adminBody))
	require.NoError(t, err)
	assert.True(t, sess.UserIsAdmin)
	assert.Equal(t, "acc-1", store.AccessToken())

	data, err := os.ReadFile(store.path)
	require.NoError(t, err)
	var rec map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.JSONEq(t, adminBody, string(rec["user"]))

	info, err := os.Stat(store.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStoreLoadRestoresSession(t *testing.T) {
	store, clock := newStore(t, time.Hour)
	_, err := store.Save(loginResponse(t, adminBody))
	require.NoError(t, err)

	reopened := NewStore(config.Config{SessionFile: store.path, SessionTTL: time.Hour}, zap.NewNop())
	reopened.now = clock.Now
	require.NoError(t, reopened.Load())

	sess, err := reopened.Current()
	require.NoError(t, err)
	assert.True(t, sess.UserIsAdmin)
	assert.Equal(t, "acc-1", sess.AccessToken)
	assert.Equal(t, clock.t.Add(time.Hour), sess.ExpiresAt)
}

func TestStoreExpiry(t *testing.T) {
	store, clock := newStore(t, time.Hour)
	_, err := store.Save(loginResponse(t, adminBody))
	require.NoError(t, err)

	clock.t = clock.t.Add(59 * time.Minute)
	_, err = store.Current()
	require.NoError(t, err)

	clock.t = clock.t.Add(time.Minute)
	_, err = store.Current()
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, store.AccessToken())
	assert.NoFileExists(t, store.path)
}

func TestStoreLoadDropsExpiredFile(t *testing.T) {
	store, clock := newStore(t, time.Hour)
	_, err := store.Save(loginResponse(t, adminBody))
	require.NoError(t, err)

	clock.t = clock.t.Add(2 * time.Hour)
	require.NoError(t, store.Load())

	_, err = store.Current()
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.NoFileExists(t, store.path)
}

func TestStoreLoadDropsCorruptFile(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	require.NoError(t, os.MkdirAll(filepath.Dir(store.path), 0o700))
	require.NoError(t, os.WriteFile(store.path, []byte("{not json"), 0o600))

	require.NoError(t, store.Load())
	_, err := store.Current()
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.NoFileExists(t, store.path)
}

func TestStoreInvalidateAndClear(t *testing.T) {
	store, _ := newStore(t, 0)
	_, err := store.Save(loginResponse(t, adminBody))
	require.NoError(t, err)

	store.Invalidate()
	_, err = store.Current()
	require.ErrorIs(t, err, ErrSessionExpired)

	require.NoError(t, store.Clear())
	_, err = store.Current()
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

type fakeAuthenticator struct {
	calls int
	resp  cafe.LoginResponse
	err   error
}

func (f *fakeAuthenticator) Login(_ context.Context, _, _ string) (cafe.LoginResponse, error) {
	f.calls++
	return f.resp, f.err
}

func TestAuthLoginDestinations(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"admin", adminBody, nav.PathAdminProfile},
		{"staff", `{"user_is_admin":false,"token":{"access":"acc-2"}}`, nav.PathRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _ := newStore(t, time.Hour)
			auth := NewAuth(&fakeAuthenticator{resp: loginResponse(t, tt.body)}, store, zap.NewNop())

			dest, err := auth.Login(context.Background(), "owner@cafe.np", "secret")
			require.NoError(t, err)
			assert.Equal(t, tt.want, dest)
		})
	}
}

func TestAuthLoginValidation(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	client := &fakeAuthenticator{}
	auth := NewAuth(client, store, zap.NewNop())

	_, err := auth.Login(context.Background(), "  ", "secret")
	require.ErrorIs(t, err, ErrMissingCredentials)
	_, err = auth.Login(context.Background(), "owner@cafe.np", "")
	require.ErrorIs(t, err, ErrMissingCredentials)
	assert.Zero(t, client.calls)
}

func TestAuthLoginFailureKeepsLoggedOut(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	auth := NewAuth(&fakeAuthenticator{err: errors.New("bad credentials")}, store, zap.NewNop())

	_, err := auth.Login(context.Background(), "owner@cafe.np", "wrong")
	require.Error(t, err)
	assert.False(t, auth.IsAdmin())
	assert.NoFileExists(t, store.path)
}

func TestAuthLogout(t *testing.T) {
	store, _ := newStore(t, time.Hour)
	auth := NewAuth(&fakeAuthenticator{resp: loginResponse(t, adminBody)}, store, zap.NewNop())
	_, err := auth.Login(context.Background(), "owner@cafe.np", "secret")
	require.NoError(t, err)

	dest, err := auth.Logout()
	require.NoError(t, err)
	assert.Equal(t, nav.PathRoot, dest)
	assert.False(t, auth.IsAdmin())
	assert.NoFileExists(t, store.path)
}

func TestAdminLoginUnlocksProtectedRoutes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/user/login/":
			_, _ = io.WriteString(w, adminBody)
		case "/catogery/list/":
			assert.Equal(t, "Bearer acc-1", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"results":[{"id":1,"name":"Drinks"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	store, _ := newStore(t, time.Hour)
	client := cafe.NewClient(config.Config{APIBaseURL: srv.URL, Timeout: 5 * time.Second}, store, zap.NewNop())
	auth := NewAuth(client, store, zap.NewNop())
	guard := nav.NewGuard()

	assert.True(t, guard.Resolve(nav.PathCategory, auth.IsAdmin()).Redirected)

	dest, err := auth.Login(context.Background(), "owner@cafe.np", "secret")
	require.NoError(t, err)
	assert.Equal(t, nav.PathAdminProfile, dest)

	sess, err := auth.Current()
	require.NoError(t, err)
	assert.True(t, sess.UserIsAdmin)
	assert.Equal(t, "acc-1", sess.AccessToken)

	res := guard.Resolve(nav.PathCategory, auth.IsAdmin())
	assert.False(t, res.Redirected)
	assert.Equal(t, nav.ScreenCategory, res.Route.Screen)

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, 1)
}
