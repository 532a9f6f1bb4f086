package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/notify"
	"ocgamma/internal/client/scheme"
	"ocgamma/internal/client/session"
	"ocgamma/internal/client/storage"
	"ocgamma/internal/client/theme"
)

// MockAuthAPI is a mock implementation of AuthAPI.
type MockAuthAPI struct {
	mock.Mock
}

func (m *MockAuthAPI) user(args mock.Arguments) (*api.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.User), args.Error(1)
}

func (m *MockAuthAPI) Me(ctx context.Context) (*api.User, error) {
	return m.user(m.Called(ctx))
}

func (m *MockAuthAPI) Login(ctx context.Context, username, password string) (*api.User, error) {
	return m.user(m.Called(ctx, username, password))
}

func (m *MockAuthAPI) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockAuthAPI) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	return m.user(m.Called(ctx, req))
}

func (m *MockAuthAPI) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error) {
	return m.user(m.Called(ctx, upd))
}

func (m *MockAuthAPI) ChangePassword(ctx context.Context, req api.PasswordChange) error {
	return m.Called(ctx, req).Error(0)
}

var errNetwork = errors.New("connection refused")

type fixture struct {
	api     *MockAuthAPI
	session *session.Store
	notes   *notify.Center
	auth    *AuthSync
	states  []session.State
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{api: new(MockAuthAPI), session: session.NewStore(), notes: notify.NewCenter(nil)}
	t.Cleanup(f.notes.Close)
	f.session.Subscribe(func(st session.State) { f.states = append(f.states, st) })
	f.auth = NewAuthSync(f.api, f.session, f.notes, nil)
	return f
}

// assertInvariant checks every state the store went through.
func (f *fixture) assertInvariant(t *testing.T) {
	t.Helper()
	for i, st := range f.states {
		assert.Equal(t, st.User != nil, st.IsAuthenticated, "transition %d", i)
		assert.False(t, st.IsLoading, "transition %d", i)
	}
}

func (f *fixture) signIn(t *testing.T, user *api.User) {
	t.Helper()
	f.api.On("Login", mock.Anything, user.Username, "password123").Return(user, nil).Once()
	_, err := f.auth.Login(context.Background(), user.Username, "password123")
	require.NoError(t, err)
}

func TestBootstrap(t *testing.T) {
	t.Run("signed in", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("Me", mock.Anything).Return(&api.User{ID: 1, Username: "ada"}, nil).Once()

		require.NoError(t, f.auth.Bootstrap(context.Background()))
		require.NoError(t, f.auth.Bootstrap(context.Background()))

		st := f.session.Snapshot()
		assert.True(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		f.api.AssertNumberOfCalls(t, "Me", 1)
		f.assertInvariant(t)
	})

	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("Me", mock.Anything).Return(nil, &api.Error{Status: http.StatusUnauthorized, Code: "NOT_AUTHENTICATED"})

		require.NoError(t, f.auth.Bootstrap(context.Background()))
		st := f.session.Snapshot()
		assert.False(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)
		assert.Empty(t, f.notes.List(), "being signed out is not a failure")
	})

	t.Run("server unreachable", func(t *testing.T) {
		f := newFixture(t)
		f.api.On("Me", mock.Anything).Return(nil, errNetwork)

		assert.ErrorIs(t, f.auth.Bootstrap(context.Background()), errNetwork)
		st := f.session.Snapshot()
		assert.False(t, st.IsAuthenticated)
		assert.False(t, st.IsLoading)

		list := f.notes.List()
		require.Len(t, list, 1)
		assert.Equal(t, notify.Error, list[0].Type)
		assert.Contains(t, list[0].Message, "Could not reach the server")
	})
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.api.On("Me", mock.Anything).Return(nil, &api.Error{Status: http.StatusUnauthorized})
	require.NoError(t, f.auth.Bootstrap(context.Background()))

	var hooked *api.User
	f.auth.OnAuthenticated(func(_ context.Context, u *api.User) error {
		hooked = u
		return nil
	})

	assert.Equal(t, session.Decision{Outcome: session.Redirect, To: session.LoginPath},
		session.Guard(f.session.Snapshot(), session.Protected))

	f.signIn(t, &api.User{ID: 3, Username: "ada"})

	st := f.session.Snapshot()
	assert.True(t, st.IsAuthenticated)
	assert.Equal(t, "ada", st.User.Username)
	assert.Equal(t, session.Decision{Outcome: session.Render}, session.Guard(st, session.Protected))
	require.NotNil(t, hooked)
	assert.Equal(t, uint(3), hooked.ID)
	f.assertInvariant(t)
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	f := newFixture(t)
	f.api.On("Me", mock.Anything).Return(nil, &api.Error{Status: http.StatusUnauthorized})
	require.NoError(t, f.auth.Bootstrap(context.Background()))
	before := f.session.Snapshot()
	transitions := len(f.states)

	f.api.On("Login", mock.Anything, "ada", "wrong").
		Return(nil, &api.Error{Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS"})
	_, err := f.auth.Login(context.Background(), "ada", "wrong")

	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.Equal(t, before, f.session.Snapshot())
	assert.Len(t, f.states, transitions)
	assert.Empty(t, f.notes.List(), "login errors belong to the form")

	_, err = f.auth.Login(context.Background(), "", "x")
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestLogoutAlwaysClears(t *testing.T) {
	for _, serverErr := range []error{nil, errNetwork, &api.Error{Status: http.StatusInternalServerError}} {
		f := newFixture(t)
		f.signIn(t, &api.User{ID: 1, Username: "ada"})
		f.api.On("Logout", mock.Anything).Return(serverErr)

		err := f.auth.Logout(context.Background())
		list := f.notes.List()
		require.NotEmpty(t, list)
		last := list[len(list)-1]
		if serverErr == nil {
			assert.NoError(t, err)
			assert.Equal(t, notify.Success, last.Type)
		} else {
			assert.Error(t, err)
			assert.Equal(t, notify.Warning, last.Type)
			assert.Equal(t, "Logged out locally", last.Title)
		}

		st := f.session.Snapshot()
		assert.Nil(t, st.User)
		assert.False(t, st.IsAuthenticated)
		f.assertInvariant(t)
	}
}

func TestChangePasswordValidatesLocally(t *testing.T) {
	tests := []struct {
		name  string
		req   api.PasswordChange
		field string
	}{
		{"too short", api.PasswordChange{CurrentPassword: "password123", NewPassword: "short", ConfirmPassword: "short"}, "new_password"},
		{"mismatch", api.PasswordChange{CurrentPassword: "password123", NewPassword: "longenough1", ConfirmPassword: "longenough2"}, "confirm_password"},
		{"missing current", api.PasswordChange{NewPassword: "longenough1", ConfirmPassword: "longenough1"}, "current_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.signIn(t, &api.User{ID: 1, Username: "ada"})

			err := f.auth.ChangePassword(context.Background(), tt.req)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, api.ErrValidation)
			f.api.AssertNotCalled(t, "ChangePassword", mock.Anything, mock.Anything)
		})
	}
}

func TestChangePasswordServerRejection(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, &api.User{ID: 1, Username: "ada"})
	before := f.session.Snapshot()

	req := api.PasswordChange{CurrentPassword: "wrong-pass", NewPassword: "newpass123", ConfirmPassword: "newpass123"}
	f.api.On("ChangePassword", mock.Anything, req).
		Return(&api.Error{Status: http.StatusBadRequest, Code: "INCORRECT_PASSWORD", Detail: "Incorrect current password"})

	err := f.auth.ChangePassword(context.Background(), req)
	assert.Error(t, err)
	assert.Equal(t, before, f.session.Snapshot())
	require.Len(t, f.notes.List(), 2)
	assert.Equal(t, notify.Error, f.notes.List()[1].Type)
	assert.Equal(t, "Incorrect current password", f.notes.List()[1].Message)
}

func TestUpdateProfileReplacesUser(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, &api.User{ID: 1, Username: "ada", Email: "old@example.com"})

	email := "new@example.com"
	f.api.On("UpdateProfile", mock.Anything, api.ProfileUpdate{Email: &email}).
		Return(&api.User{ID: 1, Username: "ada", Email: email}, nil)

	user, err := f.auth.UpdateProfile(context.Background(), api.ProfileUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)
	assert.Equal(t, email, f.session.Snapshot().User.Email)

	bad := "not-an-email"
	_, err = f.auth.UpdateProfile(context.Background(), api.ProfileUpdate{Email: &bad})
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestUpdateProfileExpiredSessionSignsOut(t *testing.T) {
	f := newFixture(t)
	f.signIn(t, &api.User{ID: 1, Username: "ada"})
	name := "Ada"
	f.api.On("UpdateProfile", mock.Anything, mock.Anything).Return(nil, &api.Error{Status: http.StatusUnauthorized})

	_, err := f.auth.UpdateProfile(context.Background(), api.ProfileUpdate{FullName: &name})
	assert.ErrorIs(t, err, api.ErrUnauthorized)
	assert.False(t, f.session.Snapshot().IsAuthenticated)
	f.assertInvariant(t)
}

func TestRegisterDoesNotSignIn(t *testing.T) {
	f := newFixture(t)
	f.api.On("Me", mock.Anything).Return(nil, &api.Error{Status: http.StatusUnauthorized})
	require.NoError(t, f.auth.Bootstrap(context.Background()))

	req := api.RegisterRequest{Email: "ada@example.com", Username: "ada", Password: "password123"}
	f.api.On("Register", mock.Anything, req).Return(&api.User{ID: 1, Username: "ada"}, nil)

	_, err := f.auth.Register(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, f.session.Snapshot().IsAuthenticated)

	_, err = f.auth.Register(context.Background(), api.RegisterRequest{Email: "ada@example.com", Username: "ab", Password: "password123"})
	assert.ErrorIs(t, err, api.ErrValidation)
	f.api.AssertNumberOfCalls(t, "Register", 1)
}

// themeServer answers PATCH /me/theme like the real endpoint, including its limit of 10 per minute.
func themeServer(t *testing.T, limit int) (*api.Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		if int(n) > limit {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":"Rate limit exceeded. Please try again later.","code":"RATE_LIMITED"}`))
			return
		}
		var body struct {
			ThemePreference string `json:"theme_preference"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(`{"id":1,"username":"ada","theme_preference":"` + body.ThemePreference + `"}`))
	}))
	t.Cleanup(srv.Close)

	client, err := api.New(srv.URL)
	require.NoError(t, err)
	return client, &calls
}

func newThemeStore(t *testing.T) *theme.Store {
	t.Helper()
	store := theme.NewStore(storage.NewMemory(), scheme.NewStatic(false), theme.NewClassList(), nil)
	require.NoError(t, store.Initialize(context.Background()))
	t.Cleanup(store.Cleanup)
	return store
}

func TestThemeUpdateThrottling(t *testing.T) {
	client, calls := themeServer(t, 10)
	prefs := newThemeStore(t)
	sess := session.NewStore()
	sess.SetUser(&api.User{ID: 1, Username: "ada", ThemePreference: "system"})
	notes := notify.NewCenter(nil)
	defer notes.Close()
	ts := NewThemeSync(client, prefs, sess, notes, nil)
	ctx := context.Background()

	choices := []theme.Preference{theme.Light, theme.Dark}
	for i := 0; i < 10; i++ {
		_, err := ts.UpdateThemePreference(ctx, choices[i%2])
		require.NoError(t, err, "call %d", i+1)
	}
	require.Equal(t, theme.Dark, prefs.Preference())
	userBefore := sess.Snapshot()

	_, err := ts.UpdateThemePreference(ctx, theme.Light)

	assert.ErrorIs(t, err, api.ErrThrottled)
	assert.NotErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, theme.Dark, prefs.Preference())
	assert.Equal(t, userBefore, sess.Snapshot())
	assert.Equal(t, int32(11), atomic.LoadInt32(calls))

	list := notes.List()
	require.Len(t, list, 1)
	assert.Equal(t, notify.Error, list[0].Type)
	assert.Contains(t, list[0].Message, "wait")
}

func TestThemeUpdateRejectedWithoutFieldDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"Validation failed","code":"VALIDATION_ERROR"}`))
	}))
	defer srv.Close()
	client, err := api.New(srv.URL)
	require.NoError(t, err)

	prefs := newThemeStore(t)
	sess := session.NewStore()
	sess.SetUser(&api.User{ID: 1, Username: "ada", ThemePreference: "system"})
	notes := notify.NewCenter(nil)
	defer notes.Close()
	ts := NewThemeSync(client, prefs, sess, notes, nil)

	_, err = ts.UpdateThemePreference(context.Background(), theme.Dark)
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, theme.System, prefs.Preference())

	list := notes.List()
	require.Len(t, list, 1)
	assert.Equal(t, notify.Error, list[0].Type)
	assert.Equal(t, "Invalid theme preference.", list[0].Message)
}

func TestThemeUpdateRequiresSession(t *testing.T) {
	client, calls := themeServer(t, 10)
	prefs := newThemeStore(t)
	sess := session.NewStore()
	sess.Clear()
	ts := NewThemeSync(client, prefs, sess, nil, nil)

	_, err := ts.UpdateThemePreference(context.Background(), theme.Dark)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, atomic.LoadInt32(calls))

	_, err = ts.UpdateThemePreference(context.Background(), theme.Preference("sepia"))
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestSelect(t *testing.T) {
	client, calls := themeServer(t, 10)
	prefs := newThemeStore(t)
	sess := session.NewStore()
	ts := NewThemeSync(client, prefs, sess, nil, nil)
	ctx := context.Background()

	sess.Clear()
	require.NoError(t, ts.Select(ctx, theme.Dark))
	assert.Equal(t, theme.Dark, prefs.Preference())
	assert.Zero(t, atomic.LoadInt32(calls))

	sess.SetUser(&api.User{ID: 1, ThemePreference: "dark"})
	require.NoError(t, ts.Select(ctx, theme.Light))
	assert.Equal(t, theme.Light, prefs.Preference())
	assert.Equal(t, "light", sess.Snapshot().User.ThemePreference)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestServerPreferenceWinsOnLogin(t *testing.T) {
	f := newFixture(t)
	prefs := newThemeStore(t)
	require.NoError(t, prefs.SetTheme(context.Background(), theme.Light))

	ts := NewThemeSync(nil, prefs, f.session, f.notes, nil)
	f.auth.OnAuthenticated(ts.Reconcile)

	f.signIn(t, &api.User{ID: 1, Username: "ada", ThemePreference: "dark"})
	assert.Equal(t, theme.Dark, prefs.Preference())
	assert.Equal(t, theme.ResolvedDark, prefs.Resolved())

	assert.NoError(t, ts.Reconcile(context.Background(), &api.User{ThemePreference: "bogus"}))
	assert.Equal(t, theme.Dark, prefs.Preference())
}
