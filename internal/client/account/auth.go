package account

import (
	"context"
	"errors"
	"net/mail"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/session"
)

// Client-side limits, mirroring the server's validation.
const (
	MinPasswordLength = 8
	MinUsernameLength = 3
	MaxUsernameLength = 100
)

// AuthAPI is the subset of the HTTP client used for the session.
type AuthAPI interface {
	Me(ctx context.Context) (*api.User, error)
	Login(ctx context.Context, username, password string) (*api.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, req api.RegisterRequest) (*api.User, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error)
	ChangePassword(ctx context.Context, req api.PasswordChange) error
}

// AuthenticatedFunc runs whenever a session is established.
type AuthenticatedFunc func(ctx context.Context, user *api.User) error

// AuthSync drives the session store from the auth endpoints.
type AuthSync struct {
	api     AuthAPI
	session *session.Store
	notes   Notifier
	log     *zap.Logger

	bootstrap sync.Once
	mu        sync.Mutex
	hooks     []AuthenticatedFunc
}

// NewAuthSync wires the client to the session store. notes and log may be nil.
func NewAuthSync(client AuthAPI, store *session.Store, notes Notifier, log *zap.Logger) *AuthSync {
	if notes == nil {
		notes = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthSync{api: client, session: store, notes: notes, log: log}
}

// OnAuthenticated registers fn to run after Bootstrap or Login succeeds.
func (a *AuthSync) OnAuthenticated(fn AuthenticatedFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.hooks = append(a.hooks, fn)
}

// Bootstrap performs the initial current-user fetch. Only the first call
// does anything; every outcome ends the loading state. Being signed out is
// not an error.
func (a *AuthSync) Bootstrap(ctx context.Context) error {
	var err error
	a.bootstrap.Do(func() {
		user, fetchErr := a.api.Me(ctx)
		if fetchErr != nil {
			a.session.Clear()
			if !errors.Is(fetchErr, api.ErrUnauthorized) {
				report(a.notes, a.log, "Could not load your session", fetchErr)
				err = fetchErr
			}
			return
		}
		a.session.SetUser(user)
		a.authenticated(ctx, user)
	})
	return err
}

// Login signs in. On failure the session is left as it was and the error is
// returned for the form to show.
func (a *AuthSync) Login(ctx context.Context, username, password string) (*api.User, error) {
	if username == "" {
		return nil, &ValidationError{Field: "username", Msg: "field required"}
	}
	if password == "" {
		return nil, &ValidationError{Field: "password", Msg: "field required"}
	}

	user, err := a.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}
	a.session.SetUser(user)
	a.notes.Success("Welcome back", user.Username)
	a.authenticated(ctx, user)
	return a.session.Snapshot().User, nil
}

// Logout clears the local session whatever the server says. A server failure
// is still returned so it can be shown.
func (a *AuthSync) Logout(ctx context.Context) error {
	err := a.api.Logout(ctx)
	a.session.Clear()
	if err != nil {
		a.log.Warn("server logout failed, session cleared locally", zap.Error(err))
		a.notes.Warning("Logged out locally", "The server could not be reached to end the session.")
		return err
	}
	a.notes.Success("Logged out", "")
	return nil
}

// Register creates an account without signing in.
func (a *AuthSync) Register(ctx context.Context, req api.RegisterRequest) (*api.User, error) {
	if err := validateRegistration(req); err != nil {
		return nil, err
	}
	user, err := a.api.Register(ctx, req)
	if err != nil {
		report(a.notes, a.log, "Registration failed", err)
		return nil, err
	}
	a.notes.Success("Account created", "You can now log in.")
	return user, nil
}

// UpdateProfile saves the given fields and replaces the cached user.
func (a *AuthSync) UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*api.User, error) {
	if !a.session.Snapshot().IsAuthenticated {
		return nil, ErrNotAuthenticated
	}
	if upd.Email != nil {
		if _, err := mail.ParseAddress(*upd.Email); err != nil {
			return nil, &ValidationError{Field: "email", Msg: "value is not a valid email address"}
		}
	}

	user, err := a.api.UpdateProfile(ctx, upd)
	if err != nil {
		a.fail("Profile update failed", err)
		return nil, err
	}
	a.session.SetUser(user)
	a.notes.Success("Profile updated", "")
	return a.session.Snapshot().User, nil
}

// ChangePassword checks length and confirmation locally, then lets the
// server verify the current password. The session is not touched.
func (a *AuthSync) ChangePassword(ctx context.Context, req api.PasswordChange) error {
	if !a.session.Snapshot().IsAuthenticated {
		return ErrNotAuthenticated
	}
	if err := validatePasswordChange(req); err != nil {
		return err
	}
	if err := a.api.ChangePassword(ctx, req); err != nil {
		a.fail("Password change failed", err)
		return err
	}
	a.notes.Success("Password changed", "")
	return nil
}

// fail reports err; an expired session also signs out locally.
func (a *AuthSync) fail(title string, err error) {
	report(a.notes, a.log, title, err)
	if errors.Is(err, api.ErrUnauthorized) {
		a.session.Clear()
	}
}

func (a *AuthSync) authenticated(ctx context.Context, user *api.User) {
	a.mu.Lock()
	hooks := append([]AuthenticatedFunc(nil), a.hooks...)
	a.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(ctx, user.Clone()); err != nil {
			a.log.Warn("post-login hook", zap.Error(err))
		}
	}
}

func validatePasswordChange(req api.PasswordChange) error {
	if req.CurrentPassword == "" {
		return &ValidationError{Field: "current_password", Msg: "field required"}
	}
	if utf8.RuneCountInString(req.NewPassword) < MinPasswordLength {
		return &ValidationError{Field: "new_password", Msg: "password must be at least 8 characters"}
	}
	if req.NewPassword != req.ConfirmPassword {
		return &ValidationError{Field: "confirm_password", Msg: "passwords do not match"}
	}
	return nil
}

func validateRegistration(req api.RegisterRequest) error {
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return &ValidationError{Field: "email", Msg: "value is not a valid email address"}
	}
	if n := utf8.RuneCountInString(req.Username); n < MinUsernameLength || n > MaxUsernameLength {
		return &ValidationError{Field: "username", Msg: "username must be 3 to 100 characters"}
	}
	if utf8.RuneCountInString(req.Password) < MinPasswordLength {
		return &ValidationError{Field: "password", Msg: "password must be at least 8 characters"}
	}
	return nil
}
