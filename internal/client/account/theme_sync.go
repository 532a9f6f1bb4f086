package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ocgamma/internal/client/api"
	"ocgamma/internal/client/session"
	"ocgamma/internal/client/theme"
)

// ThemeAPI is the subset of the HTTP client used for the theme.
type ThemeAPI interface {
	UpdateTheme(ctx context.Context, pref string) (*api.User, error)
}

// ThemeSync keeps the local theme store and the server user record in
// agreement. Once a session exists the server value wins.
type ThemeSync struct {
	api     ThemeAPI
	prefs   *theme.Store
	session *session.Store
	notes   Notifier
	log     *zap.Logger
}

// NewThemeSync creates a ThemeSync. notes and log may be nil.
func NewThemeSync(client ThemeAPI, prefs *theme.Store, store *session.Store, notes Notifier, log *zap.Logger) *ThemeSync {
	if notes == nil {
		notes = nopNotifier{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ThemeSync{api: client, prefs: prefs, session: store, notes: notes, log: log}
}

// Select applies a user's choice: saved to the account when signed in,
// applied locally otherwise.
func (t *ThemeSync) Select(ctx context.Context, pref theme.Preference) error {
	if !t.session.Snapshot().IsAuthenticated {
		return t.prefs.SetTheme(ctx, pref)
	}
	_, err := t.UpdateThemePreference(ctx, pref)
	return err
}

// UpdateThemePreference saves pref on the server. The local store only
// changes after the server accepted the value; on failure an error
// notification is raised and neither store is modified.
func (t *ThemeSync) UpdateThemePreference(ctx context.Context, pref theme.Preference) (*api.User, error) {
	if !pref.Valid() {
		return nil, &ValidationError{Field: "theme_preference", Msg: fmt.Sprintf("%q is not one of light, dark, system", pref)}
	}
	if !t.session.Snapshot().IsAuthenticated {
		return nil, ErrNotAuthenticated
	}

	user, err := t.api.UpdateTheme(ctx, string(pref))
	if err != nil {
		t.log.Warn("theme update failed", zap.String("preference", string(pref)), zap.Error(err))
		var apiErr *api.Error
		if errors.As(err, &apiErr) && errors.Is(err, api.ErrValidation) {
			msg, ok := apiErr.FieldMessage("theme_preference")
			if !ok || msg == "" {
				msg = "Invalid theme preference."
			}
			t.notes.Error("Theme update failed", msg)
		} else {
			report(t.notes, t.log, "Theme update failed", err)
		}
		return nil, err
	}

	t.session.SetUser(user)
	return user, t.Reconcile(ctx, user)
}

// Reconcile makes the local store match the server's preference.
func (t *ThemeSync) Reconcile(ctx context.Context, user *api.User) error {
	if user == nil {
		return nil
	}
	server, err := theme.ParsePreference(user.ThemePreference)
	if err != nil {
		t.log.Warn("server returned unknown theme preference", zap.String("value", user.ThemePreference))
		return nil
	}
	if server == t.prefs.Preference() {
		return nil
	}
	t.log.Debug("adopting server theme preference",
		zap.String("local", string(t.prefs.Preference())), zap.String("server", string(server)))
	return t.prefs.SetTheme(ctx, server)
}
