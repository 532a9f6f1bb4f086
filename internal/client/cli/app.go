package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ocgamma/internal/client/account"
	"ocgamma/internal/client/api"
	"ocgamma/internal/client/notify"
	"ocgamma/internal/client/scheme"
	"ocgamma/internal/client/session"
	"ocgamma/internal/client/storage"
	"ocgamma/internal/client/theme"
)

const dbFileName = "client.db"

// Config holds the CLI settings resolved from flags and environment.
type Config struct {
	ServerURL  string
	DataDir    string
	SchemeFile string
}

// App owns the client stores for the duration of one command.
type App struct {
	log     *zap.Logger
	out     io.Writer
	kv      *storage.SQLite
	client  *api.Client
	source  *scheme.File
	root    *theme.ClassList
	session *session.Store
	prefs   *theme.Store
	notes   *notify.Center
	auth    *account.AuthSync
	themes  *account.ThemeSync
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// NewApp opens local storage, restores the saved session cookie and
// initializes the theme.
func NewApp(ctx context.Context, cfg Config, out io.Writer, log *zap.Logger) (*App, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	kv, err := storage.OpenSQLite(ctx, filepath.Join(cfg.DataDir, dbFileName))
	if err != nil {
		return nil, err
	}

	client, err := api.New(cfg.ServerURL, api.WithLogger(log))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	source, err := scheme.NewFile(cfg.SchemeFile, scheme.WithLogger(log))
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	a := &App{
		log:     log,
		out:     out,
		kv:      kv,
		client:  client,
		source:  source,
		root:    theme.NewClassList(),
		session: session.NewStore(),
		notes:   notify.NewCenter(nil),
	}
	a.prefs = theme.NewStore(kv, source, a.root, log)
	a.auth = account.NewAuthSync(client, a.session, a.notes, log)
	a.themes = account.NewThemeSync(client, a.prefs, a.session, a.notes, log)
	a.auth.OnAuthenticated(a.themes.Reconcile)

	if err := a.restoreCookies(ctx); err != nil {
		log.Warn("restore session cookie", zap.Error(err))
	}
	if err := a.prefs.Initialize(ctx); err != nil {
		log.Warn("initialize theme", zap.Error(err))
	}
	return a, nil
}

// Close prints pending notifications, saves the session cookie and releases resources.
func (a *App) Close(ctx context.Context) error {
	p := newPalette(a.prefs.Resolved())
	for _, n := range a.notes.List() {
		p.notification(a.out, n)
	}
	a.notes.Close()
	a.prefs.Cleanup()

	saveErr := a.saveCookies(ctx)
	if err := a.source.Close(); err != nil {
		a.log.Warn("close scheme watcher", zap.Error(err))
	}
	if err := a.kv.Close(); err != nil && saveErr == nil {
		return err
	}
	return saveErr
}

func (a *App) palette() palette {
	return newPalette(a.prefs.Resolved())
}

func (a *App) restoreCookies(ctx context.Context) error {
	raw, err := a.kv.Get(ctx, storage.KeySessionCookies)
	if err != nil || raw == nil {
		return err
	}
	var saved []savedCookie
	if err := json.Unmarshal(raw, &saved); err != nil {
		return fmt.Errorf("decode saved cookies: %w", err)
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, c := range saved {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	a.client.SetCookies(cookies)
	return nil
}

func (a *App) saveCookies(ctx context.Context) error {
	cookies := a.client.Cookies()
	if len(cookies) == 0 {
		return a.kv.Delete(ctx, storage.KeySessionCookies)
	}
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value})
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	return a.kv.Set(ctx, storage.KeySessionCookies, raw)
}
