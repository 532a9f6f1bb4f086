// Package api is the client side of the account HTTP API. The session
// cookie is kept in a cookie jar and never inspected.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ocgamma/internal/logging"
)

const (
	apiPrefix      = "/api/v1/auth"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client calls the account API.
type Client struct {
	base  *url.URL
	http  *http.Client
	log   *zap.Logger
	newID func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its Jar holds the session cookie,
// so one is installed when missing.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:  base,
		http:  &http.Client{Timeout: defaultTimeout},
		log:   zap.NewNop(),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	return c, nil
}

// Register creates an account. It does not start a session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPost, "/register", req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login exchanges credentials for the session cookie and returns the user.
func (c *Client) Login(ctx context.Context, username, password string) (*User, error) {
	form := url.Values{"username": {username}, "password": {password}}
	var user User
	err := c.do(ctx, http.MethodPost, "/login", strings.NewReader(form.Encode()),
		"application/x-www-form-urlencoded", &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the session server side. The cookie is dropped by the
// server's response; callers clear local state regardless of the result.
func (c *Client) Logout(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/logout", nil, &message{})
}

// Me fetches the current user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the provided profile fields.
func (c *Client) UpdateProfile(ctx context.Context, upd ProfileUpdate) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPut, "/me", upd, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ChangePassword changes the password; the server verifies the current one.
func (c *Client) ChangePassword(ctx context.Context, req PasswordChange) error {
	return c.doJSON(ctx, http.MethodPut, "/me/password", req, &message{})
}

// UpdateTheme stores the theme preference on the user record.
func (c *Client) UpdateTheme(ctx context.Context, pref string) (*User, error) {
	var user User
	if err := c.doJSON(ctx, http.MethodPatch, "/me/theme", themeUpdate{ThemePreference: pref}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Cookies returns the cookies held for the server, for persisting between runs.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// SetCookies restores previously saved cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.base, cookies)
}

// ClearCookies drops every cookie held for the server.
func (c *Client) ClearCookies() {
	cookies := c.http.Jar.Cookies(c.base)
	expired := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		expired = append(expired, &http.Cookie{Name: ck.Name, Path: "/", MaxAge: -1})
	}
	c.http.Jar.SetCookies(c.base, expired)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}
	return c.do(ctx, method, path, body, "application/json", out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	endpoint := c.base.String() + apiPrefix + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	correlationID := c.newID()
	req.Header.Set(logging.HeaderCorrelationID, correlationID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed",
			zap.String("method", method), zap.String("path", path),
			zap.String("correlation_id", correlationID), zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request",
		zap.String("method", method), zap.String("path", path),
		zap.Int("status", resp.StatusCode), zap.Duration("latency", time.Since(start)),
		zap.String("correlation_id", correlationID))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrTransport, path, err)
	}
	return nil
}
