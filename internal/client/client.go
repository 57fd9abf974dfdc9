// Package client is the Go client of the cliente API used by the terminal UI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cliente_backend/internal/api"
	"cliente_backend/internal/feature/cliente/domain/entity"
	"cliente_backend/internal/feature/dashboard"
	platformhttp "cliente_backend/internal/platform/http"
)

// ErrNotLoggedIn is returned by authenticated calls made without a session.
var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.Status)
	}
	return e.Message
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

// Session is the signed-in state kept by the client.
type Session struct {
	UserID       string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry
}

// Client talks to one API server on behalf of at most one user.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
	session *Session
	now     func() time.Time

	// OnSession is called whenever the session changes (login, refresh, logout).
	OnSession func(*Session)
}

var _ dashboard.Clientes = (*Client)(nil)

// New creates a client for baseURL. session may be nil.
func New(baseURL string, timeout time.Duration, session *Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    platformhttp.NewHTTPClient(timeout),
		stream:  platformhttp.NewStreamingClient(),
		session: session,
		now:     time.Now,
	}
}

// Session returns the current session or nil.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) setSession(s *Session) {
	c.session = s
	if c.OnSession != nil {
		c.OnSession(s)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// authorize attaches the access token, refreshing it first when it has expired.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.session == nil || c.session.AccessToken == "" {
		return ErrNotLoggedIn
	}
	if !c.session.ExpiresAt.IsZero() && !c.now().Before(c.session.ExpiresAt) && c.session.RefreshToken != "" {
		if _, err := c.Refresh(ctx); err != nil {
			return err
		}
	}
	req.Header.Set("Authorization", "Bearer "+c.session.AccessToken)
	return nil
}

// do sends req and decodes a 2xx JSON body into out (when non-nil).
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var body api.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return &APIError{Status: resp.StatusCode, Message: body.Error}
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if err := c.authorize(ctx, req); err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*Session, error) {
	req, err := c.newRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	var res api.AuthResponse
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	s := &Session{
		UserID:       res.User.ID,
		Email:        res.User.Email,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    c.now().Add(time.Duration(res.ExpiresIn) * time.Second),
	}
	c.setSession(s)
	return s, nil
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/register", api.CredentialsRequest{Email: email, Password: password})
}

// Login signs in with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	return c.authenticate(ctx, "/login", api.CredentialsRequest{Email: email, Password: password})
}

// Refresh exchanges the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	if c.session == nil || c.session.RefreshToken == "" {
		return nil, ErrNotLoggedIn
	}
	return c.authenticate(ctx, "/refresh", api.RefreshRequest{RefreshToken: c.session.RefreshToken})
}

// Logout revokes the session on the server and forgets it locally.
// The local session is dropped even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	return c.logout(ctx, "/logout")
}

// LogoutAll revokes every session of the user, on all devices, and forgets the local one.
func (c *Client) LogoutAll(ctx context.Context) error {
	return c.logout(ctx, "/logout?all=true")
}

func (c *Client) logout(ctx context.Context, path string) error {
	if c.session == nil {
		return nil
	}
	err := c.call(ctx, http.MethodPost, path, nil, nil)
	c.setSession(nil)
	if IsStatus(err, http.StatusUnauthorized) {
		return nil
	}
	return err
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*api.UserResponse, error) {
	var out api.UserResponse
	if err := c.call(ctx, http.MethodGet, "/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Dashboard returns the user and the user's clientes in one call.
func (c *Client) Dashboard(ctx context.Context) (*api.DashboardResponse, error) {
	var out api.DashboardResponse
	if err := c.call(ctx, http.MethodGet, "/dashboard", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the user's clientes, newest first.
func (c *Client) List(ctx context.Context) ([]entity.Cliente, error) {
	var out []api.ClienteResponse
	if err := c.call(ctx, http.MethodGet, "/clientes", nil, &out); err != nil {
		return nil, err
	}
	return toEntities(out), nil
}

// Get returns one cliente.
func (c *Client) Get(ctx context.Context, id string) (*entity.Cliente, error) {
	var out api.ClienteResponse
	if err := c.call(ctx, http.MethodGet, "/clientes/"+id, nil, &out); err != nil {
		return nil, err
	}
	cl := toEntity(out)
	return &cl, nil
}

// Create stores a new cliente.
func (c *Client) Create(ctx context.Context, in entity.ClienteInput) (*entity.Cliente, error) {
	body := api.ClienteRequest{Nome: &in.Nome, Email: &in.Email, Telefone: &in.Telefone, Endereco: &in.Endereco}
	var out api.ClienteResponse
	if err := c.call(ctx, http.MethodPost, "/clientes", body, &out); err != nil {
		return nil, err
	}
	cl := toEntity(out)
	return &cl, nil
}

// Update sends only the non-nil fields of patch.
func (c *Client) Update(ctx context.Context, id string, patch entity.ClientePatch) (*entity.Cliente, error) {
	body := api.ClienteRequest{Nome: patch.Nome, Email: patch.Email, Telefone: patch.Telefone, Endereco: patch.Endereco}
	var out api.ClienteResponse
	if err := c.call(ctx, http.MethodPatch, "/clientes/"+id, body, &out); err != nil {
		return nil, err
	}
	cl := toEntity(out)
	return &cl, nil
}

// Delete removes a cliente.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, "/clientes/"+id, nil, nil)
}

func toEntity(r api.ClienteResponse) entity.Cliente {
	return entity.Cliente{
		ID:        r.ID,
		UserID:    r.UserID,
		Nome:      r.Nome,
		Email:     r.Email,
		Telefone:  r.Telefone,
		Endereco:  r.Endereco,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toEntities(list []api.ClienteResponse) []entity.Cliente {
	out := make([]entity.Cliente, 0, len(list))
	for _, r := range list {
		out = append(out, toEntity(r))
	}
	return out
}
